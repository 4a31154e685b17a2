package codec

import (
	"reflect"
	"time"
)

// TimeLayout is the UTC ISO-8601 form, with seconds, used for every date sent to the provider.
const TimeLayout = "2006-01-02T15:04:05-07:00"

// ParamsMarshaler is implemented by structured parameter values (filters,
// pagination, sorting). Returned maps are cleaned like top level params.
type ParamsMarshaler interface {
	MarshalParams() map[string]any
}

// FormatTime renders t in TimeLayout after converting it to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// CleanParams returns a copy of params without nil values. Nested lists and
// objects are cleaned recursively, times are formatted and durations are
// resolved relative to now.
func CleanParams(params map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if cv, ok := cleanValue(v, now); ok {
			out[k] = cv
		}
	}
	return out
}

// cleanValue reports false when v must be dropped from its container.
func cleanValue(v any, now time.Time) (any, bool) {
	switch tv := v.(type) {
	case nil:
		return nil, false
	case string, bool, int, int64, float64:
		return tv, true
	case time.Time:
		return FormatTime(tv), true
	case *time.Time:
		if tv == nil {
			return nil, false
		}
		return FormatTime(*tv), true
	case time.Duration:
		return FormatTime(now.Add(tv)), true
	case *time.Duration:
		if tv == nil {
			return nil, false
		}
		return FormatTime(now.Add(*tv)), true
	case map[string]any:
		return CleanParams(tv, now), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil, false
		}
	}
	if pm, ok := v.(ParamsMarshaler); ok {
		return CleanParams(pm.MarshalParams(), now), true
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return cleanValue(rv.Elem().Interface(), now)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, true
		}
		list := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if cv, ok := cleanValue(rv.Index(i).Interface(), now); ok {
				list = append(list, cv)
			}
		}
		return list, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v, true
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if cv, ok := cleanValue(iter.Value().Interface(), now); ok {
				m[iter.Key().String()] = cv
			}
		}
		return m, true
	}
	return v, true
}
