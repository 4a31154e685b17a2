package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ErrorObject is the error member of a failed response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorDetail is one entry of the nested error data. The provider sends either
// a single object or a list of them.
type ErrorDetail struct {
	Type    string     `json:"type,omitempty"`
	Class   string     `json:"class,omitempty"`
	Message string     `json:"message,omitempty"`
	Code    DetailCode `json:"code,omitempty"`
}

// DetailCode is a nested error code that may arrive as a number or a string.
type DetailCode struct {
	Value int
	Set   bool
}

func (c *DetailCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = DetailCode{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			// non-numeric symbolic codes carry no sub-case information
			*c = DetailCode{}
			return nil
		}
		*c = DetailCode{Value: n, Set: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = DetailCode{Value: n, Set: true}
	return nil
}

func (c DetailCode) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.Value)), nil
}

// Details returns the nested error data as a list. Null or missing data yields nil.
func (e *ErrorObject) Details() ([]ErrorDetail, error) {
	raw := bytes.TrimSpace(e.Data)
	if isNull(raw) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []ErrorDetail
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one ErrorDetail
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []ErrorDetail{one}, nil
}

func (e *ErrorObject) String() string {
	if isNull(e.Data) {
		return fmt.Sprintf("code=%d message=%q", e.Code, e.Message)
	}
	return fmt.Sprintf("code=%d message=%q data=%s", e.Code, e.Message, e.Data)
}
