package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"avtocod/apierr"
	"avtocod/auth"
	"avtocod/batch"
	"avtocod/config"
	"avtocod/message"
	"avtocod/method"
	"avtocod/middleware"
	"avtocod/server"
	"avtocod/types"
)

const reportUUID = "2245ff3c-8b47-4a5b-a0a4-5b2d2d1f6a10"

// newUpstream starts a fake provider. report.get echoes the uuid and requires
// the token "fresh" when requireFresh is set.
func newUpstream(t *testing.T, requireFresh bool) (*server.Server, *httptest.Server) {
	t.Helper()
	svr := server.NewServer(nil)
	svr.Handle("auth.login", func(ctx context.Context, params json.RawMessage) (any, *message.ErrorObject) {
		if server.Header(ctx).Get("Authorization") != "" {
			return nil, &message.ErrorObject{Code: -32603, Message: "Internal error", Data: json.RawMessage(`{"code":0,"message":"session expired"}`)}
		}
		var p struct{ Email, Password string }
		_ = json.Unmarshal(params, &p)
		if p.Password != "secret" {
			return nil, &message.ErrorObject{Code: -32603, Message: "Internal error", Data: json.RawMessage(`{"code":401,"message":"bad credentials"}`)}
		}
		return map[string]string{"uuid": "u-1", "token": "fresh", "email": p.Email}, nil
	})
	svr.Handle("report.get", func(ctx context.Context, params json.RawMessage) (any, *message.ErrorObject) {
		if requireFresh && server.Header(ctx).Get("Authorization") != "Bearer fresh" {
			return nil, &message.ErrorObject{Code: -32603, Message: "Internal error", Data: json.RawMessage(`{"code":0,"message":"session expired"}`)}
		}
		var p struct{ UUID string }
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &message.ErrorObject{Code: -32602, Message: "Invalid params"}
		}
		return map[string]any{"uuid": p.UUID, "is_ready": true}, nil
	})
	svr.Handle("token.get", server.Result(map[string]string{"token": "abc"}))
	svr.Handle("profile.balance", server.Result(map[string]any{
		"balance": []map[string]any{{"product_uuid": "p-1", "count": 3}},
	}))
	svr.Handle("report.upgrade", server.Fail(17002, "Insufficient balance", nil))
	ts := httptest.NewServer(svr)
	t.Cleanup(ts.Close)
	return svr, ts
}

func newClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := New(append([]Option{WithURL(url)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGetReport(t *testing.T) {
	svr, ts := newUpstream(t, false)
	c := newClient(t, ts.URL, WithToken("abc"))

	r, err := c.GetReport(context.Background(), reportUUID)
	if err != nil {
		t.Fatal(err)
	}
	if r.UUID != reportUUID || !r.IsReady {
		t.Fatalf("unexpected report %+v", r)
	}

	calls := svr.Calls()
	if len(calls) != 1 {
		t.Fatalf("expect one call, got %d", len(calls))
	}
	if calls[0].Method != "report.get" || string(calls[0].Params) != `{"uuid":"`+reportUUID+`"}` {
		t.Fatalf("unexpected wire call %s %s", calls[0].Method, calls[0].Params)
	}
	h := calls[0].Header
	for k, want := range map[string]string{
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"Authorization": "Bearer abc",
		"Origin":        "https://profi.avtocod.ru/",
	} {
		if got := h.Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}
}

func TestUnauthenticatedCallHasNoAuthorization(t *testing.T) {
	svr, ts := newUpstream(t, false)
	c := newClient(t, ts.URL)
	if _, err := c.GetBalance(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h := svr.Calls()[0].Header.Get("Authorization"); h != "" {
		t.Fatalf("expect no Authorization header, got %q", h)
	}
}

func TestEncodedParams(t *testing.T) {
	svr, ts := newUpstream(t, false)
	svr.Handle("reports.list", server.Result(map[string]any{"reports_list": []any{}}))
	c := newClient(t, ts.URL, WithToken("abc"))

	tests := []struct {
		m    method.Method
		want map[string]any
	}{
		{method.GetToken{}, map[string]any{}},
		{method.GetReports{Pagination: &types.Pagination{Page: 2, Limit: 5}}, map[string]any{
			"pagination": map[string]any{"page": float64(2), "limit": float64(5)},
		}},
		{method.OrderRepair{ReportUUID: "r", ProductUUID: "p"}, map[string]any{"report_uuid": "r", "product_uuid": "p"}},
	}
	svr.Handle("report.additional.upgrade", server.Result(map[string]any{"channel": "c"}))

	for _, tt := range tests {
		svr.Reset()
		if _, err := c.Call(context.Background(), tt.m); err != nil {
			t.Fatalf("%s: %v", tt.m.Name(), err)
		}
		call := svr.Calls()[0]
		if call.Method != tt.m.Name() {
			t.Fatalf("method = %s, want %s", call.Method, tt.m.Name())
		}
		var got map[string]any
		if err := json.Unmarshal(call.Params, &got); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s params mismatch (-want +got):\n%s", tt.m.Name(), diff)
		}
	}
}

func TestProviderError(t *testing.T) {
	svr, ts := newUpstream(t, false)
	svr.Handle("report.get", server.Fail(18001, "not found", nil))
	c := newClient(t, ts.URL)

	_, err := c.GetReport(context.Background(), "missing")
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("expect not found, got %v", err)
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != 18001 {
		t.Fatalf("expect code 18001 in %v", err)
	}
}

func TestWrongContentTypeIsNetworkError(t *testing.T) {
	svr, ts := newUpstream(t, false)
	svr.SetContentType("text/html; charset=utf-8")
	c := newClient(t, ts.URL)

	if _, err := c.GetToken(context.Background()); !errors.Is(err, apierr.ErrNetwork) {
		t.Fatalf("expect network error, got %v", err)
	}
}

func TestValidationBeforeSend(t *testing.T) {
	svr, ts := newUpstream(t, false)
	c := newClient(t, ts.URL)

	if _, err := c.CreateReport(context.Background(), "A123BC77", "PLATE"); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expect validation error, got %v", err)
	}
	if _, err := c.GetReports(context.Background(), &types.Pagination{Page: 1, Limit: 50}, nil, nil); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expect validation error, got %v", err)
	}
	if n := len(svr.Calls()); n != 0 {
		t.Fatalf("expect nothing sent, got %d calls", n)
	}
	if _, err := New(WithToken("has space")); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expect invalid token, got %v", err)
	}
}

func TestCallBatchOutOfOrder(t *testing.T) {
	svr, ts := newUpstream(t, false)
	svr.ReverseBatches(true)
	c := newClient(t, ts.URL)

	items, err := c.CallBatch(context.Background(), method.GetReport{UUID: reportUUID}, method.GetToken{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expect 2 items, got %d", len(items))
	}
	if r, ok := items[0].Result.(*types.Report); !ok || r.UUID != reportUUID {
		t.Fatalf("item 0 = %#v, want the report", items[0].Result)
	}
	if items[1].Result != "abc" {
		t.Fatalf("item 1 = %#v, want token", items[1].Result)
	}

	calls := svr.Calls()
	if len(calls) != 2 || !calls[0].Batch || calls[0].Method != "report.get" || calls[1].Method != "token.get" {
		t.Fatalf("expect one 2-element batch, got %+v", calls)
	}
}

func TestCallBatchUUIDs(t *testing.T) {
	svr, ts := newUpstream(t, false)
	svr.ReverseBatches(true)
	c := newClient(t, ts.URL, WithIDs(message.UUIDs{}))

	items, err := c.CallBatch(context.Background(), method.GetToken{}, method.GetReport{UUID: "x"}, method.GetBalance{})
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Result != "abc" {
		t.Fatalf("item 0 = %#v, want token", items[0].Result)
	}
	if _, ok := items[2].Result.([]types.BalanceItem); !ok {
		t.Fatalf("item 2 = %#v, want balance", items[2].Result)
	}
}

func TestCallBatchEmpty(t *testing.T) {
	svr, ts := newUpstream(t, false)
	c := newClient(t, ts.URL)

	items, err := c.CallBatch(context.Background())
	if err != nil || len(items) != 0 {
		t.Fatalf("expect empty result, got %v, %v", items, err)
	}
	if n := len(svr.Calls()); n != 0 {
		t.Fatalf("expect no round trip, got %d calls", n)
	}
}

func TestCallRejectsBatch(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1")
	if _, err := c.Call(context.Background(), batch.New(method.GetToken{})); !errors.Is(err, apierr.ErrUsage) {
		t.Fatalf("expect usage error, got %v", err)
	}
}

func TestRelogin(t *testing.T) {
	svr, ts := newUpstream(t, true)
	c := newClient(t, ts.URL, WithToken("stale"), WithRelogin(auth.Static("user@example.com", "secret")))

	r, err := c.GetReport(context.Background(), reportUUID)
	if err != nil {
		t.Fatal(err)
	}
	if r.UUID != reportUUID {
		t.Fatalf("unexpected report %+v", r)
	}
	if c.Token() != "fresh" {
		t.Fatalf("expect new token kept, got %q", c.Token())
	}

	var calls []string
	for _, call := range svr.Calls() {
		calls = append(calls, call.Method+" "+call.Header.Get("Authorization"))
	}
	want := []string{"report.get Bearer stale", "auth.login ", "report.get Bearer fresh"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("wire calls mismatch (-want +got):\n%s", diff)
	}

	svr.Reset()
	if _, err := c.GetReport(context.Background(), reportUUID); err != nil {
		t.Fatal(err)
	}
	if n := len(svr.Calls()); n != 1 {
		t.Fatalf("expect the new token to be reused, got %d calls", n)
	}
}

func TestReloginBadCredentials(t *testing.T) {
	_, ts := newUpstream(t, true)
	c := newClient(t, ts.URL, WithToken("stale"), WithRelogin(auth.Static("user@example.com", "wrong")))

	if _, err := c.GetReport(context.Background(), reportUUID); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("expect unauthorized, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	_, ts := newUpstream(t, false)
	c, err := FromCredentials(context.Background(), "user@example.com", "secret", WithURL(ts.URL))
	if err != nil {
		t.Fatal(err)
	}
	if c.Token() != "fresh" {
		t.Fatalf("token = %q, want fresh", c.Token())
	}
}

func TestUseOrder(t *testing.T) {
	_, ts := newUpstream(t, false)
	c := newClient(t, ts.URL)

	var trace []string
	mark := func(name string) middleware.Middleware {
		return func(next middleware.HandlerFunc) middleware.HandlerFunc {
			return func(ctx context.Context, m method.Method) (any, error) {
				trace = append(trace, name+":"+m.Name())
				return next(ctx, m)
			}
		}
	}
	c.Use(mark("a"))
	c.Use(mark("b"))
	if _, err := c.GetToken(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a:token.get", "b:token.get"}, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultTimeout(t *testing.T) {
	svr, ts := newUpstream(t, false)
	svr.Handle("token.get", func(ctx context.Context, _ json.RawMessage) (any, *message.ErrorObject) {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return map[string]string{"token": "late"}, nil
	})
	c := newClient(t, ts.URL, WithTimeout(50*time.Millisecond))

	if _, err := c.GetToken(context.Background()); !errors.Is(err, apierr.ErrNetwork) {
		t.Fatalf("expect network error after timeout, got %v", err)
	}
}

func TestIterReports(t *testing.T) {
	svr, ts := newUpstream(t, false)
	const total = 25
	svr.Handle("reports.list", func(ctx context.Context, params json.RawMessage) (any, *message.ErrorObject) {
		var p struct {
			Pagination types.Pagination `json:"pagination"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &message.ErrorObject{Code: -32602, Message: "Invalid params"}
		}
		var list []map[string]any
		for i := (p.Pagination.Page - 1) * p.Pagination.Limit; i < min(total, p.Pagination.Page*p.Pagination.Limit); i++ {
			list = append(list, map[string]any{"uuid": fmt.Sprintf("r-%d", i)})
		}
		return map[string]any{"reports_list": list}, nil
	})
	c := newClient(t, ts.URL)

	var got []string
	for r, err := range c.IterReports(context.Background(), IterOptions{}) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, r.UUID)
	}
	if len(got) != total || got[0] != "r-0" || got[total-1] != "r-24" {
		t.Fatalf("unexpected reports %v", got)
	}
	// pages of 20 and 5, then an empty page
	if n := len(svr.Calls()); n != 3 {
		t.Fatalf("expect 3 page requests, got %d", n)
	}
	if !strings.Contains(string(svr.Calls()[0].Params), `"limit":20`) {
		t.Fatalf("expect page size 20, got %s", svr.Calls()[0].Params)
	}

	svr.Reset()
	got = got[:0]
	for r, err := range c.IterReports(context.Background(), IterOptions{Limit: 22, Delay: time.Millisecond}) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, r.UUID)
	}
	if len(got) != 22 || len(svr.Calls()) != 2 {
		t.Fatalf("expect 22 reports in 2 requests, got %d in %d", len(got), len(svr.Calls()))
	}
}

func TestIterReportsError(t *testing.T) {
	svr, ts := newUpstream(t, false)
	svr.Handle("reports.list", server.Fail(-32600, "Invalid Request", nil))
	c := newClient(t, ts.URL)

	var errs []error
	for _, err := range c.IterReports(context.Background(), IterOptions{}) {
		errs = append(errs, err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], apierr.ErrInvalidRequest) {
		t.Fatalf("expect one invalid request error, got %v", errs)
	}
}

func TestFromConfig(t *testing.T) {
	svr, ts := newUpstream(t, true)
	cfg := &config.Config{
		APIURL:         ts.URL,
		Token:          "stale",
		Email:          "user@example.com",
		Password:       "secret",
		RequestTimeout: time.Second,
		IDScheme:       "uuid",
		RateLimit:      100,
		RateBurst:      10,
		RetryMax:       1,
		RetryDelay:     time.Millisecond,
		ServiceName:    "avtocod",
		Balancer:       "hash",
		LogLevel:       "info",
	}
	c, err := FromConfig(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.GetReport(context.Background(), reportUUID); err != nil {
		t.Fatal(err)
	}
	if n := len(svr.Calls()); n != 3 {
		t.Fatalf("expect report.get, auth.login, report.get; got %d calls", n)
	}

	cfg.IDScheme = "snowflake"
	if _, err := FromConfig(cfg, nil, nil); err == nil {
		t.Fatal("expect invalid config to fail")
	}
}

func TestFromConfigAttemptTimeout(t *testing.T) {
	svr, ts := newUpstream(t, false)
	var attempts atomic.Int32
	svr.Handle("token.get", func(ctx context.Context, _ json.RawMessage) (any, *message.ErrorObject) {
		if attempts.Add(1) == 1 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		return map[string]string{"token": "abc"}, nil
	})
	cfg := &config.Config{
		APIURL:         ts.URL,
		RequestTimeout: 2 * time.Second,
		AttemptTimeout: 100 * time.Millisecond,
		RetryMax:       1,
		RetryDelay:     time.Millisecond,
		IDScheme:       "natural",
		ServiceName:    "avtocod",
		Balancer:       "roundrobin",
	}
	c, err := FromConfig(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	token, err := c.GetToken(context.Background())
	if err != nil {
		t.Fatalf("expect the second attempt to succeed, got %v", err)
	}
	if token != "abc" || attempts.Load() != 2 {
		t.Fatalf("token = %q after %d attempts", token, attempts.Load())
	}
}
