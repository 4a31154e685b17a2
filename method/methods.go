package method

import (
	"encoding/json"
	"strings"

	"avtocod/apierr"
	"avtocod/types"
)

// AuthLogin logs in with account credentials. It cannot be batched.
type AuthLogin struct {
	Email    string
	Password string
}

func (AuthLogin) Name() string { return "auth.login" }

func (m AuthLogin) Params() map[string]any {
	return map[string]any{"email": m.Email, "password": m.Password}
}

func (m AuthLogin) Result(raw json.RawMessage) (any, error) {
	return decode[types.LoginData](m.Name(), raw)
}

// GetToken fetches the current API token.
type GetToken struct {
	Pipelined
}

func (GetToken) Name() string { return "token.get" }

func (GetToken) Params() map[string]any { return nil }

// Result unwraps the token string.
func (m GetToken) Result(raw json.RawMessage) (any, error) {
	t, err := decode[types.Token](m.Name(), raw)
	if err != nil {
		return nil, err
	}
	return t.Token, nil
}

// GetBalance fetches the remaining product balance of the account.
type GetBalance struct {
	Pipelined
}

func (GetBalance) Name() string { return "profile.balance" }

func (GetBalance) Params() map[string]any { return nil }

// Result unwraps the balance items.
func (m GetBalance) Result(raw json.RawMessage) (any, error) {
	b, err := decode[types.Balance](m.Name(), raw)
	if err != nil {
		return nil, err
	}
	return b.Balance, nil
}

// CreateReport starts generating a report for a VIN, body number or plate.
type CreateReport struct {
	Pipelined
	Query string
	Type  types.QueryType
}

// NewCreateReport validates the query type, accepting any letter case.
func NewCreateReport(query string, qt types.QueryType) (CreateReport, error) {
	qt = types.QueryType(strings.ToUpper(string(qt)))
	if !qt.Valid() {
		return CreateReport{}, apierr.Validation("incorrect query type %q, must be one of VIN, GRZ, BODY", string(qt))
	}
	return CreateReport{Query: query, Type: qt}, nil
}

func (CreateReport) Name() string { return "report.create" }

func (m CreateReport) Params() map[string]any {
	return map[string]any{"query": m.Query, "type": string(m.Type)}
}

func (m CreateReport) Result(raw json.RawMessage) (any, error) {
	return decode[types.ReviewGeneration](m.Name(), raw)
}

// GetReport fetches one report. It works without authorization.
type GetReport struct {
	Pipelined
	UUID string
}

func (GetReport) Name() string { return "report.get" }

func (m GetReport) Params() map[string]any {
	return map[string]any{"uuid": m.UUID}
}

func (m GetReport) Result(raw json.RawMessage) (any, error) {
	return decode[types.Report](m.Name(), raw)
}

// UpgradeReport upgrades a report to the full version.
type UpgradeReport struct {
	Pipelined
	UUID string
}

func (UpgradeReport) Name() string { return "report.upgrade" }

func (m UpgradeReport) Params() map[string]any {
	return map[string]any{"uuid": m.UUID}
}

func (m UpgradeReport) Result(raw json.RawMessage) (any, error) {
	return decode[types.ReviewUpgrade](m.Name(), raw)
}

// OrderRepair orders the additional repair history block of a report,
// paid from the balance of ProductUUID.
type OrderRepair struct {
	Pipelined
	ReportUUID  string
	ProductUUID string
}

func (OrderRepair) Name() string { return "report.additional.upgrade" }

func (m OrderRepair) Params() map[string]any {
	return map[string]any{"report_uuid": m.ReportUUID, "product_uuid": m.ProductUUID}
}

func (m OrderRepair) Result(raw json.RawMessage) (any, error) {
	return decode[types.ReviewUpgrade](m.Name(), raw)
}

// GetReports lists reports of the account. Without pagination the provider
// returns the first 10.
type GetReports struct {
	Pipelined
	Pagination *types.Pagination
	Sort       *types.Sort
	Filters    *types.Filters
}

func (GetReports) Name() string { return "reports.list" }

func (m GetReports) Params() map[string]any {
	return map[string]any{
		"pagination": m.Pagination,
		"sort":       m.Sort,
		"filters":    m.Filters,
	}
}

// Result unwraps the report list.
func (m GetReports) Result(raw json.RawMessage) (any, error) {
	r, err := decode[types.Reports](m.Name(), raw)
	if err != nil {
		return nil, err
	}
	return r.ReportsList, nil
}

// Validate checks the pagination limit and sort order before sending.
func (m GetReports) Validate() error {
	if p := m.Pagination; p != nil {
		if p.Limit > types.MaxPageLimit {
			return apierr.Validation("page limit %d exceeds %d", p.Limit, types.MaxPageLimit)
		}
		if p.Page < 1 {
			return apierr.Validation("page must be >= 1, got %d", p.Page)
		}
	}
	if s := m.Sort; s != nil && s.Order != types.Asc && s.Order != types.Desc {
		return apierr.Validation("sort order must be asc or desc, got %q", string(s.Order))
	}
	return nil
}
