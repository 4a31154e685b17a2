package client

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"avtocod/auth"
	"avtocod/method"
	"avtocod/types"
)

// Login logs in with account credentials and keeps the returned token.
// The login call itself is sent without a token.
func (c *Client) Login(ctx context.Context, email, password string) (*types.LoginData, error) {
	ctx = auth.WithoutToken(ctx)
	data, err := Do[*types.LoginData](ctx, c, method.AuthLogin{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if err := c.SetToken(data.Token); err != nil {
		return nil, err
	}
	c.logger.Info("logged in", zap.String("email", data.Email))
	return data, nil
}

// loginToken is the LoginFunc of the relogin middleware.
func (c *Client) loginToken(ctx context.Context, creds auth.Credentials) (string, error) {
	data, err := c.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return "", err
	}
	return data.Token, nil
}

// FromCredentials creates a client and logs it in.
func FromCredentials(ctx context.Context, email, password string, opts ...Option) (*Client, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, email, password); err != nil {
		return nil, err
	}
	return c, nil
}

// GetToken fetches the current API token of the account.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	return Do[string](ctx, c, method.GetToken{})
}

// CreateReport starts generating a report for a VIN, GRZ or BODY query.
func (c *Client) CreateReport(ctx context.Context, query string, qt types.QueryType) (*types.ReviewGeneration, error) {
	m, err := method.NewCreateReport(query, qt)
	if err != nil {
		return nil, err
	}
	return Do[*types.ReviewGeneration](ctx, c, m)
}

// GetReport fetches a report. It works without authorization.
func (c *Client) GetReport(ctx context.Context, uuid string) (*types.Report, error) {
	return Do[*types.Report](ctx, c, method.GetReport{UUID: uuid})
}

// UpgradeReport upgrades a report to the full version.
func (c *Client) UpgradeReport(ctx context.Context, uuid string) (*types.ReviewUpgrade, error) {
	return Do[*types.ReviewUpgrade](ctx, c, method.UpgradeReport{UUID: uuid})
}

// GetReports lists reports. Nil arguments are left out of the request.
func (c *Client) GetReports(ctx context.Context, p *types.Pagination, s *types.Sort, f *types.Filters) ([]types.BaseReport, error) {
	return Do[[]types.BaseReport](ctx, c, method.GetReports{Pagination: p, Sort: s, Filters: f})
}

// GetBalance returns the remaining product balance of the account.
func (c *Client) GetBalance(ctx context.Context) ([]types.BalanceItem, error) {
	return Do[[]types.BalanceItem](ctx, c, method.GetBalance{})
}

// OrderRepair orders the repair history of a report, paid from productUUID.
func (c *Client) OrderRepair(ctx context.Context, reportUUID, productUUID string) (*types.ReviewUpgrade, error) {
	return Do[*types.ReviewUpgrade](ctx, c, method.OrderRepair{ReportUUID: reportUUID, ProductUUID: productUUID})
}

// IterOptions controls IterReports.
type IterOptions struct {
	Sort    *types.Sort
	Filters *types.Filters
	// Limit stops after that many reports; 0 means all.
	Limit int
	// Delay is the pause between page requests.
	Delay time.Duration
}

// IterReports yields every report page by page, at most types.MaxPageLimit
// per request. It stops at the first empty page, at opts.Limit, on error or
// when ctx is done; an error is yielded once as the last element.
func (c *Client) IterReports(ctx context.Context, opts IterOptions) iter.Seq2[types.BaseReport, error] {
	return func(yield func(types.BaseReport, error) bool) {
		total := opts.Limit
		if total <= 0 {
			total = int(^uint(0) >> 1)
		}
		limit := min(types.MaxPageLimit, total)

		current := 0
		for page := 1; ; page++ {
			reports, err := c.GetReports(ctx, &types.Pagination{Page: page, Limit: limit}, opts.Sort, opts.Filters)
			if err != nil {
				yield(types.BaseReport{}, err)
				return
			}
			if len(reports) == 0 {
				return
			}
			for _, r := range reports {
				if !yield(r, nil) {
					return
				}
				current++
				if current >= total {
					return
				}
			}

			if opts.Delay > 0 {
				select {
				case <-ctx.Done():
					yield(types.BaseReport{}, ctx.Err())
					return
				case <-time.After(opts.Delay):
				}
			}
		}
	}
}
