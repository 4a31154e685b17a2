package client

import (
	"context"
	"errors"
	"time"

	"avtocod/apierr"
	"avtocod/batch"
	"avtocod/method"
	"avtocod/types"
)

// Pipeline queues methods and sends them as one batch on Execute.
// A Pipeline has a single owner; create one per unit of work.
//
//	res, err := c.Pipeline().
//		GetReport(uuid).
//		GetBalance().
//		Execute(ctx, client.ExecuteOptions{})
type Pipeline struct {
	client   *Client
	methods  []method.Method
	timeouts []time.Duration
	err      error // first error of a chained call
}

// Pipeline returns an empty pipeline bound to c.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{client: c}
}

// Add queues m. A timeout overrides the default of Execute for the whole
// batch; the smallest override wins.
func (p *Pipeline) Add(m method.Batchable, timeout ...time.Duration) *Pipeline {
	var d time.Duration
	if len(timeout) > 0 {
		d = timeout[0]
	}
	p.methods = append(p.methods, m)
	p.timeouts = append(p.timeouts, d)
	return p
}

func (p *Pipeline) GetToken(timeout ...time.Duration) *Pipeline {
	return p.Add(method.GetToken{}, timeout...)
}

// CreateReport queues report.create. An invalid query type fails Execute.
func (p *Pipeline) CreateReport(query string, qt types.QueryType, timeout ...time.Duration) *Pipeline {
	m, err := method.NewCreateReport(query, qt)
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		return p
	}
	return p.Add(m, timeout...)
}

func (p *Pipeline) GetReport(uuid string, timeout ...time.Duration) *Pipeline {
	return p.Add(method.GetReport{UUID: uuid}, timeout...)
}

func (p *Pipeline) UpgradeReport(uuid string, timeout ...time.Duration) *Pipeline {
	return p.Add(method.UpgradeReport{UUID: uuid}, timeout...)
}

func (p *Pipeline) GetReports(pg *types.Pagination, s *types.Sort, f *types.Filters, timeout ...time.Duration) *Pipeline {
	return p.Add(method.GetReports{Pagination: pg, Sort: s, Filters: f}, timeout...)
}

func (p *Pipeline) GetBalance(timeout ...time.Duration) *Pipeline {
	return p.Add(method.GetBalance{}, timeout...)
}

func (p *Pipeline) OrderRepair(reportUUID, productUUID string, timeout ...time.Duration) *Pipeline {
	return p.Add(method.OrderRepair{ReportUUID: reportUUID, ProductUUID: productUUID}, timeout...)
}

// Len returns the number of queued methods.
func (p *Pipeline) Len() int {
	return len(p.methods)
}

// Reset empties the queue.
func (p *Pipeline) Reset() {
	p.methods, p.timeouts, p.err = nil, nil, nil
}

// ExecuteOptions controls Execute.
type ExecuteOptions struct {
	// Partial returns failed items as errors in place instead of failing
	// the whole call with a *batch.PartialFailure.
	Partial bool
	// Timeout bounds the round trip. Zero means the smallest per-method
	// override, else the client default.
	Timeout time.Duration
}

// Execute sends the queue as one batch and returns results in the order the
// methods were queued. The queue is empty afterwards, whatever the outcome.
// An empty queue is a usage error.
func (p *Pipeline) Execute(ctx context.Context, opts ExecuteOptions) ([]any, error) {
	defer p.Reset()

	if p.err != nil {
		return nil, p.err
	}
	if len(p.methods) == 0 {
		return nil, apierr.Usage("no method to execute")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.minTimeout()
	}

	items, err := p.client.callBatch(ctx, timeout, p.methods)
	if err != nil {
		var pf *batch.PartialFailure
		if opts.Partial && errors.As(err, &pf) {
			return pf.Results(), nil
		}
		return nil, err
	}
	return batch.Results(items), nil
}

func (p *Pipeline) minTimeout() time.Duration {
	var d time.Duration
	for _, t := range p.timeouts {
		if t > 0 && (d == 0 || t < d) {
			d = t
		}
	}
	return d
}
