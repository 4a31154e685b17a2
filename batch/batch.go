// Package batch sends several methods in one round trip and pairs every
// element of the response array with the method that produced it.
package batch

import (
	"encoding/json"
	"sort"
	"strconv"

	"avtocod/apierr"
	"avtocod/message"
	"avtocod/method"
)

// Item is the outcome of one method of a batch: Result or Err, never both.
type Item struct {
	Method method.Method
	Result any
	Err    error
}

// Batch is an ordered list of methods sent as one JSON array.
//
// Batch implements method.Method so that it travels through the same
// middleware chain as single calls; it has no single result of its own.
type Batch struct {
	methods []method.Method
}

// New bundles methods in invocation order.
func New(methods ...method.Method) *Batch {
	return &Batch{methods: append([]method.Method(nil), methods...)}
}

func (b *Batch) Methods() []method.Method {
	return append([]method.Method(nil), b.methods...)
}

func (b *Batch) Len() int {
	return len(b.methods)
}

func (b *Batch) Name() string { return "batch" }

func (b *Batch) Params() map[string]any { return nil }

func (b *Batch) Result(json.RawMessage) (any, error) {
	return nil, apierr.Usage("a batch has no single result")
}

// Validate runs the checks of every method.
func (b *Batch) Validate() error {
	for _, m := range b.methods {
		if err := method.Validate(m); err != nil {
			return err
		}
	}
	return nil
}

// BuildRequest builds one envelope per method, each with its own id from ids.
func (b *Batch) BuildRequest(ids message.IDGenerator) []message.Request {
	reqs := make([]message.Request, len(b.methods))
	for i, m := range b.methods {
		reqs[i] = method.BuildRequest(m, ids.Next())
	}
	return reqs
}

// BuildResponse pairs raws with the methods of the batch and decodes each.
// reqs are the envelopes that were sent.
//
// Responses are paired by request id when every id names a distinct request;
// a request left without a response fails alone. Otherwise they are sorted by
// ascending id when every id is an integer, or taken positionally. One item's failure never stops the others; if any
// item failed the items come back together with a *PartialFailure.
func (b *Batch) BuildResponse(reqs []message.Request, raws []json.RawMessage) ([]Item, error) {
	resps := make([]*message.Response, len(raws))
	decodeErrs := make([]error, len(raws))
	for i, raw := range raws {
		var r message.Response
		if err := json.Unmarshal(raw, &r); err != nil {
			decodeErrs[i] = apierr.Decoding("batch item %d: %v", i, err)
			continue
		}
		resps[i] = &r
	}

	order := reconcile(reqs, resps)

	items := make([]Item, len(b.methods))
	failed := false
	for i, m := range b.methods {
		items[i].Method = m
		j := order[i]
		if j < 0 {
			items[i].Err = apierr.Protocol("no response for %s (batch position %d)", m.Name(), i)
			failed = true
			continue
		}
		if decodeErrs[j] != nil {
			items[i].Err = decodeErrs[j]
			failed = true
			continue
		}
		res, err := method.ParseResponse(m, resps[j])
		if err != nil {
			items[i].Err = err
			failed = true
			continue
		}
		items[i].Result = res
	}

	if failed {
		return items, &PartialFailure{Items: items}
	}
	return items, nil
}

// reconcile returns, for each request position, the index of its response,
// or -1 when none belongs to it.
func reconcile(reqs []message.Request, resps []*message.Response) []int {
	if byID, ok := matchByID(reqs, resps); ok {
		return byID
	}

	pos := make([]int, len(resps))
	for i := range pos {
		pos[i] = i
	}
	if ids, ok := integerIDs(resps); ok {
		sort.SliceStable(pos, func(a, b int) bool {
			return ids[pos[a]] < ids[pos[b]]
		})
	}

	order := make([]int, len(reqs))
	for i := range order {
		order[i] = -1
		if i < len(pos) {
			order[i] = pos[i]
		}
	}
	return order
}

func integerIDs(resps []*message.Response) ([]int64, bool) {
	if len(resps) == 0 {
		return nil, false
	}
	ids := make([]int64, len(resps))
	for i, r := range resps {
		if r == nil {
			return nil, false
		}
		id, ok := r.IntID()
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

// responseKey renders a response id the way request ids are written.
func responseKey(r *message.Response) (string, bool) {
	var s string
	if err := json.Unmarshal(r.ID, &s); err == nil {
		return s, true
	}
	if id, ok := r.IntID(); ok {
		return strconv.FormatInt(id, 10), true
	}
	return "", false
}

// matchByID succeeds when every response names a distinct request id.
// Requests without a response get -1.
func matchByID(reqs []message.Request, resps []*message.Response) ([]int, bool) {
	if len(resps) == 0 {
		return nil, false
	}
	sent := make(map[string]bool, len(reqs))
	for _, req := range reqs {
		sent[req.ID] = true
	}
	pos := make(map[string]int, len(resps))
	for i, r := range resps {
		if r == nil {
			return nil, false
		}
		id, ok := responseKey(r)
		if !ok || !sent[id] {
			return nil, false
		}
		if _, dup := pos[id]; dup {
			return nil, false
		}
		pos[id] = i
	}
	order := make([]int, len(reqs))
	for i, req := range reqs {
		order[i] = -1
		if j, ok := pos[req.ID]; ok {
			order[i] = j
		}
	}
	return order, true
}

// Results flattens items into results, with the error in place of each failed result.
func Results(items []Item) []any {
	out := make([]any, len(items))
	for i, it := range items {
		if it.Err != nil {
			out[i] = it.Err
			continue
		}
		out[i] = it.Result
	}
	return out
}
