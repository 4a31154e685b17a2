package message

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out correlation ids for outgoing requests.
type IDGenerator interface {
	Next() string
}

// Naturals generates "1", "2", "3", ... and is safe for concurrent use.
type Naturals struct {
	n atomic.Int64
}

func (g *Naturals) Next() string {
	return strconv.FormatInt(g.n.Add(1), 10)
}

// UUIDs generates random version 4 UUIDs.
type UUIDs struct{}

func (UUIDs) Next() string {
	return uuid.NewString()
}

// NewIDGenerator returns the generator for the named scheme ("natural" or "uuid").
func NewIDGenerator(scheme string) (IDGenerator, bool) {
	switch scheme {
	case "", "natural":
		return &Naturals{}, true
	case "uuid":
		return UUIDs{}, true
	}
	return nil, false
}
