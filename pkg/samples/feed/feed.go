// Package feed moves raw price observations from the ingestor into the
// sample store. Two transports are provided: an HTTP poller and a WebSocket
// stream. Both may run at once; the store's freshness rule keeps the newer
// observation whichever transport delivers it first.
package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-attestor/pkg/samples"
)

// Feed is one transport pushing observations into the sample store.
type Feed interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
}

// sampleMessage is the ingestor's wire form of one observation. The same
// shape is served by the poll endpoint and pushed over the stream.
type sampleMessage struct {
	Symbol     string          `json:"symbol"`
	Source     string          `json:"source"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
	Sequence   uint64          `json:"sequence,omitempty"`
}

func (m sampleMessage) toSample() samples.PriceSample {
	return samples.PriceSample{
		Symbol:     m.Symbol,
		Source:     m.Source,
		Price:      m.Price,
		ObservedAt: m.ObservedAt,
		Sequence:   m.Sequence,
	}
}
