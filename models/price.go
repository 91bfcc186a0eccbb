package models

import (
	"encoding/json"
	"fmt"
)

// bookTickerEvent mirrors the bookTicker stream schema.
type bookTickerEvent struct {
	UpdateID int64  `json:"u"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// PriceUpdate is the generalised best-price tick: one bid and one ask level
// tagged with the stream's update id.
type PriceUpdate struct {
	ID  int64
	Bid InlineOrder
	Ask InlineOrder
}

// UpdateID reports the sequence id used for admission balancing.
func (u PriceUpdate) UpdateID() int64 { return u.ID }

// DecodePriceUpdate unwraps a multiplexed stream frame into a typed
// best-price update.
func DecodePriceUpdate(payload []byte) (PriceUpdate, error) {
	var env streamEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return PriceUpdate{}, fmt.Errorf("price envelope: %w", err)
	}
	var tick bookTickerEvent
	if err := json.Unmarshal(env.Data, &tick); err != nil {
		return PriceUpdate{}, fmt.Errorf("book ticker: %w", err)
	}
	return PriceUpdate{
		ID:  tick.UpdateID,
		Bid: InlineOrder{Price: tick.BidPrice, Qty: tick.BidQty},
		Ask: InlineOrder{Price: tick.AskPrice, Qty: tick.AskQty},
	}, nil
}
