package models

import (
	"encoding/json"
	"fmt"
)

// InlineOrder is a single price level as Binance sends it: a
// ["price","qty"] pair of decimal strings. The text is kept verbatim so no
// precision is lost at the wire boundary.
type InlineOrder struct {
	Price string
	Qty   string
}

// UnmarshalJSON decodes the two-element array form used by both the REST
// snapshot and the depth stream.
func (o *InlineOrder) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("inline order: %w", err)
	}
	if len(pair) < 2 {
		return fmt.Errorf("inline order: expected [price, qty], got %d elements", len(pair))
	}
	o.Price = pair[0]
	o.Qty = pair[1]
	return nil
}

func (o InlineOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{o.Price, o.Qty})
}

// DepthSnapshot is the REST bootstrap state for one symbol.
type DepthSnapshot struct {
	LastUpdateID int64         `json:"lastUpdateId"`
	Bids         []InlineOrder `json:"bids"`
	Asks         []InlineOrder `json:"asks"`
}

// DepthUpdate is an incremental diff-depth event. Field names mirror the
// Binance stream schema exactly.
type DepthUpdate struct {
	FirstUpdateID int64         `json:"U"`
	FinalUpdateID int64         `json:"u"`
	Bids          []InlineOrder `json:"b"`
	Asks          []InlineOrder `json:"a"`
}

// UpdateID reports the sequence id used for admission balancing.
func (u DepthUpdate) UpdateID() int64 { return u.FinalUpdateID }

// BookTop is the display copy of an order book's best levels, detached from
// the live book. Both sides are ordered best price first and capped.
type BookTop struct {
	Bids []InlineOrder `json:"bids"`
	Asks []InlineOrder `json:"asks"`
}

// streamEnvelope wraps every message on a multiplexed /stream connection.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// DecodeDepthUpdate unwraps a multiplexed stream frame into a typed depth
// update.
func DecodeDepthUpdate(payload []byte) (DepthUpdate, error) {
	var env streamEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return DepthUpdate{}, fmt.Errorf("depth envelope: %w", err)
	}
	var update DepthUpdate
	if err := json.Unmarshal(env.Data, &update); err != nil {
		return DepthUpdate{}, fmt.Errorf("depth update: %w", err)
	}
	return update, nil
}
