package book

import (
	"sort"

	"github.com/shopspring/decimal"

	"bookflow/models"
)

// Side selects the price ordering of a table: bids rank highest price first,
// asks rank lowest price first.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

type level struct {
	price decimal.Decimal
	qty   string
}

// Table holds one side of an order book as a price level -> quantity map.
// Keys are the raw price strings from the wire; ordering uses the parsed
// numeric value, never the lexical form, because Binance does not guarantee
// fixed-width price text.
type Table struct {
	side   Side
	levels map[string]level
}

// NewTable builds a table from snapshot or update rows. Later rows for the
// same price overwrite earlier ones.
func NewTable(side Side, orders []models.InlineOrder) *Table {
	t := &Table{side: side, levels: make(map[string]level, len(orders))}
	for _, o := range orders {
		t.UpdateLevel(o)
	}
	return t
}

// UpdateLevel inserts, overwrites or removes one price level. A quantity
// whose digits are all zero removes the level; removing an absent level is a
// no-op.
func (t *Table) UpdateLevel(o models.InlineOrder) {
	if zeroQty(o.Qty) {
		delete(t.levels, o.Price)
		return
	}
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		// unparsable price text has no ordering key, skip the level
		return
	}
	t.levels[o.Price] = level{price: price, qty: o.Qty}
}

// Len reports the number of populated levels.
func (t *Table) Len() int { return len(t.levels) }

// Top returns the best n levels, ordered best price first for this side.
func (t *Table) Top(n int) []models.InlineOrder {
	keys := make([]string, 0, len(t.levels))
	for k := range t.levels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a := t.levels[keys[i]].price
		b := t.levels[keys[j]].price
		if t.side == Bid {
			return a.GreaterThan(b)
		}
		return a.LessThan(b)
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	top := make([]models.InlineOrder, 0, len(keys))
	for _, k := range keys {
		top = append(top, models.InlineOrder{Price: k, Qty: t.levels[k].qty})
	}
	return top
}

// zeroQty reports whether the quantity text represents zero, i.e. contains
// no digit other than '0'. Matches the exchange's "0.00000000" removal
// convention without parsing.
func zeroQty(qty string) bool {
	for _, c := range qty {
		if c != '0' && c != '.' {
			return false
		}
	}
	return true
}
