package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Amount is a price as read back from a listing. A value that is not numeric
// decodes as invalid instead of failing the whole listing, and counts as zero.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// AmountOf wraps a known decimal.
func AmountOf(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// UnmarshalJSON accepts JSON numbers and numeric strings. It never fails.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	var raw string
	switch x := v.(type) {
	case json.Number:
		raw = x.String()
	case string:
		raw = strings.TrimSpace(x)
	default:
		return nil
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		a.Value, a.Valid = d, true
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// Decimal returns the value, or zero when invalid.
func (a Amount) Decimal() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// Balance sums amounts, counting invalid ones as zero.
func Balance(amounts []Amount) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Decimal())
	}
	return total
}

// LedgerItem is an entry as seen by a renderer.
type LedgerItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Datetime    time.Time `json:"datetime"`
	Price       Amount    `json:"price"`
}

// ItemFromEntry converts a stored entry for rendering.
func ItemFromEntry(e Entry) LedgerItem {
	return LedgerItem{
		ID:          e.ID.String(),
		Name:        e.Name,
		Description: e.Description,
		Datetime:    e.Datetime,
		Price:       AmountOf(e.Price),
	}
}

// LedgerRow is one formatted ledger line.
type LedgerRow struct {
	ID          string
	Name        string
	Description string
	Amount      string // "Rp <abs amount>"
	When        string
	Expense     bool
}

// Ledger is the formatted view shared by the terminal and web renderers.
type Ledger struct {
	Balance         string // "Rp <amount>", signed
	BalanceNegative bool
	Rows            []LedgerRow
}

// BuildLedger formats items in the order given, rendering dates in loc.
func BuildLedger(items []LedgerItem, loc *time.Location) Ledger {
	amounts := make([]Amount, 0, len(items))
	rows := make([]LedgerRow, 0, len(items))
	for _, it := range items {
		amounts = append(amounts, it.Price)
		price := it.Price.Decimal()
		rows = append(rows, LedgerRow{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Amount:      "Rp " + FormatRupiah(price.Abs()),
			When:        FormatDatetime(it.Datetime, loc),
			Expense:     price.IsNegative(),
		})
	}
	total := Balance(amounts)
	return Ledger{
		Balance:         "Rp " + FormatRupiah(total),
		BalanceNegative: total.IsNegative(),
		Rows:            rows,
	}
}
