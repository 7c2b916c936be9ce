// This file contains the parser for the "+Rp 60.000 Label" convention used to
// enter a signed amount and a label in a single text field, and the en-IN
// formatting used when rendering amounts back.

package core

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPriceFormat   = errors.New("enter a valid price format (e.g., +Rp 60.000 or -Rp 60.000)")
	ErrPriceValue    = errors.New("invalid price value")
	ErrLabelRequired = errors.New("enter a description after the price")

	// ErrRequiredFields is returned by clients when the text or datetime is empty.
	ErrRequiredFields = errors.New("fill in all required fields")
)

// UserMessage words client-side input errors the way the UIs show them.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrRequiredFields), errors.Is(err, ErrPriceFormat), errors.Is(err, ErrLabelRequired):
		return "Please " + err.Error()
	case errors.Is(err, ErrPriceValue):
		return "Invalid price value"
	case errors.Is(err, ErrDatetimeFormat):
		return "Invalid datetime format"
	}
	return err.Error()
}

var priceTokenRe = regexp.MustCompile(`^([+-])?Rp\s*([\d.,]+)`)

// PriceToken is the result of parsing a combined "price + label" field.
type PriceToken struct {
	Sign   string          // "+" or "-"
	Amount decimal.Decimal // always non-negative
	Label  string
}

// Price returns the signed amount.
func (t PriceToken) Price() decimal.Decimal {
	if t.Sign == "-" {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ParsePriceToken extracts a signed amount and a label from text of the form
// [+|-]Rp <amount> <label>.
//
// The amount uses '.' as thousands separator and ',' as decimal separator.
// The sign defaults to positive.
//
// Examples:
//
//	ParsePriceToken("+Rp 60.000 PC Gaming") -> 60000, "PC Gaming"
//	ParsePriceToken("-Rp 1.234,50 Snack")   -> -1234.50, "Snack"
//	ParsePriceToken("Hello world")          -> ErrPriceFormat
func ParsePriceToken(text string) (PriceToken, error) {
	m := priceTokenRe.FindStringSubmatchIndex(text)
	if m == nil {
		return PriceToken{}, ErrPriceFormat
	}

	numeric := text[m[4]:m[5]]
	numeric = strings.ReplaceAll(numeric, ".", "")
	numeric = strings.ReplaceAll(numeric, ",", ".")
	amount, err := decimal.NewFromString(numeric)
	if err != nil {
		return PriceToken{}, ErrPriceValue
	}
	if amount, err = boundPrice(amount); err != nil {
		return PriceToken{}, err
	}

	label := strings.TrimSpace(text[m[1]:])
	if label == "" {
		return PriceToken{}, ErrLabelRequired
	}

	sign := "+"
	if m[2] >= 0 {
		sign = text[m[2]:m[3]]
	}
	return PriceToken{Sign: sign, Amount: amount, Label: label}, nil
}

// FormatRupiah formats d with en-IN digit grouping (12,34,567.5): at most three
// fraction digits, trailing zeros dropped.
func FormatRupiah(d decimal.Decimal) string {
	rounded := d.Round(3)
	neg := rounded.IsNegative()
	s := rounded.Abs().String()

	intPart, fracPart, _ := strings.Cut(s, ".")
	out := groupIndian(intPart)
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		return "-" + out
	}
	return out
}

// groupIndian inserts separators after the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(append(groups, tail), ",")
}

// FormatDatetime renders t in loc the way en-IN locales do: "2/1/2006, 3:04:05 pm".
func FormatDatetime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2/1/2006, 3:04:05 pm")
}

// CoercePrice converts a raw JSON price into a decimal. JSON numbers and
// numeric strings (surrounding whitespace and exponents allowed) are accepted;
// empty strings, booleans, null, objects, arrays and non-finite spellings are not.
func CoercePrice(raw []byte) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return decimal.Zero, ErrPriceValue
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return decimal.Zero, ErrPriceValue
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return decimal.Zero, ErrPriceValue
		}
	} else if s[0] != '-' && (s[0] < '0' || s[0] > '9') {
		return decimal.Zero, ErrPriceValue
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrPriceValue
	}
	return boundPrice(d)
}

// Prices must fit a JSON number: beyond float64 range is rejected, below it
// collapses to zero.
const (
	maxPriceMagnitude = 308
	minPriceMagnitude = -324
)

func boundPrice(d decimal.Decimal) (decimal.Decimal, error) {
	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return decimal.Zero, nil
	}
	digits := len(coef.Text(10))
	if coef.Sign() < 0 {
		digits--
	}
	magnitude := int64(digits) + int64(d.Exponent()) - 1
	switch {
	case magnitude > maxPriceMagnitude:
		return decimal.Zero, ErrPriceValue
	case magnitude < minPriceMagnitude:
		return decimal.Zero, nil
	}
	if f, _ := d.Float64(); math.IsInf(f, 0) {
		return decimal.Zero, ErrPriceValue
	}
	return d, nil
}
