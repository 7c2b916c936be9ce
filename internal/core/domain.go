// Package core holds the entry model, its validation, and the money and
// date handling shared by the server and the clients.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StoreState reports whether the backing store can serve requests.
type StoreState string

const (
	StateConnected    StoreState = "connected"
	StateDisconnected StoreState = "disconnected"
)

type (
	// Entry is one recorded income (positive price) or expense (negative price).
	Entry struct {
		ID          uuid.UUID
		Name        string
		Description string
		Datetime    time.Time
		Price       decimal.Decimal
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// NewEntry holds the client-supplied fields of an entry before the store
	// assigns an identifier and timestamps.
	NewEntry struct {
		Name        string
		Description string
		Datetime    time.Time
		Price       decimal.Decimal
		// PriceSet distinguishes an explicit zero price from a missing one.
		PriceSet bool
	}
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validate checks the fields required on every stored entry.
func (n NewEntry) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if n.Datetime.IsZero() {
		return &ValidationError{Field: "datetime", Reason: "required"}
	}
	if !n.PriceSet {
		return &ValidationError{Field: "price", Reason: "required"}
	}
	return nil
}

// Build turns a validated NewEntry into a stored Entry. now is used for both
// timestamps; the datetime is normalised to UTC.
func (n NewEntry) Build(id uuid.UUID, now time.Time) (Entry, error) {
	if err := n.Validate(); err != nil {
		return Entry{}, err
	}
	now = now.UTC()
	return Entry{
		ID:          id,
		Name:        strings.TrimSpace(n.Name),
		Description: n.Description,
		Datetime:    n.Datetime.UTC(),
		Price:       n.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsIncome reports whether the entry adds to the balance.
func (e Entry) IsIncome() bool {
	return !e.Price.IsNegative()
}

type entryJSON struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Datetime    time.Time   `json:"datetime"`
	Price       json.Number `json:"price"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// MarshalJSON writes price as a JSON number rather than decimal's default string.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Datetime:    e.Datetime,
		Price:       json.Number(e.Price.String()),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	price, err := decimal.NewFromString(raw.Price.String())
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*e = Entry{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Datetime:    raw.Datetime,
		Price:       price,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}
	return nil
}

// SortByRecency orders entries by datetime descending, newest creation first on ties.
func SortByRecency(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Datetime.Equal(b.Datetime) {
			return a.Datetime.After(b.Datetime)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
