package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dompet/internal/core"
)

// transactionRequest keeps each field raw so that absence, null and wrong
// types can be told apart before anything is typed.
type transactionRequest struct {
	Name        json.RawMessage `json:"name"`
	Description json.RawMessage `json:"description"`
	Datetime    json.RawMessage `json:"datetime"`
	Price       json.RawMessage `json:"price"`
}

// requestError is a rejected request, ready to be written.
type requestError struct {
	resp *ErrorResponseBuilder
}

func (e *requestError) Write(w http.ResponseWriter) { e.resp.Write(w) }

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// present reports a field that was sent, even as null.
func present(raw json.RawMessage) bool {
	return raw != nil
}

// stringField decodes a JSON string. ok is false for any other JSON type.
func stringField(raw json.RawMessage) (s string, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

// blank reports a field that is absent, null or an empty (whitespace) string.
func blank(raw json.RawMessage) bool {
	if !present(raw) || isNull(raw) {
		return true
	}
	s, ok := stringField(raw)
	return ok && strings.TrimSpace(s) == ""
}

// received echoes the sent fields, leaving absent ones out.
func (req transactionRequest) received(withDescription bool) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, 4)
	add := func(key string, raw json.RawMessage) {
		if present(raw) {
			out[key] = raw
		}
	}
	add("name", req.Name)
	if withDescription {
		add("description", req.Description)
	}
	add("datetime", req.Datetime)
	add("price", req.Price)
	return out
}

// toNewEntry validates the raw request. Zone-less datetimes are read in loc.
func (req transactionRequest) toNewEntry(loc *time.Location) (core.NewEntry, *requestError) {
	if blank(req.Name) || blank(req.Datetime) || !present(req.Price) || isNull(req.Price) {
		return core.NewEntry{}, &requestError{NewErrorResponse("Missing required fields").Received(req.received(false))}
	}

	price, err := core.CoercePrice(req.Price)
	if err != nil {
		return core.NewEntry{}, &requestError{NewErrorResponse("Invalid price format").Received(req.Price)}
	}

	name, nameOK := stringField(req.Name)
	datetime, dtOK := stringField(req.Datetime)
	description, descOK := "", true
	if present(req.Description) && !isNull(req.Description) {
		description, descOK = stringField(req.Description)
	}
	if !nameOK || !dtOK || !descOK {
		return core.NewEntry{}, &requestError{NewErrorResponse("Invalid field type").Received(req.received(true))}
	}

	when, err := core.ParseDatetime(datetime, loc)
	if err != nil {
		return core.NewEntry{}, &requestError{NewErrorResponse("Invalid datetime format").Received(req.Datetime)}
	}

	return core.NewEntry{
		Name:        name,
		Description: description,
		Datetime:    when,
		Price:       price,
		PriceSet:    true,
	}, nil
}
