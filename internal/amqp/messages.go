package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
)

// EntryCreatedMessage is published after an entry is stored. It carries the
// full snapshot so consumers never need to read the store.
type EntryCreatedMessage struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Datetime    time.Time   `json:"datetime"`
	Price       json.Number `json:"price"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewEntryCreatedMessage snapshots e.
func NewEntryCreatedMessage(e core.Entry) *EntryCreatedMessage {
	return &EntryCreatedMessage{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Datetime:    e.Datetime,
		Price:       json.Number(e.Price.String()),
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryCreatedMessageFromJSON decodes a message body.
func EntryCreatedMessageFromJSON(data []byte) (*EntryCreatedMessage, error) {
	var msg EntryCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
