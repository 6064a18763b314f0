package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntriesAppendedMessage announces a batch appended to the remote document.
type EntriesAppendedMessage struct {
	ID           string    `json:"id"`
	Backend      string    `json:"backend"`
	DocumentPath string    `json:"document_path"`
	EntryCount   int       `json:"entry_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEntriesAppendedMessage creates an event with a fresh id
func NewEntriesAppendedMessage(backend, documentPath string, entryCount int) *EntriesAppendedMessage {
	return &EntriesAppendedMessage{
		ID:           uuid.NewString(),
		Backend:      backend,
		DocumentPath: documentPath,
		EntryCount:   entryCount,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntriesAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntriesAppendedMessageFromJSON creates a message from JSON bytes
func EntriesAppendedMessageFromJSON(data []byte) (*EntriesAppendedMessage, error) {
	var msg EntriesAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
