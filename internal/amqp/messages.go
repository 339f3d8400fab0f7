package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"costoflife/internal/core"

	"github.com/google/uuid"
)

// TransactionRecordedMessage announces a newly stored transaction. It only
// carries the fingerprint; consumers load the transaction from storage.
type TransactionRecordedMessage struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(fp core.Fingerprint) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		ID:          uuid.NewString(),
		Fingerprint: fp.String(),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionFingerprint decodes the fingerprint carried by the message.
func (m *TransactionRecordedMessage) TransactionFingerprint() (core.Fingerprint, error) {
	return core.ParseFingerprint(m.Fingerprint)
}

// TransactionRecordedMessageFromJSON decodes and checks a message body.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.TransactionFingerprint(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}
