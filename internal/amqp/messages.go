package amqp

import (
	"encoding/json"
	"time"
)

// UnlockMessage announces a newly unlocked achievement. The notifier
// worker consumes these; the tracker core never waits on them.
type UnlockMessage struct {
	RuleID     string    `json:"rule_id"`
	Name       string    `json:"name"`
	Icon       string    `json:"icon"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// NewUnlockMessage creates an unlock message stamped with the current time.
func NewUnlockMessage(ruleID, name, icon string) *UnlockMessage {
	return &UnlockMessage{
		RuleID:     ruleID,
		Name:       name,
		Icon:       icon,
		UnlockedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *UnlockMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// UnlockMessageFromJSON creates a message from JSON bytes
func UnlockMessageFromJSON(data []byte) (*UnlockMessage, error) {
	var msg UnlockMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
