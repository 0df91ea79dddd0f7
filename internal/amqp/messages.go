package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"exptrack/internal/session"
)

// SchemaVersion is bumped when the message layout changes incompatibly.
const SchemaVersion = 1

// SessionEventMessage is the wire form of a session lifecycle event.
type SessionEventMessage struct {
	Version int           `json:"version"`
	Event   session.Event `json:"event"`
}

func NewSessionEventMessage(e session.Event) *SessionEventMessage {
	return &SessionEventMessage{Version: SchemaVersion, Event: e}
}

func (m *SessionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SessionEventMessageFromJSON(data []byte) (*SessionEventMessage, error) {
	var msg SessionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	if msg.Event.Kind == "" {
		return nil, errors.New("session event without kind")
	}
	return &msg, nil
}
