package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sensoragent/internal/domain"
)

// Message is the wire form of one combined record.
type Message struct {
	ID uuid.UUID `json:"id"`
	domain.AggregatedData
}

// Encode renders rec as a JSON message tagged with id.
func Encode(id uuid.UUID, rec domain.AggregatedData) ([]byte, error) {
	payload, err := json.Marshal(Message{ID: id, AggregatedData: rec})
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return payload, nil
}
