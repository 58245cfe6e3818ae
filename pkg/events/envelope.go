package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is bumped when the envelope shape changes.
const EnvelopeVersion = 1

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID         uuid.UUID `json:"userId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

// PayloadEnvelope is the stable payload structure stored in the event tables.
// Data holds the domain-specific body; the envelope fields never change
// meaning across versions.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload back into its envelope.
func DecodeEnvelope(payload json.RawMessage) (*PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}
