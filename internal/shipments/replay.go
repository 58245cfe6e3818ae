package shipments

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	"github.com/tracelinehq/traceline-backend/pkg/events"
)

// ShipmentView is the state reconstructed by folding a shipment's event log.
type ShipmentView struct {
	ShipmentID     uuid.UUID
	ShipmentNumber string
	Status         enums.ShipmentStatus
	TrackingNumber *string
	Deleted        bool
}

// Replay folds an ordered shipment event log into the state it implies.
// Events must be sorted oldest first.
func Replay(eventRows []models.ShipmentEvent) (*ShipmentView, error) {
	if len(eventRows) == 0 {
		return nil, fmt.Errorf("no events to replay")
	}

	view := &ShipmentView{ShipmentID: eventRows[0].ShipmentID}
	for _, row := range eventRows {
		if row.ShipmentID != view.ShipmentID {
			return nil, fmt.Errorf("event %s belongs to a different shipment", row.ID)
		}
		envelope, err := events.DecodeEnvelope(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", row.ID, err)
		}

		switch row.EventType {
		case enums.ShipmentEventCreated:
			var data shipmentCreatedData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode created event %s: %w", row.ID, err)
			}
			view.ShipmentNumber = data.ShipmentNumber
			view.Status = enums.ShipmentStatusDraft

		case enums.ShipmentEventDeleted:
			var data shipmentDeletedData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode deleted event %s: %w", row.ID, err)
			}
			view.Deleted = true

		default:
			var data shipmentTransitionData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode transition event %s: %w", row.ID, err)
			}
			if !view.Status.CanTransitionTo(data.To) {
				return nil, fmt.Errorf("event log contains transition %s -> %s", view.Status, data.To)
			}
			view.Status = data.To
			if data.TrackingNumber != nil {
				view.TrackingNumber = data.TrackingNumber
			}
		}
	}
	return view, nil
}
