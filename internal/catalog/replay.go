package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	"github.com/tracelinehq/traceline-backend/pkg/events"
)

// ProductView is the state reconstructed by folding a product's event log.
type ProductView struct {
	ProductID         uuid.UUID
	SKU               string
	Name              string
	Description       *string
	Status            enums.ProductStatus
	CurrentRevisionID *uuid.UUID
	RevisionNumbers   []string
}

// Replay folds an ordered product event log into the state it implies.
// Events must be sorted oldest first.
func Replay(eventRows []models.ProductEvent) (*ProductView, error) {
	if len(eventRows) == 0 {
		return nil, fmt.Errorf("no events to replay")
	}

	view := &ProductView{ProductID: eventRows[0].ProductID}
	for _, row := range eventRows {
		if row.ProductID != view.ProductID {
			return nil, fmt.Errorf("event %s belongs to a different product", row.ID)
		}
		envelope, err := events.DecodeEnvelope(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", row.ID, err)
		}

		switch row.EventType {
		case enums.ProductEventCreated:
			var data productCreatedData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode created event %s: %w", row.ID, err)
			}
			view.SKU = data.SKU
			view.Name = data.Name
			view.Status = data.Status

		case enums.ProductEventUpdated:
			var data productUpdatedData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode updated event %s: %w", row.ID, err)
			}
			if data.Name != nil {
				view.Name = *data.Name
			}
			if data.Description != nil {
				view.Description = data.Description
			}

		case enums.ProductEventStatusChanged:
			var data productStatusChangedData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode status event %s: %w", row.ID, err)
			}
			view.Status = data.To

		case enums.ProductEventRevisionCreated:
			var data revisionCreatedData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode revision event %s: %w", row.ID, err)
			}
			view.RevisionNumbers = append(view.RevisionNumbers, data.RevisionNumber)

		case enums.ProductEventRevisionReleased:
			var data revisionReleasedData
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("decode release event %s: %w", row.ID, err)
			}
			if data.Promoted {
				revisionID := data.RevisionID
				view.CurrentRevisionID = &revisionID
			}

		default:
			return nil, fmt.Errorf("unknown product event type %q", row.EventType)
		}
	}
	return view, nil
}
