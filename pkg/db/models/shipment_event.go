package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// ShipmentEvent records an immutable workflow step tied to a shipment.
type ShipmentEvent struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID               `gorm:"column:organization_id;type:uuid;not null"`
	ShipmentID     uuid.UUID               `gorm:"column:shipment_id;type:uuid;not null"`
	EventType      enums.ShipmentEventType `gorm:"column:event_type;type:shipment_event_type;not null"`
	Payload        json.RawMessage         `gorm:"column:payload;type:jsonb"`
	ActorUserID    uuid.UUID               `gorm:"column:actor_user_id;type:uuid;not null"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
}
