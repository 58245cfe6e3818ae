package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tracelinehq/traceline-backend/pkg/enums"
)

// ProductEvent records an immutable catalog change tied to a product.
type ProductEvent struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID              `gorm:"column:organization_id;type:uuid;not null"`
	ProductID      uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	EventType      enums.ProductEventType `gorm:"column:event_type;type:product_event_type;not null"`
	Payload        json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ActorUserID    uuid.UUID              `gorm:"column:actor_user_id;type:uuid;not null"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
