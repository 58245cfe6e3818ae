package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an actor inside an organization. Events reference users for audit.
type User struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	Email          string    `gorm:"column:email;not null"`
	FullName       string    `gorm:"column:full_name;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
