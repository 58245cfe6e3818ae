package enums

import "fmt"

// ProductEventType maps to the product_event_type enum in Postgres.
type ProductEventType string

const (
	ProductEventCreated          ProductEventType = "created"
	ProductEventUpdated          ProductEventType = "updated"
	ProductEventStatusChanged    ProductEventType = "status_changed"
	ProductEventRevisionCreated  ProductEventType = "revision_created"
	ProductEventRevisionReleased ProductEventType = "revision_released"
)

var validProductEventTypes = []ProductEventType{
	ProductEventCreated,
	ProductEventUpdated,
	ProductEventStatusChanged,
	ProductEventRevisionCreated,
	ProductEventRevisionReleased,
}

// IsValid reports whether the value matches the canonical product event enum.
func (t ProductEventType) IsValid() bool {
	for _, candidate := range validProductEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseProductEventType converts raw input into ProductEventType.
func ParseProductEventType(value string) (ProductEventType, error) {
	for _, candidate := range validProductEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product event type %q", value)
}
