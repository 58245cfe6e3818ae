package enums

import "fmt"

// BOMEventType maps to the bom_event_type enum in Postgres.
type BOMEventType string

const (
	BOMEventLineAdded   BOMEventType = "line_added"
	BOMEventLineUpdated BOMEventType = "line_updated"
	BOMEventLineRemoved BOMEventType = "line_removed"
)

var validBOMEventTypes = []BOMEventType{
	BOMEventLineAdded,
	BOMEventLineUpdated,
	BOMEventLineRemoved,
}

// IsValid reports whether the value matches the canonical BOM event enum.
func (t BOMEventType) IsValid() bool {
	for _, candidate := range validBOMEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseBOMEventType converts raw input into BOMEventType.
func ParseBOMEventType(value string) (BOMEventType, error) {
	for _, candidate := range validBOMEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid BOM event type %q", value)
}
