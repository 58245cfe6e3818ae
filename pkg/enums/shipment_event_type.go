package enums

import "fmt"

// ShipmentEventType maps to the shipment_event_type enum in Postgres.
type ShipmentEventType string

const (
	ShipmentEventCreated   ShipmentEventType = "created"
	ShipmentEventConfirmed ShipmentEventType = "confirmed"
	ShipmentEventPicked    ShipmentEventType = "picked"
	ShipmentEventPacked    ShipmentEventType = "packed"
	ShipmentEventShipped   ShipmentEventType = "shipped"
	ShipmentEventDelivered ShipmentEventType = "delivered"
	ShipmentEventCancelled ShipmentEventType = "cancelled"
	ShipmentEventDeleted   ShipmentEventType = "deleted"
)

var validShipmentEventTypes = []ShipmentEventType{
	ShipmentEventCreated,
	ShipmentEventConfirmed,
	ShipmentEventPicked,
	ShipmentEventPacked,
	ShipmentEventShipped,
	ShipmentEventDelivered,
	ShipmentEventCancelled,
	ShipmentEventDeleted,
}

// IsValid reports whether the value matches the canonical shipment event enum.
func (t ShipmentEventType) IsValid() bool {
	for _, candidate := range validShipmentEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// EventTypeForShipmentStatus maps a target status to the event recorded for
// the transition into it.
func EventTypeForShipmentStatus(status ShipmentStatus) (ShipmentEventType, error) {
	switch status {
	case ShipmentStatusConfirmed:
		return ShipmentEventConfirmed, nil
	case ShipmentStatusPicked:
		return ShipmentEventPicked, nil
	case ShipmentStatusPacked:
		return ShipmentEventPacked, nil
	case ShipmentStatusShipped:
		return ShipmentEventShipped, nil
	case ShipmentStatusDelivered:
		return ShipmentEventDelivered, nil
	case ShipmentStatusCancelled:
		return ShipmentEventCancelled, nil
	default:
		return "", fmt.Errorf("no event type for shipment status %q", status)
	}
}

// ParseShipmentEventType converts raw input into ShipmentEventType.
func ParseShipmentEventType(value string) (ShipmentEventType, error) {
	for _, candidate := range validShipmentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment event type %q", value)
}
