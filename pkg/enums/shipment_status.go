package enums

import "fmt"

// ShipmentStatus maps to the shipment_status enum in Postgres.
type ShipmentStatus string

const (
	ShipmentStatusDraft     ShipmentStatus = "draft"
	ShipmentStatusConfirmed ShipmentStatus = "confirmed"
	ShipmentStatusPicked    ShipmentStatus = "picked"
	ShipmentStatusPacked    ShipmentStatus = "packed"
	ShipmentStatusShipped   ShipmentStatus = "shipped"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusDraft,
	ShipmentStatusConfirmed,
	ShipmentStatusPicked,
	ShipmentStatusPacked,
	ShipmentStatusShipped,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

// shipmentStatusRank orders the forward pipeline. Cancelled has no rank.
var shipmentStatusRank = map[ShipmentStatus]int{
	ShipmentStatusDraft:     0,
	ShipmentStatusConfirmed: 1,
	ShipmentStatusPicked:    2,
	ShipmentStatusPacked:    3,
	ShipmentStatusShipped:   4,
	ShipmentStatusDelivered: 5,
}

// IsValid reports whether the value matches the canonical shipment status enum.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave this status.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusCancelled
}

// CanTransitionTo reports whether the pipeline permits moving to next.
// Forward moves advance exactly one stage; Cancelled is reachable from any
// state before Shipped.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	if next == ShipmentStatusCancelled {
		rank, ok := shipmentStatusRank[s]
		return ok && rank < shipmentStatusRank[ShipmentStatusShipped]
	}
	from, okFrom := shipmentStatusRank[s]
	to, okTo := shipmentStatusRank[next]
	return okFrom && okTo && to == from+1
}

// ParseShipmentStatus converts raw input into ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
