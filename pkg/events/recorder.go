package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	"github.com/tracelinehq/traceline-backend/pkg/errors"
	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/metrics"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

const (
	domainProduct   = "product"
	domainBOM       = "bom"
	domainInventory = "inventory"
	domainShipment  = "shipment"
)

// Recorder appends domain events inside the caller's transaction so the
// event and the state change commit or roll back together.
type Recorder struct {
	logg    *logger.Logger
	metrics *metrics.EventMetrics
}

// NewRecorder builds a Recorder. Metrics may be nil.
func NewRecorder(logg *logger.Logger, eventMetrics *metrics.EventMetrics) *Recorder {
	return &Recorder{
		logg:    logg,
		metrics: eventMetrics,
	}
}

func (r *Recorder) envelope(tc tenant.Context, data any) (json.RawMessage, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "marshal event data")
	}
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor: &ActorRef{
			UserID:         tc.ActorUserID,
			OrganizationID: tc.OrganizationID,
		},
		Data: body,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "marshal event envelope")
	}
	return payload, nil
}

func (r *Recorder) observe(ctx context.Context, domain, eventType string, start time.Time, err error) {
	if err != nil {
		r.metrics.IncFailure(domain)
		r.logg.Error(ctx, "record "+domain+" event", err)
		return
	}
	r.metrics.IncRecorded(domain, eventType)
	r.metrics.ObserveWrite(domain, time.Since(start))
}

// Product appends a product event within tx.
func (r *Recorder) Product(ctx context.Context, tx *gorm.DB, tc tenant.Context, productID uuid.UUID, eventType enums.ProductEventType, data any) (*models.ProductEvent, error) {
	start := time.Now()
	payload, err := r.envelope(tc, data)
	if err != nil {
		r.observe(ctx, domainProduct, string(eventType), start, err)
		return nil, err
	}
	event := models.ProductEvent{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		ProductID:      productID,
		EventType:      eventType,
		Payload:        payload,
		ActorUserID:    tc.ActorUserID,
	}
	if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
		wrapped := errors.Wrap(errors.CodeInternal, err, "insert product event")
		r.observe(ctx, domainProduct, string(eventType), start, wrapped)
		return nil, wrapped
	}
	r.observe(ctx, domainProduct, string(eventType), start, nil)
	return &event, nil
}

// BOM appends a BOM event within tx.
func (r *Recorder) BOM(ctx context.Context, tx *gorm.DB, tc tenant.Context, revisionID uuid.UUID, eventType enums.BOMEventType, data any) (*models.BOMEvent, error) {
	start := time.Now()
	payload, err := r.envelope(tc, data)
	if err != nil {
		r.observe(ctx, domainBOM, string(eventType), start, err)
		return nil, err
	}
	event := models.BOMEvent{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		RevisionID:     revisionID,
		EventType:      eventType,
		Payload:        payload,
		ActorUserID:    tc.ActorUserID,
	}
	if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
		wrapped := errors.Wrap(errors.CodeInternal, err, "insert bom event")
		r.observe(ctx, domainBOM, string(eventType), start, wrapped)
		return nil, wrapped
	}
	r.observe(ctx, domainBOM, string(eventType), start, nil)
	return &event, nil
}

// Inventory appends an inventory event within tx.
func (r *Recorder) Inventory(ctx context.Context, tx *gorm.DB, tc tenant.Context, productID uuid.UUID, eventType enums.InventoryTransactionType, data any) (*models.InventoryEvent, error) {
	start := time.Now()
	payload, err := r.envelope(tc, data)
	if err != nil {
		r.observe(ctx, domainInventory, string(eventType), start, err)
		return nil, err
	}
	event := models.InventoryEvent{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		ProductID:      productID,
		EventType:      eventType,
		Payload:        payload,
		ActorUserID:    tc.ActorUserID,
	}
	if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
		wrapped := errors.Wrap(errors.CodeInternal, err, "insert inventory event")
		r.observe(ctx, domainInventory, string(eventType), start, wrapped)
		return nil, wrapped
	}
	r.observe(ctx, domainInventory, string(eventType), start, nil)
	return &event, nil
}

// Shipment appends a shipment event within tx.
func (r *Recorder) Shipment(ctx context.Context, tx *gorm.DB, tc tenant.Context, shipmentID uuid.UUID, eventType enums.ShipmentEventType, data any) (*models.ShipmentEvent, error) {
	start := time.Now()
	payload, err := r.envelope(tc, data)
	if err != nil {
		r.observe(ctx, domainShipment, string(eventType), start, err)
		return nil, err
	}
	event := models.ShipmentEvent{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		ShipmentID:     shipmentID,
		EventType:      eventType,
		Payload:        payload,
		ActorUserID:    tc.ActorUserID,
	}
	if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
		wrapped := errors.Wrap(errors.CodeInternal, err, "insert shipment event")
		r.observe(ctx, domainShipment, string(eventType), start, wrapped)
		return nil, wrapped
	}
	r.observe(ctx, domainShipment, string(eventType), start, nil)
	return &event, nil
}
