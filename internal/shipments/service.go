package shipments

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/internal/inventory"
	"github.com/tracelinehq/traceline-backend/pkg/db"
	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
	"github.com/tracelinehq/traceline-backend/pkg/events"
	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
	"github.com/tracelinehq/traceline-backend/pkg/validate"
)

// Service exposes the shipment workflow. Status moves forward one stage at
// a time; stock effects commit in the same transaction as the transition.
type Service interface {
	CreateShipment(ctx context.Context, tc tenant.Context, input CreateShipmentInput) (*models.Shipment, error)
	Confirm(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	Pick(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID, input PickInput) (*models.Shipment, error)
	Pack(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID, input PackInput) (*models.Shipment, error)
	Ship(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID, input ShipInput) (*models.Shipment, error)
	Deliver(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	Cancel(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	DeleteShipment(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) error
	GetShipment(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	ListShipments(ctx context.Context, tc tenant.Context, input ListShipmentsInput) (*ShipmentListResult, error)
	ListEvents(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) ([]models.ShipmentEvent, error)
}

type stockApplier interface {
	ApplyTx(ctx context.Context, tx *gorm.DB, tc tenant.Context, input inventory.ApplyInput) (*models.InventoryTransaction, error)
}

type service struct {
	repo     Repository
	dbClient *db.Client
	recorder *events.Recorder
	stock    stockApplier
	logg     *logger.Logger
}

// NewService constructs a shipment service instance.
func NewService(repo Repository, dbClient *db.Client, recorder *events.Recorder, stock stockApplier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipment repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock applier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		recorder: recorder,
		stock:    stock,
		logg:     logg,
	}, nil
}

func (s *service) CreateShipment(ctx context.Context, tc tenant.Context, input CreateShipmentInput) (*models.Shipment, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]bool{}
	for _, line := range input.Lines {
		if seen[line.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product on shipment")
		}
		seen[line.ProductID] = true
	}

	shipment := &models.Shipment{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		ShipmentNumber: input.ShipmentNumber,
		Status:         enums.ShipmentStatusDraft,
		Origin:         input.Origin,
		Destination:    input.Destination,
		Carrier:        input.Carrier,
		Notes:          input.Notes,
		CreatedBy:      tc.ActorUserID,
	}
	for _, line := range input.Lines {
		shipment.Lines = append(shipment.Lines, models.ShipmentLine{
			ID:             uuid.New(),
			OrganizationID: tc.OrganizationID,
			ShipmentID:     shipment.ID,
			ProductID:      line.ProductID,
			PlannedQty:     line.PlannedQty,
		})
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		for _, line := range input.Lines {
			if _, err := txRepo.FindProductByID(ctx, tc.OrganizationID, line.ProductID); err != nil {
				return notFoundOrInternal(err, "product")
			}
		}

		if err := txRepo.CreateShipment(ctx, shipment); err != nil {
			if db.IsUniqueViolation(err, "idx_shipments_org_number") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("shipment number %q already exists", input.ShipmentNumber))
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert shipment")
		}

		lineData := make([]shipmentLineData, 0, len(shipment.Lines))
		for _, line := range shipment.Lines {
			lineData = append(lineData, shipmentLineData{
				LineID:     line.ID,
				ProductID:  line.ProductID,
				PlannedQty: line.PlannedQty,
			})
		}
		_, err := s.recorder.Shipment(ctx, tx, tc, shipment.ID, enums.ShipmentEventCreated, shipmentCreatedData{
			ShipmentNumber: shipment.ShipmentNumber,
			Origin:         shipment.Origin,
			Destination:    shipment.Destination,
			Lines:          lineData,
		})
		return err
	}); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrganizationID(ctx, tc.OrganizationID.String())
	s.logg.Info(s.logg.WithField(ctx, "shipment_id", shipment.ID.String()), "shipment created")
	return shipment, nil
}

// Confirm reserves planned quantities at the origin and locks the plan in.
func (s *service) Confirm(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	return s.transition(ctx, tc, shipmentID, enums.ShipmentStatusConfirmed, map[string]any{
		"confirmed_at": time.Now().UTC(),
	}, nil, func(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
		reference := shipmentReference(shipment)
		for _, line := range shipment.Lines {
			if _, err := s.stock.ApplyTx(ctx, tx, tc, inventory.ApplyInput{
				ProductID: line.ProductID,
				Location:  shipment.Origin,
				Type:      enums.InventoryTransactionReservation,
				Quantity:  line.PlannedQty,
				Reference: reference,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Pick records picked quantities. Lines without an override pick in full.
func (s *service) Pick(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID, input PickInput) (*models.Shipment, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	return s.transition(ctx, tc, shipmentID, enums.ShipmentStatusPicked, nil, nil,
		func(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
			txRepo := s.repo.WithTx(tx)
			overrides, err := lineOverrides(shipment, input.Lines)
			if err != nil {
				return err
			}
			for i := range shipment.Lines {
				line := &shipment.Lines[i]
				picked := line.PlannedQty
				if quantity, ok := overrides[line.ID]; ok {
					picked = quantity
				}
				if picked > line.PlannedQty {
					return pkgerrors.New(pkgerrors.CodeValidation,
						fmt.Sprintf("picked %d exceeds planned %d", picked, line.PlannedQty))
				}
				line.PickedQty = picked
				if err := txRepo.SaveLine(ctx, line); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shipment line")
				}
			}
			return nil
		})
}

// Pack records packed quantities. Lines without an override pack everything picked.
func (s *service) Pack(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID, input PackInput) (*models.Shipment, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	return s.transition(ctx, tc, shipmentID, enums.ShipmentStatusPacked, nil, nil,
		func(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
			txRepo := s.repo.WithTx(tx)
			overrides, err := lineOverrides(shipment, input.Lines)
			if err != nil {
				return err
			}
			for i := range shipment.Lines {
				line := &shipment.Lines[i]
				packed := line.PickedQty
				if quantity, ok := overrides[line.ID]; ok {
					packed = quantity
				}
				if packed > line.PickedQty {
					return pkgerrors.New(pkgerrors.CodeValidation,
						fmt.Sprintf("packed %d exceeds picked %d", packed, line.PickedQty))
				}
				line.PackedQty = packed
				if err := txRepo.SaveLine(ctx, line); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shipment line")
				}
			}
			return nil
		})
}

// Ship releases the plan's reservations, issues packed stock, and hands the
// shipment to the carrier.
func (s *service) Ship(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID, input ShipInput) (*models.Shipment, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	updates := map[string]any{"shipped_at": time.Now().UTC()}
	if input.TrackingNumber != nil {
		updates["tracking_number"] = *input.TrackingNumber
	}
	return s.transition(ctx, tc, shipmentID, enums.ShipmentStatusShipped, updates, input.TrackingNumber,
		func(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
			reference := shipmentReference(shipment)
			for _, line := range shipment.Lines {
				if _, err := s.stock.ApplyTx(ctx, tx, tc, inventory.ApplyInput{
					ProductID: line.ProductID,
					Location:  shipment.Origin,
					Type:      enums.InventoryTransactionReleaseReservation,
					Quantity:  line.PlannedQty,
					Reference: reference,
				}); err != nil {
					return err
				}
				if line.PackedQty == 0 {
					continue
				}
				if _, err := s.stock.ApplyTx(ctx, tx, tc, inventory.ApplyInput{
					ProductID: line.ProductID,
					Location:  shipment.Origin,
					Type:      enums.InventoryTransactionIssue,
					Quantity:  line.PackedQty,
					Reference: reference,
				}); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *service) Deliver(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	return s.transition(ctx, tc, shipmentID, enums.ShipmentStatusDelivered, map[string]any{
		"delivered_at": time.Now().UTC(),
	}, nil, nil)
}

// Cancel aborts the workflow before the goods leave. Reservations taken at
// confirmation are handed back.
func (s *service) Cancel(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	return s.transition(ctx, tc, shipmentID, enums.ShipmentStatusCancelled, map[string]any{
		"cancelled_at": time.Now().UTC(),
	}, nil, func(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
		if shipment.Status == enums.ShipmentStatusDraft {
			return nil
		}
		reference := shipmentReference(shipment)
		for _, line := range shipment.Lines {
			if _, err := s.stock.ApplyTx(ctx, tx, tc, inventory.ApplyInput{
				ProductID: line.ProductID,
				Location:  shipment.Origin,
				Type:      enums.InventoryTransactionReleaseReservation,
				Quantity:  line.PlannedQty,
				Reference: reference,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// transition loads the shipment, runs the side effects, then advances the
// status with a guarded update so concurrent transitions cannot both win.
func (s *service) transition(
	ctx context.Context,
	tc tenant.Context,
	shipmentID uuid.UUID,
	to enums.ShipmentStatus,
	updates map[string]any,
	trackingNumber *string,
	sideEffects func(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error,
) (*models.Shipment, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	var shipment *models.Shipment
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := s.loadShipment(ctx, txRepo, tc, shipmentID)
		if err != nil {
			return err
		}
		if !loaded.Status.CanTransitionTo(to) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move shipment from %s to %s", loaded.Status, to))
		}

		if sideEffects != nil {
			if err := sideEffects(ctx, tx, loaded); err != nil {
				return err
			}
		}

		ok, err := txRepo.UpdateStatusCAS(ctx, loaded.ID, loaded.Status, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shipment status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "shipment was modified concurrently")
		}

		eventType, err := enums.EventTypeForShipmentStatus(to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve event type")
		}
		if _, err := s.recorder.Shipment(ctx, tx, tc, loaded.ID, eventType, shipmentTransitionData{
			From:           loaded.Status,
			To:             to,
			TrackingNumber: trackingNumber,
		}); err != nil {
			return err
		}

		loaded.Status = to
		shipment = loaded
		return nil
	}); err != nil {
		return nil, err
	}
	return shipment, nil
}

// DeleteShipment removes a draft or cancelled shipment and its lines. The
// deletion itself is recorded in the event log.
func (s *service) DeleteShipment(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return err
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := s.loadShipment(ctx, txRepo, tc, shipmentID)
		if err != nil {
			return err
		}
		if loaded.Status != enums.ShipmentStatusDraft && loaded.Status != enums.ShipmentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only draft or cancelled shipments can be deleted")
		}

		if err := txRepo.DeleteLines(ctx, tc.OrganizationID, loaded.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete shipment lines")
		}
		if err := txRepo.DeleteShipment(ctx, tc.OrganizationID, loaded.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete shipment")
		}

		_, err = s.recorder.Shipment(ctx, tx, tc, loaded.ID, enums.ShipmentEventDeleted, shipmentDeletedData{
			ShipmentNumber: loaded.ShipmentNumber,
			Status:         loaded.Status,
		})
		return err
	})
}

func (s *service) GetShipment(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return s.loadShipment(ctx, s.repo, tc, shipmentID)
}

func (s *service) ListShipments(ctx context.Context, tc tenant.Context, input ListShipmentsInput) (*ShipmentListResult, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid shipment status %q", *input.Status))
	}
	result, err := s.repo.ListShipments(ctx, tc.OrganizationID, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shipments")
	}
	return result, nil
}

func (s *service) ListEvents(ctx context.Context, tc tenant.Context, shipmentID uuid.UUID) ([]models.ShipmentEvent, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	eventRows, err := s.repo.ListEvents(ctx, tc.OrganizationID, shipmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shipment events")
	}
	if len(eventRows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
	}
	return eventRows, nil
}

func (s *service) loadShipment(ctx context.Context, repo Repository, tc tenant.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	shipment, err := repo.FindShipmentByID(ctx, tc.OrganizationID, shipmentID)
	if err != nil {
		return nil, notFoundOrInternal(err, "shipment")
	}
	if err := tenant.Guard(tc, shipment.OrganizationID); err != nil {
		return nil, err
	}
	return shipment, nil
}

func lineOverrides(shipment *models.Shipment, inputs []LineQuantityInput) (map[uuid.UUID]int64, error) {
	known := map[uuid.UUID]bool{}
	for _, line := range shipment.Lines {
		known[line.ID] = true
	}
	overrides := map[uuid.UUID]int64{}
	for _, input := range inputs {
		if !known[input.LineID] {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment line not found")
		}
		overrides[input.LineID] = input.Quantity
	}
	return overrides, nil
}

func shipmentReference(shipment *models.Shipment) *string {
	reference := "shipment:" + shipment.ShipmentNumber
	return &reference
}

func notFoundOrInternal(err error, resource string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+resource)
}
