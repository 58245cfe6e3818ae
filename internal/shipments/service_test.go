package shipments

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/internal/inventory"
	"github.com/tracelinehq/traceline-backend/pkg/db"
	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
	"github.com/tracelinehq/traceline-backend/pkg/events"
	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

func setupShipmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  status TEXT NOT NULL DEFAULT 'development',
  current_revision_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (organization_id, sku)
);`, `
CREATE TABLE IF NOT EXISTS inventory_balances (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  location TEXT NOT NULL,
  on_hand INTEGER NOT NULL DEFAULT 0,
  reserved INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 0,
  last_transaction_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (organization_id, product_id, location)
);`, `
CREATE TABLE IF NOT EXISTS inventory_transactions (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  location TEXT NOT NULL,
  type TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  reference TEXT,
  actor_user_id TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS inventory_events (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  payload TEXT,
  actor_user_id TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  shipment_number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  origin TEXT NOT NULL,
  destination TEXT NOT NULL,
  carrier TEXT,
  tracking_number TEXT,
  notes TEXT,
  created_by TEXT NOT NULL,
  confirmed_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (organization_id, shipment_number)
);`, `
CREATE TABLE IF NOT EXISTS shipment_lines (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  shipment_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  planned_qty INTEGER NOT NULL,
  picked_qty INTEGER NOT NULL DEFAULT 0,
  packed_qty INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (shipment_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS shipment_events (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  shipment_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  payload TEXT,
  actor_user_id TEXT NOT NULL,
  created_at DATETIME
);`}
	for _, statement := range statements {
		require.NoError(t, conn.Exec(statement).Error)
	}
	return conn
}

func newShipmentService(t *testing.T) (Service, inventory.Service, *gorm.DB) {
	t.Helper()

	conn := setupShipmentTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "shipments-test", Output: io.Discard})
	recorder := events.NewRecorder(logg, nil)
	dbClient := db.NewFromConn(conn)

	stock, err := inventory.NewService(inventory.NewRepository(conn), dbClient, recorder, logg, 5)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), dbClient, recorder, stock, logg)
	require.NoError(t, err)
	return svc, stock, conn
}

func newTenant() tenant.Context {
	return tenant.Context{OrganizationID: uuid.New(), ActorUserID: uuid.New()}
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, tc tenant.Context) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		SKU:            fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:           "Widget",
		Status:         enums.ProductStatusActive,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func mustReceipt(t *testing.T, stock inventory.Service, tc tenant.Context, productID uuid.UUID, location string, quantity int64) {
	t.Helper()
	_, err := stock.Receipt(context.Background(), tc, inventory.MovementInput{
		ProductID: productID,
		Location:  location,
		Quantity:  quantity,
	})
	require.NoError(t, err)
}

func mustBalance(t *testing.T, conn *gorm.DB, tc tenant.Context, productID uuid.UUID, location string) *models.InventoryBalance {
	t.Helper()
	var balance models.InventoryBalance
	err := conn.Where("organization_id = ? AND product_id = ? AND location = ?",
		tc.OrganizationID, productID, location).First(&balance).Error
	require.NoError(t, err)
	return &balance
}

func shipmentInput(productID uuid.UUID, planned int64) CreateShipmentInput {
	return CreateShipmentInput{
		ShipmentNumber: fmt.Sprintf("SHP-%s", uuid.NewString()[:8]),
		Origin:         "WH-1",
		Destination:    "Customer Site",
		Lines: []CreateShipmentLineInput{
			{ProductID: productID, PlannedQty: planned},
		},
	}
}

func TestShipmentFullPipeline(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 100)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusDraft, shipment.Status)

	shipment, err = svc.Confirm(ctx, tc, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusConfirmed, shipment.Status)

	balance := mustBalance(t, conn, tc, product.ID, "WH-1")
	assert.Equal(t, int64(100), balance.OnHand)
	assert.Equal(t, int64(10), balance.Reserved)

	shipment, err = svc.Pick(ctx, tc, shipment.ID, PickInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusPicked, shipment.Status)

	shipment, err = svc.Pack(ctx, tc, shipment.ID, PackInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusPacked, shipment.Status)

	tracking := "1Z999"
	shipment, err = svc.Ship(ctx, tc, shipment.ID, ShipInput{TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusShipped, shipment.Status)

	balance = mustBalance(t, conn, tc, product.ID, "WH-1")
	assert.Equal(t, int64(90), balance.OnHand)
	assert.Equal(t, int64(0), balance.Reserved)

	var stored models.Shipment
	require.NoError(t, conn.Where("id = ?", shipment.ID).First(&stored).Error)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, tracking, *stored.TrackingNumber)
	assert.NotNil(t, stored.ShippedAt)

	shipment, err = svc.Deliver(ctx, tc, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusDelivered, shipment.Status)

	eventRows, err := svc.ListEvents(ctx, tc, shipment.ID)
	require.NoError(t, err)
	require.Len(t, eventRows, 6)
	assert.Equal(t, enums.ShipmentEventCreated, eventRows[0].EventType)
	assert.Equal(t, enums.ShipmentEventDelivered, eventRows[5].EventType)

	view, err := Replay(eventRows)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusDelivered, view.Status)
	assert.Equal(t, shipment.ShipmentNumber, view.ShipmentNumber)
	require.NotNil(t, view.TrackingNumber)
	assert.Equal(t, tracking, *view.TrackingNumber)
	assert.False(t, view.Deleted)
}

func TestConfirmInsufficientStockRollsBack(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 5)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 10))
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	loaded, err := svc.GetShipment(ctx, tc, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusDraft, loaded.Status)

	balance := mustBalance(t, conn, tc, product.ID, "WH-1")
	assert.Equal(t, int64(0), balance.Reserved)

	eventRows, err := svc.ListEvents(ctx, tc, shipment.ID)
	require.NoError(t, err)
	assert.Len(t, eventRows, 1)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 50)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 10))
	require.NoError(t, err)

	// Skipping stages is not allowed.
	_, err = svc.Deliver(ctx, tc, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))

	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestCancelReleasesReservations(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 50)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 10))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.NoError(t, err)

	balance := mustBalance(t, conn, tc, product.ID, "WH-1")
	assert.Equal(t, int64(10), balance.Reserved)

	cancelled, err := svc.Cancel(ctx, tc, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusCancelled, cancelled.Status)

	balance = mustBalance(t, conn, tc, product.ID, "WH-1")
	assert.Equal(t, int64(0), balance.Reserved)
	assert.Equal(t, int64(50), balance.OnHand)

	// Terminal: nothing moves out of cancelled.
	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestCancelShippedShipmentFails(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 50)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 10))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.NoError(t, err)
	_, err = svc.Pick(ctx, tc, shipment.ID, PickInput{})
	require.NoError(t, err)
	_, err = svc.Pack(ctx, tc, shipment.ID, PackInput{})
	require.NoError(t, err)
	_, err = svc.Ship(ctx, tc, shipment.ID, ShipInput{})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, tc, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestPartialPickAndPack(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 100)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 10))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.NoError(t, err)

	lineID := shipment.Lines[0].ID
	picked, err := svc.Pick(ctx, tc, shipment.ID, PickInput{
		Lines: []LineQuantityInput{{LineID: lineID, Quantity: 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), picked.Lines[0].PickedQty)

	_, err = svc.Pack(ctx, tc, shipment.ID, PackInput{})
	require.NoError(t, err)

	_, err = svc.Ship(ctx, tc, shipment.ID, ShipInput{})
	require.NoError(t, err)

	// Only the 8 packed units leave; the unpicked remainder stays on hand.
	balance := mustBalance(t, conn, tc, product.ID, "WH-1")
	assert.Equal(t, int64(92), balance.OnHand)
	assert.Equal(t, int64(0), balance.Reserved)
}

func TestPickOverrideExceedingPlannedFails(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 100)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 10))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.NoError(t, err)

	_, err = svc.Pick(ctx, tc, shipment.ID, PickInput{
		Lines: []LineQuantityInput{{LineID: shipment.Lines[0].ID, Quantity: 11}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	loaded, err := svc.GetShipment(ctx, tc, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusConfirmed, loaded.Status)
}

func TestDeleteDraftShipmentKeepsEventLog(t *testing.T) {
	svc, _, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 3))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteShipment(ctx, tc, shipment.ID))

	_, err = svc.GetShipment(ctx, tc, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	eventRows, err := svc.ListEvents(ctx, tc, shipment.ID)
	require.NoError(t, err)
	require.Len(t, eventRows, 2)
	assert.Equal(t, enums.ShipmentEventDeleted, eventRows[1].EventType)

	view, err := Replay(eventRows)
	require.NoError(t, err)
	assert.True(t, view.Deleted)
	assert.Equal(t, shipment.ShipmentNumber, view.ShipmentNumber)
}

func TestDeleteShippedShipmentFails(t *testing.T) {
	svc, stock, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	mustReceipt(t, stock, tc, product.ID, "WH-1", 50)

	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 5))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, tc, shipment.ID)
	require.NoError(t, err)
	_, err = svc.Pick(ctx, tc, shipment.ID, PickInput{})
	require.NoError(t, err)
	_, err = svc.Pack(ctx, tc, shipment.ID, PackInput{})
	require.NoError(t, err)
	_, err = svc.Ship(ctx, tc, shipment.ID, ShipInput{})
	require.NoError(t, err)

	err = svc.DeleteShipment(ctx, tc, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState))
}

func TestDuplicateShipmentNumberConflict(t *testing.T) {
	svc, _, conn := newShipmentService(t)
	tc := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	input := shipmentInput(product.ID, 3)

	_, err := svc.CreateShipment(ctx, tc, input)
	require.NoError(t, err)

	_, err = svc.CreateShipment(ctx, tc, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCrossTenantShipmentAccessFails(t *testing.T) {
	svc, _, conn := newShipmentService(t)
	tc := newTenant()
	other := newTenant()
	ctx := context.Background()

	product := mustCreateProduct(t, conn, tc)
	shipment, err := svc.CreateShipment(ctx, tc, shipmentInput(product.ID, 3))
	require.NoError(t, err)

	_, err = svc.GetShipment(ctx, other, shipment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
