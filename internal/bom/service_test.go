package bom

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db"
	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
	"github.com/tracelinehq/traceline-backend/pkg/events"
	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

func setupBOMTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
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
);`
	revisions := `
CREATE TABLE IF NOT EXISTS product_revisions (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  revision_number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  notes TEXT,
  created_by TEXT NOT NULL,
  released_at DATETIME,
  released_by TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (product_id, revision_number)
);`
	bomLines := `
CREATE TABLE IF NOT EXISTS bom_lines (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  revision_id TEXT NOT NULL,
  parent_product_id TEXT NOT NULL,
  component_product_id TEXT NOT NULL,
  position_number INTEGER NOT NULL,
  quantity NUMERIC NOT NULL,
  unit TEXT NOT NULL DEFAULT 'ea',
  reference_designator TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (revision_id, component_product_id),
  UNIQUE (revision_id, position_number)
);`
	bomEvents := `
CREATE TABLE IF NOT EXISTS bom_events (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  revision_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  payload TEXT,
  actor_user_id TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(products).Error)
	require.NoError(t, conn.Exec(revisions).Error)
	require.NoError(t, conn.Exec(bomLines).Error)
	require.NoError(t, conn.Exec(bomEvents).Error)
	return conn
}

func newBOMService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := setupBOMTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "bom-test", Output: io.Discard})
	recorder := events.NewRecorder(logg, nil)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), recorder, logg, 32)
	require.NoError(t, err)
	return svc, conn
}

func newTenant() tenant.Context {
	return tenant.Context{OrganizationID: uuid.New(), ActorUserID: uuid.New()}
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, tc tenant.Context, name string) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		SKU:            fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:           name,
		Status:         enums.ProductStatusDevelopment,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func mustCreateRevision(t *testing.T, conn *gorm.DB, tc tenant.Context, productID uuid.UUID, status enums.RevisionStatus) *models.ProductRevision {
	t.Helper()
	revision := &models.ProductRevision{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		ProductID:      productID,
		RevisionNumber: fmt.Sprintf("R-%s", uuid.NewString()[:8]),
		Status:         status,
		CreatedBy:      tc.ActorUserID,
	}
	require.NoError(t, conn.Create(revision).Error)
	return revision
}

func mustSetCurrentRevision(t *testing.T, conn *gorm.DB, productID, revisionID uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("current_revision_id", revisionID).Error)
}

func TestAddLineEmitsEvent(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	component := mustCreateProduct(t, conn, tc, "Part")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	line, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: component.ID,
		PositionNumber:     10,
		Quantity:           decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, line.ParentProductID)
	assert.Equal(t, "ea", line.Unit)

	var eventRows []models.BOMEvent
	require.NoError(t, conn.Where("revision_id = ?", revision.ID).Find(&eventRows).Error)
	require.Len(t, eventRows, 1)
	assert.Equal(t, enums.BOMEventLineAdded, eventRows[0].EventType)
}

func TestAddLineRequiresDraftRevision(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	component := mustCreateProduct(t, conn, tc, "Part")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusReleased)

	_, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: component.ID,
		PositionNumber:     10,
		Quantity:           decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState))
}

func TestAddLineRejectsSelfReference(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	_, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: parent.ID,
		PositionNumber:     10,
		Quantity:           decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCyclicBOM))
}

func TestAddLineRejectsTransitiveCycle(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	productA := mustCreateProduct(t, conn, tc, "A")
	productB := mustCreateProduct(t, conn, tc, "B")
	productC := mustCreateProduct(t, conn, tc, "C")
	revisionA := mustCreateRevision(t, conn, tc, productA.ID, enums.RevisionStatusDraft)
	revisionB := mustCreateRevision(t, conn, tc, productB.ID, enums.RevisionStatusDraft)
	revisionC := mustCreateRevision(t, conn, tc, productC.ID, enums.RevisionStatusDraft)

	_, err := svc.AddLine(ctx, tc, revisionA.ID, AddLineInput{
		ComponentProductID: productB.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc, revisionB.ID, AddLineInput{
		ComponentProductID: productC.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, tc, revisionC.ID, AddLineInput{
		ComponentProductID: productA.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCyclicBOM))

	var lineCount int64
	require.NoError(t, conn.Model(&models.BOMLine{}).
		Where("revision_id = ?", revisionC.ID).
		Count(&lineCount).Error)
	assert.Equal(t, int64(0), lineCount)
}

func TestAddLineDuplicateComponentConflict(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	component := mustCreateProduct(t, conn, tc, "Part")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	_, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: component.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: component.ID, PositionNumber: 20, Quantity: decimal.NewFromInt(2),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestUpdateAndRemoveLineDraftOnly(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	component := mustCreateProduct(t, conn, tc, "Part")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	line, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: component.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	quantity := decimal.NewFromFloat(2.5)
	updated, err := svc.UpdateLine(ctx, tc, line.ID, UpdateLineInput{Quantity: &quantity})
	require.NoError(t, err)
	assert.True(t, updated.Quantity.Equal(quantity))

	require.NoError(t, conn.Model(&models.ProductRevision{}).
		Where("id = ?", revision.ID).
		Update("status", enums.RevisionStatusReleased).Error)

	_, err = svc.UpdateLine(ctx, tc, line.ID, UpdateLineInput{Quantity: &quantity})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState))

	err = svc.RemoveLine(ctx, tc, line.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState))
}

func TestRemoveLineEmitsEvent(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	component := mustCreateProduct(t, conn, tc, "Part")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	line, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: component.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveLine(ctx, tc, line.ID))

	lines, err := svc.GetBOM(ctx, tc, revision.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	var eventRows []models.BOMEvent
	require.NoError(t, conn.Where("revision_id = ?", revision.ID).Order("created_at ASC").Find(&eventRows).Error)
	require.Len(t, eventRows, 2)
	assert.Equal(t, enums.BOMEventLineRemoved, eventRows[1].EventType)
}

func TestGetExplodedMultiLevel(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	productA := mustCreateProduct(t, conn, tc, "A")
	productB := mustCreateProduct(t, conn, tc, "B")
	productC := mustCreateProduct(t, conn, tc, "C")
	revisionA := mustCreateRevision(t, conn, tc, productA.ID, enums.RevisionStatusDraft)
	revisionB := mustCreateRevision(t, conn, tc, productB.ID, enums.RevisionStatusDraft)

	_, err := svc.AddLine(ctx, tc, revisionA.ID, AddLineInput{
		ComponentProductID: productB.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc, revisionB.ID, AddLineInput{
		ComponentProductID: productC.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	mustSetCurrentRevision(t, conn, productB.ID, revisionB.ID)

	exploded, err := svc.GetExploded(ctx, tc, revisionA.ID)
	require.NoError(t, err)
	require.Len(t, exploded, 2)

	assert.Equal(t, productB.ID, exploded[0].ComponentProductID)
	assert.Equal(t, 1, exploded[0].Level)
	assert.True(t, exploded[0].ExtendedQuantity.Equal(decimal.NewFromInt(2)))

	assert.Equal(t, productC.ID, exploded[1].ComponentProductID)
	assert.Equal(t, 2, exploded[1].Level)
	assert.True(t, exploded[1].ExtendedQuantity.Equal(decimal.NewFromInt(6)))
}

func TestGetExplodedStopsAtUnreleasedSubassembly(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	sub := mustCreateProduct(t, conn, tc, "Subassembly")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	_, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: sub.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	// Subassembly has no current released revision, so the walk ends there.
	exploded, err := svc.GetExploded(ctx, tc, revision.ID)
	require.NoError(t, err)
	require.Len(t, exploded, 1)
	assert.Equal(t, sub.ID, exploded[0].ComponentProductID)
	assert.Equal(t, 1, exploded[0].Level)
}

func TestGetExplodedUnknownRevision(t *testing.T) {
	svc, _ := newBOMService(t)
	tc := newTenant()

	_, err := svc.GetExploded(context.Background(), tc, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestAddLineDuplicatePositionConflict(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	partA := mustCreateProduct(t, conn, tc, "Part A")
	partB := mustCreateProduct(t, conn, tc, "Part B")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	_, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: partA.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: partB.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestAddLineComponentMustExistInTenant(t *testing.T) {
	svc, conn := newBOMService(t)
	tc := newTenant()
	other := newTenant()
	ctx := context.Background()

	parent := mustCreateProduct(t, conn, tc, "Assembly")
	foreign := mustCreateProduct(t, conn, other, "Foreign")
	revision := mustCreateRevision(t, conn, tc, parent.ID, enums.RevisionStatusDraft)

	_, err := svc.AddLine(ctx, tc, revision.ID, AddLineInput{
		ComponentProductID: foreign.ID, PositionNumber: 10, Quantity: decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
