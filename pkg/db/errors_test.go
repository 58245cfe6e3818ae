package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	// The constraint names services pass must match what the migrations
	// create, so a Postgres duplicate-key error carries the same name.
	postgresErr := errors.New(`ERROR: duplicate key value violates unique constraint "idx_balances_org_product_location" (SQLSTATE 23505)`)
	assert.True(t, IsUniqueViolation(postgresErr, "idx_balances_org_product_location"))

	sqliteErr := errors.New("UNIQUE constraint failed: inventory_balances.organization_id, inventory_balances.product_id, inventory_balances.location")
	assert.True(t, IsUniqueViolation(sqliteErr, "idx_balances_org_product_location"))

	// A named miss still matches through the generic duplicate-key text.
	otherConstraint := errors.New(`ERROR: duplicate key value violates unique constraint "idx_products_org_sku" (SQLSTATE 23505)`)
	assert.True(t, IsUniqueViolation(otherConstraint, "idx_balances_org_product_location"))

	assert.False(t, IsUniqueViolation(fmt.Errorf("connection refused"), "idx_products_org_sku"))
	assert.False(t, IsUniqueViolation(nil, "idx_products_org_sku"))
}
