package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tracelinehq/traceline-backend/internal/bom"
	"github.com/tracelinehq/traceline-backend/internal/catalog"
	"github.com/tracelinehq/traceline-backend/internal/inventory"
	"github.com/tracelinehq/traceline-backend/internal/shipments"
	"github.com/tracelinehq/traceline-backend/pkg/config"
	"github.com/tracelinehq/traceline-backend/pkg/db"
	"github.com/tracelinehq/traceline-backend/pkg/events"
	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/metrics"
)

// App bundles the wired domain services. Outer layers (transport, workers)
// consume the services from here instead of constructing them directly.
type App struct {
	Catalog   catalog.Service
	BOM       bom.Service
	Inventory inventory.Service
	Shipments shipments.Service
}

// New wires the domain services against one database client. Registerer may
// be nil when metrics are not wanted (tests, one-shot tools).
func New(cfg *config.Config, dbClient *db.Client, logg *logger.Logger, reg prometheus.Registerer) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	recorder := events.NewRecorder(logg, metrics.NewEventMetrics(reg))
	conn := dbClient.DB()

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), dbClient, recorder, logg)
	if err != nil {
		return nil, fmt.Errorf("wiring catalog service: %w", err)
	}
	bomSvc, err := bom.NewService(bom.NewRepository(conn), dbClient, recorder, logg, cfg.BOM.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("wiring bom service: %w", err)
	}
	inventorySvc, err := inventory.NewService(inventory.NewRepository(conn), dbClient, recorder, logg, cfg.Inventory.BalanceRetryAttempts)
	if err != nil {
		return nil, fmt.Errorf("wiring inventory service: %w", err)
	}
	shipmentSvc, err := shipments.NewService(shipments.NewRepository(conn), dbClient, recorder, inventorySvc, logg)
	if err != nil {
		return nil, fmt.Errorf("wiring shipment service: %w", err)
	}

	return &App{
		Catalog:   catalogSvc,
		BOM:       bomSvc,
		Inventory: inventorySvc,
		Shipments: shipmentSvc,
	}, nil
}
