package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracelinehq/traceline-backend/pkg/db"
	"github.com/tracelinehq/traceline-backend/pkg/db/models"
	"github.com/tracelinehq/traceline-backend/pkg/enums"
	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
	"github.com/tracelinehq/traceline-backend/pkg/events"
	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
	"github.com/tracelinehq/traceline-backend/pkg/validate"
)

// Service exposes product catalog operations. Every mutation commits its
// state change and event record in one transaction.
type Service interface {
	CreateProduct(ctx context.Context, tc tenant.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, tc tenant.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	ChangeStatus(ctx context.Context, tc tenant.Context, productID uuid.UUID, next enums.ProductStatus) (*models.Product, error)
	GetProduct(ctx context.Context, tc tenant.Context, productID uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, tc tenant.Context, input ListProductsInput) (*ProductListResult, error)
	CreateRevision(ctx context.Context, tc tenant.Context, productID uuid.UUID, input CreateRevisionInput) (*models.ProductRevision, error)
	ReleaseRevision(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) (*models.ProductRevision, error)
	ListRevisions(ctx context.Context, tc tenant.Context, productID uuid.UUID) ([]models.ProductRevision, error)
	ListEvents(ctx context.Context, tc tenant.Context, productID uuid.UUID) ([]models.ProductEvent, error)
}

type service struct {
	repo     Repository
	dbClient *db.Client
	recorder *events.Recorder
	logg     *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo Repository, dbClient *db.Client, recorder *events.Recorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		recorder: recorder,
		logg:     logg,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, tc tenant.Context, input CreateProductInput) (*models.Product, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		SKU:            input.SKU,
		Name:           input.Name,
		Description:    input.Description,
		Status:         enums.ProductStatusDevelopment,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if err := txRepo.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "idx_products_org_sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %q already exists", input.SKU))
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert product")
		}

		_, err := s.recorder.Product(ctx, tx, tc, product.ID, enums.ProductEventCreated, productCreatedData{
			SKU:    product.SKU,
			Name:   product.Name,
			Status: product.Status,
		})
		return err
	}); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrganizationID(ctx, tc.OrganizationID.String())
	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, tc tenant.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.Name == nil && input.Description == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var product *models.Product
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := s.loadProduct(ctx, txRepo, tc, productID)
		if err != nil {
			return err
		}
		if loaded.Status == enums.ProductStatusObsolete {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "obsolete products cannot be updated")
		}

		if input.Name != nil {
			loaded.Name = *input.Name
		}
		if input.Description != nil {
			loaded.Description = input.Description
		}
		if err := txRepo.SaveProduct(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
		}

		if _, err := s.recorder.Product(ctx, tx, tc, loaded.ID, enums.ProductEventUpdated, productUpdatedData{
			Name:        input.Name,
			Description: input.Description,
		}); err != nil {
			return err
		}
		product = loaded
		return nil
	}); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) ChangeStatus(ctx context.Context, tc tenant.Context, productID uuid.UUID, next enums.ProductStatus) (*models.Product, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", next))
	}

	var product *models.Product
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := s.loadProduct(ctx, txRepo, tc, productID)
		if err != nil {
			return err
		}
		if !loaded.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				fmt.Sprintf("cannot move product from %s to %s", loaded.Status, next))
		}

		previous := loaded.Status
		loaded.Status = next
		if err := txRepo.SaveProduct(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product status")
		}

		if _, err := s.recorder.Product(ctx, tx, tc, loaded.ID, enums.ProductEventStatusChanged, productStatusChangedData{
			From: previous,
			To:   next,
		}); err != nil {
			return err
		}
		product = loaded
		return nil
	}); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, tc tenant.Context, productID uuid.UUID) (*models.Product, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return s.loadProduct(ctx, s.repo, tc, productID)
}

func (s *service) ListProducts(ctx context.Context, tc tenant.Context, input ListProductsInput) (*ProductListResult, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", *input.Status))
	}
	result, err := s.repo.ListProducts(ctx, tc.OrganizationID, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return result, nil
}

func (s *service) CreateRevision(ctx context.Context, tc tenant.Context, productID uuid.UUID, input CreateRevisionInput) (*models.ProductRevision, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	revision := &models.ProductRevision{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		ProductID:      productID,
		RevisionNumber: input.RevisionNumber,
		Status:         enums.RevisionStatusDraft,
		Notes:          input.Notes,
		CreatedBy:      tc.ActorUserID,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := s.loadProduct(ctx, txRepo, tc, productID)
		if err != nil {
			return err
		}
		if product.Status == enums.ProductStatusObsolete {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "obsolete products cannot receive revisions")
		}

		if err := txRepo.CreateRevision(ctx, revision); err != nil {
			if db.IsUniqueViolation(err, "idx_revisions_product_number") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("revision %q already exists for product", input.RevisionNumber))
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert revision")
		}

		_, err = s.recorder.Product(ctx, tx, tc, product.ID, enums.ProductEventRevisionCreated, revisionCreatedData{
			RevisionID:     revision.ID,
			RevisionNumber: revision.RevisionNumber,
		})
		return err
	}); err != nil {
		return nil, err
	}
	return revision, nil
}

func (s *service) ReleaseRevision(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) (*models.ProductRevision, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	var revision *models.ProductRevision
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := txRepo.FindRevisionByID(ctx, tc.OrganizationID, revisionID)
		if err != nil {
			return notFoundOrInternal(err, "revision")
		}
		if loaded.Status != enums.RevisionStatusDraft {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only draft revisions can be released")
		}

		product, err := s.loadProduct(ctx, txRepo, tc, loaded.ProductID)
		if err != nil {
			return err
		}
		if product.Status == enums.ProductStatusObsolete {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "obsolete products cannot release revisions")
		}

		// An out-of-order release of an older draft never demotes the
		// revision currently in effect. Promotion only happens when this
		// revision is newer than the current one, or nothing is current.
		promote := true
		var previous *models.ProductRevision
		if product.CurrentRevisionID != nil {
			previous, err = txRepo.FindRevisionByID(ctx, tc.OrganizationID, *product.CurrentRevisionID)
			if err != nil {
				return notFoundOrInternal(err, "current revision")
			}
			promote = loaded.CreatedAt.After(previous.CreatedAt)
		}

		var previousID *uuid.UUID
		if promote && previous != nil {
			previous.Status = enums.RevisionStatusObsolete
			if err := txRepo.SaveRevision(ctx, previous); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "retire previous revision")
			}
			previousID = &previous.ID
		}

		now := time.Now().UTC()
		loaded.Status = enums.RevisionStatusReleased
		loaded.ReleasedAt = &now
		releasedBy := tc.ActorUserID
		loaded.ReleasedBy = &releasedBy
		if err := txRepo.SaveRevision(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release revision")
		}

		if promote {
			product.CurrentRevisionID = &loaded.ID
			if err := txRepo.SaveProduct(ctx, product); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promote current revision")
			}
		}

		if _, err := s.recorder.Product(ctx, tx, tc, product.ID, enums.ProductEventRevisionReleased, revisionReleasedData{
			RevisionID:         loaded.ID,
			RevisionNumber:     loaded.RevisionNumber,
			From:               enums.RevisionStatusDraft,
			To:                 enums.RevisionStatusReleased,
			Promoted:           promote,
			PreviousRevisionID: previousID,
		}); err != nil {
			return err
		}
		revision = loaded
		return nil
	}); err != nil {
		return nil, err
	}
	return revision, nil
}

func (s *service) ListRevisions(ctx context.Context, tc tenant.Context, productID uuid.UUID) ([]models.ProductRevision, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.loadProduct(ctx, s.repo, tc, productID); err != nil {
		return nil, err
	}
	revisions, err := s.repo.ListRevisions(ctx, tc.OrganizationID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list revisions")
	}
	return revisions, nil
}

func (s *service) ListEvents(ctx context.Context, tc tenant.Context, productID uuid.UUID) ([]models.ProductEvent, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.loadProduct(ctx, s.repo, tc, productID); err != nil {
		return nil, err
	}
	eventRows, err := s.repo.ListEvents(ctx, tc.OrganizationID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list product events")
	}
	return eventRows, nil
}

func (s *service) loadProduct(ctx context.Context, repo Repository, tc tenant.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindProductByID(ctx, tc.OrganizationID, productID)
	if err != nil {
		return nil, notFoundOrInternal(err, "product")
	}
	if err := tenant.Guard(tc, product.OrganizationID); err != nil {
		return nil, err
	}
	return product, nil
}

func notFoundOrInternal(err error, resource string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+resource)
}
