package bom

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

const defaultUnit = "ea"

// Service exposes BOM structure operations. Lines only change while the
// owning revision is still a draft.
type Service interface {
	AddLine(ctx context.Context, tc tenant.Context, revisionID uuid.UUID, input AddLineInput) (*models.BOMLine, error)
	UpdateLine(ctx context.Context, tc tenant.Context, lineID uuid.UUID, input UpdateLineInput) (*models.BOMLine, error)
	RemoveLine(ctx context.Context, tc tenant.Context, lineID uuid.UUID) error
	GetBOM(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) ([]models.BOMLine, error)
	GetExploded(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) ([]ExplodedLine, error)
	ListEvents(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) ([]models.BOMEvent, error)
}

type service struct {
	repo     Repository
	dbClient *db.Client
	recorder *events.Recorder
	logg     *logger.Logger
	maxDepth int
}

// NewService constructs a BOM service instance.
func NewService(repo Repository, dbClient *db.Client, recorder *events.Recorder, logg *logger.Logger, maxDepth int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bom repository required")
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
	if maxDepth <= 0 {
		return nil, fmt.Errorf("max depth must be positive")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		recorder: recorder,
		logg:     logg,
		maxDepth: maxDepth,
	}, nil
}

func (s *service) AddLine(ctx context.Context, tc tenant.Context, revisionID uuid.UUID, input AddLineInput) (*models.BOMLine, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	unit := input.Unit
	if unit == "" {
		unit = defaultUnit
	}

	var line *models.BOMLine
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		revision, err := s.loadDraftRevision(ctx, txRepo, tc, revisionID)
		if err != nil {
			return err
		}
		if revision.ProductID == input.ComponentProductID {
			return pkgerrors.New(pkgerrors.CodeCyclicBOM, "product cannot contain itself")
		}

		if _, err := txRepo.FindProductByID(ctx, tc.OrganizationID, input.ComponentProductID); err != nil {
			return notFoundOrInternal(err, "component product")
		}

		existing, err := txRepo.ListLinesByRevision(ctx, tc.OrganizationID, revision.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bom lines")
		}
		for _, sibling := range existing {
			if sibling.PositionNumber == input.PositionNumber {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("position %d already used on this revision", input.PositionNumber))
			}
		}

		if err := s.ensureAcyclic(ctx, txRepo, tc, revision.ProductID, input.ComponentProductID); err != nil {
			return err
		}

		line = &models.BOMLine{
			ID:                  uuid.New(),
			OrganizationID:      tc.OrganizationID,
			RevisionID:          revision.ID,
			ParentProductID:     revision.ProductID,
			ComponentProductID:  input.ComponentProductID,
			PositionNumber:      input.PositionNumber,
			Quantity:            input.Quantity,
			Unit:                unit,
			ReferenceDesignator: input.ReferenceDesignator,
		}
		if err := txRepo.CreateLine(ctx, line); err != nil {
			if db.IsUniqueViolation(err, "idx_bom_lines_revision_component") {
				return pkgerrors.New(pkgerrors.CodeConflict, "component already present on this revision")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert bom line")
		}

		_, err = s.recorder.BOM(ctx, tx, tc, revision.ID, enums.BOMEventLineAdded, lineAddedData{
			LineID:             line.ID,
			ComponentProductID: line.ComponentProductID,
			PositionNumber:     line.PositionNumber,
			Quantity:           line.Quantity,
			Unit:               line.Unit,
		})
		return err
	}); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *service) UpdateLine(ctx context.Context, tc tenant.Context, lineID uuid.UUID, input UpdateLineInput) (*models.BOMLine, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.PositionNumber == nil && input.Quantity == nil && input.Unit == nil && input.ReferenceDesignator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if input.Quantity != nil && input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var line *models.BOMLine
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := txRepo.FindLineByID(ctx, tc.OrganizationID, lineID)
		if err != nil {
			return notFoundOrInternal(err, "bom line")
		}
		if _, err := s.loadDraftRevision(ctx, txRepo, tc, loaded.RevisionID); err != nil {
			return err
		}

		if input.PositionNumber != nil && *input.PositionNumber != loaded.PositionNumber {
			siblings, err := txRepo.ListLinesByRevision(ctx, tc.OrganizationID, loaded.RevisionID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bom lines")
			}
			for _, sibling := range siblings {
				if sibling.ID != loaded.ID && sibling.PositionNumber == *input.PositionNumber {
					return pkgerrors.New(pkgerrors.CodeConflict,
						fmt.Sprintf("position %d already used on this revision", *input.PositionNumber))
				}
			}
		}

		if input.PositionNumber != nil {
			loaded.PositionNumber = *input.PositionNumber
		}
		if input.Quantity != nil {
			loaded.Quantity = *input.Quantity
		}
		if input.Unit != nil {
			loaded.Unit = *input.Unit
		}
		if input.ReferenceDesignator != nil {
			loaded.ReferenceDesignator = input.ReferenceDesignator
		}
		if err := txRepo.SaveLine(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update bom line")
		}

		if _, err := s.recorder.BOM(ctx, tx, tc, loaded.RevisionID, enums.BOMEventLineUpdated, lineUpdatedData{
			LineID:         loaded.ID,
			PositionNumber: input.PositionNumber,
			Quantity:       input.Quantity,
			Unit:           input.Unit,
		}); err != nil {
			return err
		}
		line = loaded
		return nil
	}); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *service) RemoveLine(ctx context.Context, tc tenant.Context, lineID uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return err
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		loaded, err := txRepo.FindLineByID(ctx, tc.OrganizationID, lineID)
		if err != nil {
			return notFoundOrInternal(err, "bom line")
		}
		if _, err := s.loadDraftRevision(ctx, txRepo, tc, loaded.RevisionID); err != nil {
			return err
		}

		if err := txRepo.DeleteLine(ctx, tc.OrganizationID, loaded.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete bom line")
		}

		_, err = s.recorder.BOM(ctx, tx, tc, loaded.RevisionID, enums.BOMEventLineRemoved, lineRemovedData{
			LineID:             loaded.ID,
			ComponentProductID: loaded.ComponentProductID,
		})
		return err
	})
}

func (s *service) GetBOM(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) ([]models.BOMLine, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindRevisionByID(ctx, tc.OrganizationID, revisionID); err != nil {
		return nil, notFoundOrInternal(err, "revision")
	}
	lines, err := s.repo.ListLinesByRevision(ctx, tc.OrganizationID, revisionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bom lines")
	}
	return lines, nil
}

// GetExploded walks the multi-level BOM below a revision. Sub-assemblies
// expand through their current released revision; extended quantities
// multiply through the path.
func (s *service) GetExploded(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) ([]ExplodedLine, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	revision, err := s.repo.FindRevisionByID(ctx, tc.OrganizationID, revisionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "revision")
	}

	var exploded []ExplodedLine
	onPath := map[uuid.UUID]bool{revision.ProductID: true}
	if err := s.explode(ctx, tc, revision.ID, 1, decimal.NewFromInt(1), onPath, &exploded); err != nil {
		return nil, err
	}
	return exploded, nil
}

func (s *service) explode(ctx context.Context, tc tenant.Context, revisionID uuid.UUID, level int, multiplier decimal.Decimal, onPath map[uuid.UUID]bool, out *[]ExplodedLine) error {
	if level > s.maxDepth {
		return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("bom exceeds maximum depth of %d", s.maxDepth))
	}

	lines, err := s.repo.ListLinesByRevision(ctx, tc.OrganizationID, revisionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bom lines")
	}

	for _, line := range lines {
		if onPath[line.ComponentProductID] {
			return pkgerrors.New(pkgerrors.CodeCyclicBOM, "bom contains a cycle")
		}

		extended := multiplier.Mul(line.Quantity)
		*out = append(*out, ExplodedLine{
			ComponentProductID: line.ComponentProductID,
			RevisionID:         line.RevisionID,
			PositionNumber:     line.PositionNumber,
			Level:              level,
			Quantity:           line.Quantity,
			ExtendedQuantity:   extended,
			Unit:               line.Unit,
		})

		component, err := s.repo.FindProductByID(ctx, tc.OrganizationID, line.ComponentProductID)
		if err != nil {
			return notFoundOrInternal(err, "component product")
		}
		if component.CurrentRevisionID == nil {
			continue
		}

		onPath[line.ComponentProductID] = true
		if err := s.explode(ctx, tc, *component.CurrentRevisionID, level+1, extended, onPath, out); err != nil {
			return err
		}
		delete(onPath, line.ComponentProductID)
	}
	return nil
}

func (s *service) ListEvents(ctx context.Context, tc tenant.Context, revisionID uuid.UUID) ([]models.BOMEvent, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindRevisionByID(ctx, tc.OrganizationID, revisionID); err != nil {
		return nil, notFoundOrInternal(err, "revision")
	}
	eventRows, err := s.repo.ListEvents(ctx, tc.OrganizationID, revisionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bom events")
	}
	return eventRows, nil
}

// ensureAcyclic rejects the edge parent -> component when the parent is
// already reachable from the component through any revision's lines.
func (s *service) ensureAcyclic(ctx context.Context, repo Repository, tc tenant.Context, parentProductID, componentProductID uuid.UUID) error {
	frontier := []uuid.UUID{componentProductID}
	visited := map[uuid.UUID]bool{componentProductID: true}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth > s.maxDepth {
			return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("bom exceeds maximum depth of %d", s.maxDepth))
		}

		next, err := repo.ListComponentsOf(ctx, tc.OrganizationID, frontier)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "walk bom graph")
		}

		frontier = frontier[:0]
		for _, id := range next {
			if id == parentProductID {
				return pkgerrors.New(pkgerrors.CodeCyclicBOM, "adding this component would create a cycle")
			}
			if !visited[id] {
				visited[id] = true
				frontier = append(frontier, id)
			}
		}
	}
	return nil
}

func (s *service) loadDraftRevision(ctx context.Context, repo Repository, tc tenant.Context, revisionID uuid.UUID) (*models.ProductRevision, error) {
	revision, err := repo.FindRevisionByID(ctx, tc.OrganizationID, revisionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "revision")
	}
	if err := tenant.Guard(tc, revision.OrganizationID); err != nil {
		return nil, err
	}
	if revision.Status != enums.RevisionStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "bom lines can only change on draft revisions")
	}
	return revision, nil
}

func notFoundOrInternal(err error, resource string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+resource)
}
