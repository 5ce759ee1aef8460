package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	"github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
)

// CatalogService maintains products, active substances and their associations.
// Records are upserted by normalized name.
type CatalogService struct {
	deps   Deps
	logger zerolog.Logger
}

// NewCatalogService creates a catalog service
func NewCatalogService(deps Deps) *CatalogService {
	deps = deps.withDefaults()
	return &CatalogService{
		deps:   deps,
		logger: deps.Logger.With().Str("service", "catalog").Logger(),
	}
}

// UpsertActive creates an active substance or updates the one with the same id or normalized name
func (s *CatalogService) UpsertActive(ctx context.Context, req dto.UpsertActiveRequest) (*dto.ActiveView, error) {
	name := strings.TrimSpace(req.Name)
	key := services.NormalizeName(name)
	if key == "" {
		return nil, entities.NewValidationError("name", "cannot be empty")
	}

	var saved *entities.ActiveSubstance
	err := s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		existing, err := findActiveForUpsert(ctx, repos, entities.ActiveID(req.ID), key)
		if err != nil {
			return err
		}

		active := &entities.ActiveSubstance{ID: entities.ActiveID(req.ID)}
		if existing != nil {
			active = existing
		}
		if active.ID == "" {
			active.ID = entities.ActiveID(entities.NewID())
		}
		active.Name = name
		active.NormalizedName = key
		active.Synonyms = cleanSynonyms(req.Synonyms)
		active.CASNumber = strings.TrimSpace(req.CASNumber)
		active.Notes = req.Notes

		if err := repos.Catalog.SaveActive(ctx, active); err != nil {
			return fmt.Errorf("save active substance: %w", err)
		}
		saved = active
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("active_id", string(saved.ID)).Str("name", saved.Name).Msg("active substance upserted")
	s.deps.publish(events.ActiveStream(saved.ID), events.ActiveUpsertedEvent, events.ActiveUpserted{Active: *saved})
	view := activeView(saved)
	return &view, nil
}

// findActiveForUpsert returns the record an upsert updates, or nil to create one.
// A name already held by a different record than the given id is rejected.
func findActiveForUpsert(ctx context.Context, repos repositories.Repositories, id entities.ActiveID, key string) (*entities.ActiveSubstance, error) {
	byName, err := repos.Catalog.FindActiveByName(ctx, key)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if id == "" {
		return byName, nil
	}

	byID, err := repos.Catalog.GetActive(ctx, id)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if byName != nil && byName.ID != id {
		return nil, entities.NewValidationError("name", fmt.Sprintf("already used by active substance %s", byName.ID))
	}
	return byID, nil
}

func cleanSynonyms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, syn := range in {
		syn = strings.TrimSpace(syn)
		key := services.NormalizeName(syn)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, syn)
	}
	return out
}

// DeleteActive removes an active substance that no product references
func (s *CatalogService) DeleteActive(ctx context.Context, id string) error {
	activeID := entities.ActiveID(id)
	err := s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		active, err := repos.Catalog.GetActive(ctx, activeID)
		if err != nil {
			return err
		}
		refs, err := repos.Catalog.ListProductsWithActive(ctx, activeID)
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return &entities.InUseError{Kind: "active substance", Key: active.Name, By: fmt.Sprintf("%d product(s)", len(refs))}
		}
		return repos.Catalog.DeleteActive(ctx, activeID)
	})
	if err != nil {
		if errors.Is(err, entities.ErrInUse) {
			s.logger.Warn().Err(err).Str("active_id", id).Msg("active substance delete refused")
		}
		return err
	}

	s.logger.Info().Str("active_id", id).Msg("active substance deleted")
	s.deps.publish(events.ActiveStream(activeID), events.ActiveDeletedEvent, events.ActiveDeleted{ActiveID: activeID})
	return nil
}

// ListActives returns every active substance ordered by name
func (s *CatalogService) ListActives(ctx context.Context) ([]dto.ActiveView, error) {
	actives, err := s.deps.Store.Repositories().Catalog.ListActives(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ActiveView, 0, len(actives))
	for _, a := range actives {
		out = append(out, activeView(a))
	}
	return out, nil
}

type resolvedActive struct {
	input         dto.ActiveInput
	unit          entities.ConcentrationUnit
	displayName   string
	normalizedKey string
}

// UpsertProduct creates or updates a product and replaces its active list.
// Every concentration is validated before anything is written; unknown active
// names are created.
func (s *CatalogService) UpsertProduct(ctx context.Context, req dto.UpsertProductRequest) (*dto.ProductView, error) {
	tradeName := strings.TrimSpace(req.TradeName)
	key := services.NormalizeName(tradeName)
	if key == "" {
		return nil, entities.NewValidationError("trade_name", "cannot be empty")
	}
	if req.Density.Valid && !req.Density.Decimal.IsPositive() {
		return nil, entities.NewValidationError("density", "must be > 0 when given")
	}
	var defaultUnit entities.QuantityUnit
	if strings.TrimSpace(req.DefaultUnit) != "" {
		unit, err := services.NormalizeQuantityUnit(req.DefaultUnit)
		if err != nil {
			return nil, err
		}
		defaultUnit = unit
	}

	inputs := make([]resolvedActive, 0, len(req.Actives))
	for i, in := range req.Actives {
		unit, err := services.NormalizeConcentrationUnit(in.Unit)
		if err != nil {
			return nil, fmt.Errorf("actives[%d]: %w", i, err)
		}
		if err := services.ValidateConcentration(in.Concentration, unit); err != nil {
			return nil, fmt.Errorf("actives[%d]: %w", i, err)
		}
		name := strings.TrimSpace(in.Name)
		if in.ActiveID == "" && services.NormalizeName(name) == "" {
			return nil, fmt.Errorf("actives[%d]: %w", i, entities.NewValidationError("name", "active id or name is required"))
		}
		inputs = append(inputs, resolvedActive{input: in, unit: unit, displayName: name, normalizedKey: services.NormalizeName(name)})
	}

	var (
		saved   *entities.Product
		actives []entities.ProductActive
		names   = make(map[entities.ActiveID]string)
	)
	err := s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		product, err := findProductForUpsert(ctx, repos, entities.ProductID(req.ID), key)
		if err != nil {
			return err
		}
		if product == nil {
			product = &entities.Product{ID: entities.ProductID(req.ID)}
			if product.ID == "" {
				product.ID = entities.ProductID(entities.NewID())
			}
		}
		product.TradeName = tradeName
		product.NormalizedName = key
		product.ProductType = strings.ToLower(strings.TrimSpace(req.ProductType))
		product.Density = req.Density
		product.DefaultUnit = defaultUnit
		product.Formulation = req.Formulation
		product.Supplier = req.Supplier
		product.Notes = req.Notes

		actives = actives[:0]
		for i, in := range inputs {
			active, err := resolveActive(ctx, repos, in)
			if err != nil {
				return fmt.Errorf("actives[%d]: %w", i, err)
			}
			if _, dup := names[active.ID]; dup {
				return fmt.Errorf("actives[%d]: %w", i, entities.NewValidationError("active", fmt.Sprintf("%s listed twice", active.Name)))
			}
			names[active.ID] = active.Name
			actives = append(actives, entities.ProductActive{
				ProductID:     product.ID,
				ActiveID:      active.ID,
				Concentration: in.input.Concentration,
				Unit:          in.unit,
			})
		}

		// lots already received must stay convertible
		lots, err := repos.Ledger.ListLots(ctx, entities.LotFilter{ProductID: product.ID})
		if err != nil {
			return err
		}
		checked := make(map[entities.QuantityUnit]bool)
		for _, lot := range lots {
			if checked[lot.Unit] {
				continue
			}
			checked[lot.Unit] = true
			if err := services.EnsureConvertible(product, actives, lot.Unit); err != nil {
				return err
			}
		}

		if err := repos.Catalog.SaveProduct(ctx, product); err != nil {
			return fmt.Errorf("save product: %w", err)
		}
		if err := repos.Catalog.DeleteProductActives(ctx, product.ID); err != nil {
			return fmt.Errorf("replace product actives: %w", err)
		}
		for _, pa := range actives {
			if err := repos.Catalog.SaveProductActive(ctx, pa); err != nil {
				return fmt.Errorf("save product active: %w", err)
			}
		}
		saved = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", string(saved.ID)).
		Str("trade_name", saved.TradeName).
		Int("actives", len(actives)).
		Msg("product upserted")
	s.deps.publish(events.ProductStream(saved.ID), events.ProductUpsertedEvent,
		events.ProductUpserted{Product: *saved, Actives: append([]entities.ProductActive(nil), actives...)})
	return productView(saved, actives, names), nil
}

func findProductForUpsert(ctx context.Context, repos repositories.Repositories, id entities.ProductID, key string) (*entities.Product, error) {
	byName, err := repos.Catalog.FindProductByName(ctx, key)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if id == "" {
		return byName, nil
	}

	byID, err := repos.Catalog.GetProduct(ctx, id)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	if byName != nil && byName.ID != id {
		return nil, entities.NewValidationError("trade_name", fmt.Sprintf("already used by product %s", byName.ID))
	}
	return byID, nil
}

// resolveActive finds the active by id, normalized name or synonym, creating it when unknown
func resolveActive(ctx context.Context, repos repositories.Repositories, in resolvedActive) (*entities.ActiveSubstance, error) {
	if in.input.ActiveID != "" {
		return repos.Catalog.GetActive(ctx, entities.ActiveID(in.input.ActiveID))
	}

	active, err := repos.Catalog.FindActiveByName(ctx, in.normalizedKey)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}

	active, err = repos.Catalog.FindActiveBySynonym(ctx, in.normalizedKey)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}

	active = &entities.ActiveSubstance{
		ID:             entities.ActiveID(entities.NewID()),
		Name:           in.displayName,
		NormalizedName: in.normalizedKey,
	}
	if err := repos.Catalog.SaveActive(ctx, active); err != nil {
		return nil, fmt.Errorf("create active substance %s: %w", in.displayName, err)
	}
	return active, nil
}

// GetProduct returns a product with its actives
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*dto.ProductView, error) {
	repos := s.deps.Store.Repositories()
	product, err := repos.Catalog.GetProduct(ctx, entities.ProductID(id))
	if err != nil {
		return nil, err
	}
	return s.describeProduct(ctx, repos, product)
}

// ListProducts returns products ordered by trade name, optionally of one type
func (s *CatalogService) ListProducts(ctx context.Context, productType string) ([]*dto.ProductView, error) {
	repos := s.deps.Store.Repositories()
	products, err := repos.Catalog.ListProducts(ctx, strings.ToLower(strings.TrimSpace(productType)))
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ProductView, 0, len(products))
	for _, p := range products {
		view, err := s.describeProduct(ctx, repos, p)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *CatalogService) describeProduct(ctx context.Context, repos repositories.Repositories, product *entities.Product) (*dto.ProductView, error) {
	actives, err := repos.Catalog.ListProductActives(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	names := make(map[entities.ActiveID]string, len(actives))
	for _, pa := range actives {
		active, err := repos.Catalog.GetActive(ctx, pa.ActiveID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", product.ID, err)
		}
		names[pa.ActiveID] = active.Name
	}
	return productView(product, actives, names), nil
}

// DeleteProduct removes a product that has never received a lot
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	productID := entities.ProductID(id)
	unlock := s.deps.Locks.Lock(productID)
	defer unlock()

	err := s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		product, err := repos.Catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		lots, err := repos.Ledger.CountLotsForProduct(ctx, productID)
		if err != nil {
			return err
		}
		if lots > 0 {
			return &entities.InUseError{Kind: "product", Key: product.TradeName, By: fmt.Sprintf("%d lot(s)", lots)}
		}
		return repos.Catalog.DeleteProduct(ctx, productID)
	})
	if err != nil {
		if errors.Is(err, entities.ErrInUse) {
			s.logger.Warn().Err(err).Str("product_id", id).Msg("product delete refused")
		}
		return err
	}

	s.logger.Info().Str("product_id", id).Msg("product deleted")
	s.deps.publish(events.ProductStream(productID), events.ProductDeletedEvent, events.ProductDeleted{ProductID: productID})
	return nil
}
