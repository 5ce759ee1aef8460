package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	"github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
)

// ApplicationService records field applications. An application, its items,
// their "out" movements and the total cost are written in one unit of work.
type ApplicationService struct {
	deps   Deps
	logger zerolog.Logger
}

// NewApplicationService creates an application service
func NewApplicationService(deps Deps) *ApplicationService {
	deps = deps.withDefaults()
	return &ApplicationService{
		deps:   deps,
		logger: deps.Logger.With().Str("service", "application").Logger(),
	}
}

// CreateApplication expands doses over the area, allocates each product by
// FIFO and prices every allocated lot. If any product is short nothing is written.
func (s *ApplicationService) CreateApplication(ctx context.Context, req dto.CreateApplicationRequest) (*dto.ApplicationView, error) {
	parcel := strings.TrimSpace(req.ParcelRef)
	if parcel == "" {
		return nil, entities.NewValidationError("parcel_ref", "cannot be empty")
	}
	if !req.AreaHa.IsPositive() {
		return nil, entities.NewValidationError("area_ha", "must be > 0")
	}
	if req.WaterLPerHa.Valid && req.WaterLPerHa.Decimal.IsNegative() {
		return nil, entities.NewValidationError("water_l_per_ha", "cannot be negative")
	}
	if req.TankVolumeL.Valid && !req.TankVolumeL.Decimal.IsPositive() {
		return nil, entities.NewValidationError("tank_volume_l", "must be > 0")
	}
	explicit, err := parseDoseItems(req.Items)
	if err != nil {
		return nil, err
	}
	if len(explicit) == 0 && req.MixID == "" {
		return nil, entities.NewValidationError("items", "at least one item or a mix is required")
	}

	date := req.Date
	if date.IsZero() {
		date = s.deps.Now()
	}
	app := &entities.Application{
		ID:          entities.ApplicationID(entities.NewID()),
		ParcelRef:   parcel,
		Date:        date.UTC(),
		AreaHa:      req.AreaHa,
		MixID:       entities.MixID(req.MixID),
		Operator:    req.Operator,
		Machine:     req.Machine,
		WaterLPerHa: req.WaterLPerHa,
		TankVolumeL: req.TankVolumeL,
		Status:      entities.ApplicationPosted,
		TotalCost:   decimal.Zero,
		CreatedAt:   s.deps.Now(),
	}

	// a mix replaces the listed items. It is read up front to know which
	// products to lock; mixes are never edited.
	doses := explicit
	if app.MixID != "" {
		mix, err := s.deps.Store.Repositories().Applications.GetMix(ctx, app.MixID)
		if err != nil {
			return nil, err
		}
		if len(mix.Items) == 0 {
			return nil, entities.NewValidationError("mix_id", "mix has no items")
		}
		doses = mix.Items
	}

	productIDs := make([]entities.ProductID, 0, len(doses))
	for _, d := range doses {
		productIDs = append(productIDs, d.ProductID)
	}
	unlock := s.deps.Locks.Lock(productIDs...)
	defer unlock()

	var (
		movements []entities.LedgerMovement
		names     = make(map[entities.ProductID]string)
	)
	err = s.deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		movements = movements[:0]
		for i, dose := range doses {
			product, err := repos.Catalog.GetProduct(ctx, dose.ProductID)
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			names[product.ID] = product.TradeName
			actives, err := repos.Catalog.ListProductActives(ctx, product.ID)
			if err != nil {
				return err
			}
			if err := services.EnsureConvertible(product, actives, dose.DoseUnit); err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}

			qty := dose.DosePerHa.Mul(app.AreaHa)
			result, written, lots, err := consumeFIFO(ctx, repos,
				services.AllocationRequest{ProductID: product.ID, Quantity: qty, Unit: dose.DoseUnit},
				outRef{
					RefType: entities.RefApplication,
					RefID:   string(app.ID),
					Reason:  entities.RefApplication,
					Notes:   "parcel " + parcel,
					Date:    app.Date,
				})
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			movements = append(movements, written...)

			for _, alloc := range result.Allocations {
				lot := lots[alloc.LotID]
				cost := decimal.Zero
				if lot.UnitPrice.Valid {
					cost = lot.UnitPrice.Decimal.Mul(alloc.Quantity)
				}
				app.Items = append(app.Items, entities.ApplicationItem{
					ProductID:  product.ID,
					AppliedQty: alloc.Quantity,
					Unit:       dose.DoseUnit,
					FromLotID:  lot.ID,
					UnitPrice:  lot.UnitPrice,
					Cost:       cost,
				})
				app.TotalCost = app.TotalCost.Add(cost)
			}
		}
		return repos.Applications.SaveApplication(ctx, app)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("parcel", parcel).Msg("application refused")
		return nil, err
	}

	s.logger.Info().
		Str("application_id", string(app.ID)).
		Str("parcel", parcel).
		Int("items", len(app.Items)).
		Str("total_cost", app.TotalCost.String()).
		Msg("application recorded")
	s.deps.publish(events.ApplicationStream(app.ID), events.ApplicationRecordedEvent, events.ApplicationRecorded{Application: *app})
	for _, m := range movements {
		s.deps.publish(events.LotStream(m.LotID), events.MovementAppendedEvent, events.MovementAppended{Movement: m})
	}
	return applicationView(app, names), nil
}

// GetApplication returns one application with its items
func (s *ApplicationService) GetApplication(ctx context.Context, id string) (*dto.ApplicationView, error) {
	repos := s.deps.Store.Repositories()
	app, err := repos.Applications.GetApplication(ctx, entities.ApplicationID(id))
	if err != nil {
		return nil, err
	}
	names, err := productNames(ctx, repos, app)
	if err != nil {
		return nil, err
	}
	return applicationView(app, names), nil
}

// ListApplications returns applications newest first, optionally for one parcel
func (s *ApplicationService) ListApplications(ctx context.Context, parcelRef string) ([]*dto.ApplicationView, error) {
	repos := s.deps.Store.Repositories()
	apps, err := repos.Applications.ListApplications(ctx, strings.TrimSpace(parcelRef))
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ApplicationView, 0, len(apps))
	for _, app := range apps {
		names, err := productNames(ctx, repos, app)
		if err != nil {
			return nil, err
		}
		out = append(out, applicationView(app, names))
	}
	return out, nil
}

// productNames looks up trade names; products deleted since are left blank
func productNames(ctx context.Context, repos repositories.Repositories, app *entities.Application) (map[entities.ProductID]string, error) {
	names := make(map[entities.ProductID]string)
	for _, item := range app.Items {
		if _, ok := names[item.ProductID]; ok {
			continue
		}
		product, err := repos.Catalog.GetProduct(ctx, item.ProductID)
		if errors.Is(err, entities.ErrNotFound) {
			names[item.ProductID] = ""
			continue
		}
		if err != nil {
			return nil, err
		}
		names[item.ProductID] = product.TradeName
	}
	return names, nil
}
