package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	"github.com/vsinha/agrostock/pkg/domain/services"
)

// ActiveStockService reports stock in terms of active ingredient and product value
type ActiveStockService struct {
	deps   Deps
	logger zerolog.Logger
}

// NewActiveStockService creates an active stock service
func NewActiveStockService(deps Deps) *ActiveStockService {
	deps = deps.withDefaults()
	return &ActiveStockService{
		deps:   deps,
		logger: deps.Logger.With().Str("service", "active_stock").Logger(),
	}
}

// StockForActive totals the kilograms of one active substance held in stock.
// Lots whose mass cannot be computed stay in the breakdown with a null mass
// and are left out of the total.
func (s *ActiveStockService) StockForActive(ctx context.Context, name string) (*dto.ActiveStock, error) {
	key := services.NormalizeName(name)
	if key == "" {
		return nil, entities.NewValidationError("name", "cannot be empty")
	}
	repos := s.deps.Store.Repositories()

	active, err := resolveActiveName(ctx, repos, key)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.NewNotFoundError("active substance", strings.TrimSpace(name))
		}
		return nil, err
	}

	links, err := repos.Catalog.ListProductsWithActive(ctx, active.ID)
	if err != nil {
		return nil, err
	}

	result := &dto.ActiveStock{
		ActiveID:  string(active.ID),
		Active:    active.Name,
		Breakdown: []dto.ActiveStockEntry{},
	}
	total := decimal.Zero
	for _, pa := range links {
		product, err := repos.Catalog.GetProduct(ctx, pa.ProductID)
		if err != nil {
			return nil, err
		}
		rows, err := lotBalances(ctx, repos, entities.LotFilter{ProductID: product.ID})
		if err != nil {
			return nil, err
		}
		services.SortByReceived(rows)

		for _, row := range rows {
			if !row.Balance.IsPositive() {
				continue
			}
			mass := services.ActiveMass(row.Balance, row.Lot.Unit, pa.Concentration, pa.Unit, product.Density)
			if mass.Valid {
				total = total.Add(mass.Decimal)
			} else {
				result.UnknownMassEntries++
			}
			result.Breakdown = append(result.Breakdown, dto.ActiveStockEntry{
				ProductID:         string(product.ID),
				TradeName:         product.TradeName,
				LotID:             string(row.Lot.ID),
				LotCode:           row.Lot.LotCode,
				LocationID:        row.Lot.LocationID,
				LotQty:            row.Balance,
				Unit:              row.Lot.Unit.String(),
				Concentration:     pa.Concentration,
				ConcentrationUnit: pa.Unit.String(),
				ActiveMassKg:      mass,
			})
		}
	}
	result.TotalMassKg = total.Round(3)

	if result.UnknownMassEntries > 0 {
		s.logger.Warn().
			Str("active", active.Name).
			Int("entries", result.UnknownMassEntries).
			Msg("active mass unknown for lots without density")
	}
	return result, nil
}

// resolveActiveName matches the normalized name first, then registered synonyms
func resolveActiveName(ctx context.Context, repos repositories.Repositories, key string) (*entities.ActiveSubstance, error) {
	active, err := repos.Catalog.FindActiveByName(ctx, key)
	if err == nil || !errors.Is(err, entities.ErrNotFound) {
		return active, err
	}
	return repos.Catalog.FindActiveBySynonym(ctx, key)
}

type summaryKey struct {
	product  entities.ProductID
	location string
	unit     entities.QuantityUnit
}

// StockSummary aggregates positive balances per product, location and unit.
// Value is the sum of balance times unit price over priced lots.
func (s *ActiveStockService) StockSummary(ctx context.Context) ([]dto.StockSummaryRow, error) {
	repos := s.deps.Store.Repositories()
	rows, err := lotBalances(ctx, repos, entities.LotFilter{})
	if err != nil {
		return nil, err
	}

	products := make(map[entities.ProductID]*entities.Product)
	groups := make(map[summaryKey]*dto.StockSummaryRow)
	for _, row := range rows {
		if !row.Balance.IsPositive() {
			continue
		}
		lot := row.Lot
		product, ok := products[lot.ProductID]
		if !ok {
			product, err = repos.Catalog.GetProduct(ctx, lot.ProductID)
			if err != nil {
				return nil, err
			}
			products[lot.ProductID] = product
		}

		key := summaryKey{product: lot.ProductID, location: lot.LocationID, unit: lot.Unit}
		group, ok := groups[key]
		if !ok {
			group = &dto.StockSummaryRow{
				ProductID:   string(product.ID),
				TradeName:   product.TradeName,
				ProductType: product.ProductType,
				LocationID:  lot.LocationID,
				Unit:        lot.Unit.String(),
				Quantity:    decimal.Zero,
				Value:       decimal.Zero,
			}
			groups[key] = group
		}
		group.Lots++
		group.Quantity = group.Quantity.Add(row.Balance)
		if lot.UnitPrice.Valid {
			group.Value = group.Value.Add(row.Balance.Mul(lot.UnitPrice.Decimal))
		} else {
			group.UnpricedLots++
		}
	}

	out := make([]dto.StockSummaryRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeName != out[j].TradeName {
			return out[i].TradeName < out[j].TradeName
		}
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Unit < out[j].Unit
	})
	return out, nil
}
