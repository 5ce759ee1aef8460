package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
)

func TestActiveStockService_MassPerVolume(t *testing.T) {
	deps := newEmptyDeps()
	catalog := NewCatalogService(deps)
	ledger := NewLedgerService(deps)
	svc := NewActiveStockService(deps)
	ctx := context.Background()

	product, err := catalog.UpsertProduct(ctx, dto.UpsertProductRequest{
		TradeName: "Herbix",
		Actives:   []dto.ActiveInput{{Name: "Glyphosate", Concentration: dec("360"), Unit: "g/L"}},
	})
	require.NoError(t, err)
	_, err = ledger.CreateLot(ctx, dto.CreateLotRequest{
		ProductID: product.ID, LotCode: "H-1", ReceivedDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		Unit: "l", Quantity: dec("10"),
	})
	require.NoError(t, err)

	stock, err := svc.StockForActive(ctx, "GLYPHOSATE")
	require.NoError(t, err)
	assert.Equal(t, "Glyphosate", stock.Active)
	assertDecimal(t, "3.6", stock.TotalMassKg)
	assert.Zero(t, stock.UnknownMassEntries)
	require.Len(t, stock.Breakdown, 1)
	assert.Equal(t, "Herbix", stock.Breakdown[0].TradeName)
	assert.Equal(t, "g/L", stock.Breakdown[0].ConcentrationUnit)
	require.True(t, stock.Breakdown[0].ActiveMassKg.Valid)
	assertDecimal(t, "3.6", stock.Breakdown[0].ActiveMassKg.Decimal)
}

func TestActiveStockService_CrossBasisUsesDensity(t *testing.T) {
	deps := newEmptyDeps()
	catalog := NewCatalogService(deps)
	ledger := NewLedgerService(deps)
	svc := NewActiveStockService(deps)
	ctx := context.Background()

	// 10 l at 1.2 kg/l is 12 kg of product, half of it active
	product, err := catalog.UpsertProduct(ctx, dto.UpsertProductRequest{
		TradeName: "Cupro Flow",
		Density:   decimal.NewNullDecimal(dec("1.2")),
		Actives:   []dto.ActiveInput{{Name: "Copper hydroxide", Concentration: dec("50"), Unit: "%w/w"}},
	})
	require.NoError(t, err)
	_, err = ledger.CreateLot(ctx, dto.CreateLotRequest{
		ProductID: product.ID, LotCode: "CF-1", ReceivedDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		Unit: "l", Quantity: dec("10"),
	})
	require.NoError(t, err)

	stock, err := svc.StockForActive(ctx, "copper hydroxide")
	require.NoError(t, err)
	assertDecimal(t, "6", stock.TotalMassKg)
}

func TestActiveStockService_FarmTotalsAndSynonyms(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewActiveStockService(deps)
	ledger := NewLedgerService(deps)
	ctx := context.Background()

	// Roundup 20 l at 360 g/L plus Glypho 75 WG 8 kg at 75 %w/w
	stock, err := svc.StockForActive(ctx, "Glifosato")
	require.NoError(t, err)
	assert.Equal(t, string(farm.Glyphosate), stock.ActiveID)
	assertDecimal(t, "13.2", stock.TotalMassKg)
	assert.Len(t, stock.Breakdown, 3)

	// emptied lots drop out of the breakdown
	_, err = ledger.Withdraw(ctx, dto.WithdrawRequest{AllocationRequest: roundupRequest(farm, "10")})
	require.NoError(t, err)
	stock, err = svc.StockForActive(ctx, "glyphosate")
	require.NoError(t, err)
	assertDecimal(t, "9.6", stock.TotalMassKg)
	require.Len(t, stock.Breakdown, 2)
	for _, entry := range stock.Breakdown {
		assert.NotEqual(t, string(farm.LotA), entry.LotID)
	}

	_, err = svc.StockForActive(ctx, "atrazine")
	assert.ErrorIs(t, err, entities.ErrNotFound)
	_, err = svc.StockForActive(ctx, "   ")
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestActiveStockService_UnknownMassStaysInBreakdown(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewActiveStockService(deps)
	ctx := context.Background()

	// a kilogram lot of a g/L product without density, as imported from legacy data
	err := deps.Store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		product := &entities.Product{ID: "legacy", TradeName: "Legacy Glyph", NormalizedName: "legacy glyph"}
		if err := repos.Catalog.SaveProduct(ctx, product); err != nil {
			return err
		}
		err := repos.Catalog.SaveProductActive(ctx, entities.ProductActive{
			ProductID: product.ID, ActiveID: farm.Glyphosate, Concentration: dec("360"), Unit: entities.MassPerVolume,
		})
		if err != nil {
			return err
		}
		lot, err := entities.NewStockLot(product.ID, "", "LG-1", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), nil, entities.Solid, decimal.NullDecimal{})
		if err != nil {
			return err
		}
		if err := repos.Ledger.SaveLot(ctx, lot); err != nil {
			return err
		}
		in, err := entities.NewLedgerMovement(lot, entities.In, dec("4"), entities.Solid, lot.ReceivedDate)
		if err != nil {
			return err
		}
		return repos.Ledger.AppendMovement(ctx, in)
	})
	require.NoError(t, err)

	stock, err := svc.StockForActive(ctx, "glyphosate")
	require.NoError(t, err)
	assertDecimal(t, "13.2", stock.TotalMassKg)
	assert.Equal(t, 1, stock.UnknownMassEntries)
	require.Len(t, stock.Breakdown, 4)

	var unknown *dto.ActiveStockEntry
	for i := range stock.Breakdown {
		if stock.Breakdown[i].LotCode == "LG-1" {
			unknown = &stock.Breakdown[i]
		}
	}
	require.NotNil(t, unknown)
	assert.False(t, unknown.ActiveMassKg.Valid)
	assertDecimal(t, "4", unknown.LotQty)
}

func TestActiveStockService_StockSummary(t *testing.T) {
	deps, _, _ := newFarmDeps(t)
	svc := NewActiveStockService(deps)

	rows, err := svc.StockSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	names := []string{rows[0].TradeName, rows[1].TradeName, rows[2].TradeName, rows[3].TradeName}
	assert.Equal(t, []string{"Amine 480", "Cuprex", "Glypho 75 WG", "Roundup"}, names)

	assertDecimal(t, "20", rows[0].Quantity)
	assertDecimal(t, "0", rows[0].Value)
	assert.Equal(t, 1, rows[0].UnpricedLots)

	assertDecimal(t, "312.5", rows[1].Value)
	assert.Equal(t, "kg", rows[1].Unit)

	roundup := rows[3]
	assertDecimal(t, "20", roundup.Quantity)
	assertDecimal(t, "110", roundup.Value)
	assert.Equal(t, 2, roundup.Lots)
	assert.Equal(t, "main", roundup.LocationID)
}
