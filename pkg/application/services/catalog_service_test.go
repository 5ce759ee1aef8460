package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
)

func TestCatalogService_UpsertProductCreatesUnknownActives(t *testing.T) {
	svc := NewCatalogService(newEmptyDeps())
	ctx := context.Background()

	created, err := svc.UpsertProduct(ctx, dto.UpsertProductRequest{
		TradeName:   "Sencor 600 SC",
		ProductType: "Herbicide",
		Density:     decimal.NewNullDecimal(dec("1.2")),
		DefaultUnit: "litres",
		Actives:     []dto.ActiveInput{{Name: "Metribuzin", Concentration: dec("600"), Unit: "g/L"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "herbicide", created.ProductType)
	assert.Equal(t, "l", created.DefaultUnit)
	require.Len(t, created.Actives, 1)
	assert.Equal(t, "Metribuzin", created.Actives[0].Name)
	assert.Equal(t, "g/L", created.Actives[0].Unit)

	actives, err := svc.ListActives(ctx)
	require.NoError(t, err)
	require.Len(t, actives, 1)
	assert.Equal(t, created.Actives[0].ActiveID, actives[0].ID)

	// same trade name in another spelling updates the record and replaces its actives
	updated, err := svc.UpsertProduct(ctx, dto.UpsertProductRequest{
		TradeName: "  SENCOR 600 sc ",
		Actives: []dto.ActiveInput{
			{ActiveID: actives[0].ID, Concentration: dec("480"), Unit: "g/l"},
			{Name: "Flufenacet", Concentration: dec("120"), Unit: "g/L"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	require.Len(t, updated.Actives, 2)
	assertDecimal(t, "480", updated.Actives[0].Concentration)
	assert.False(t, updated.Density.Valid)

	products, err := svc.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestCatalogService_UpsertProductResolvesSynonyms(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewCatalogService(deps)

	view, err := svc.UpsertProduct(context.Background(), dto.UpsertProductRequest{
		TradeName: "Glifosat Plus",
		Actives:   []dto.ActiveInput{{Name: "glifosato", Concentration: dec("480"), Unit: "g/L"}},
	})
	require.NoError(t, err)
	require.Len(t, view.Actives, 1)
	assert.Equal(t, string(farm.Glyphosate), view.Actives[0].ActiveID)
	assert.Equal(t, "Glyphosate", view.Actives[0].Name)
}

func TestCatalogService_UpsertProductRefusals(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewCatalogService(deps)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.UpsertProductRequest
	}{
		{"empty name", dto.UpsertProductRequest{TradeName: "  "}},
		{"zero density", dto.UpsertProductRequest{TradeName: "X", Density: decimal.NewNullDecimal(decimal.Zero)}},
		{"bad default unit", dto.UpsertProductRequest{TradeName: "X", DefaultUnit: "bushel"}},
		{"percent over 100", dto.UpsertProductRequest{TradeName: "X",
			Actives: []dto.ActiveInput{{Name: "Copper", Concentration: dec("120"), Unit: "%w/w"}}}},
		{"zero concentration", dto.UpsertProductRequest{TradeName: "X",
			Actives: []dto.ActiveInput{{Name: "Copper", Concentration: decimal.Zero, Unit: "g/kg"}}}},
		{"unknown concentration unit", dto.UpsertProductRequest{TradeName: "X",
			Actives: []dto.ActiveInput{{Name: "Copper", Concentration: dec("5"), Unit: "ppm"}}}},
		{"active without name", dto.UpsertProductRequest{TradeName: "X",
			Actives: []dto.ActiveInput{{Concentration: dec("5"), Unit: "g/L"}}}},
		{"same active twice", dto.UpsertProductRequest{TradeName: "X",
			Actives: []dto.ActiveInput{
				{Name: "Glyphosate", Concentration: dec("360"), Unit: "g/L"},
				{Name: "Glifosato", Concentration: dec("120"), Unit: "g/L"},
			}}},
		{"trade name taken by another id", dto.UpsertProductRequest{ID: string(farm.Amine), TradeName: "Roundup"}},
		// Cuprex has kilogram lots: a g/L concentration would need a density it lacks
		{"stocked lots become inconvertible", dto.UpsertProductRequest{ID: string(farm.Cuprex), TradeName: "Cuprex",
			Actives: []dto.ActiveInput{{ActiveID: string(farm.Copper), Concentration: dec("500"), Unit: "g/L"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertProduct(ctx, tt.req)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}

	products, err := svc.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, products, 4)
	actives, err := svc.ListActives(ctx)
	require.NoError(t, err)
	assert.Len(t, actives, 3, "a refused upsert must not leave created actives behind")

	cuprex, err := svc.GetProduct(ctx, string(farm.Cuprex))
	require.NoError(t, err)
	assert.Equal(t, "%w/w", cuprex.Actives[0].Unit)
}

func TestCatalogService_ListProductsByType(t *testing.T) {
	deps, _, _ := newFarmDeps(t)
	svc := NewCatalogService(deps)

	herbicides, err := svc.ListProducts(context.Background(), "HERBICIDE")
	require.NoError(t, err)
	names := make([]string, 0, len(herbicides))
	for _, p := range herbicides {
		names = append(names, p.TradeName)
	}
	assert.Equal(t, []string{"Amine 480", "Glypho 75 WG", "Roundup"}, names)
}

func TestCatalogService_UpsertActive(t *testing.T) {
	deps, farm, bus := newFarmDeps(t)
	svc := NewCatalogService(deps)
	ctx := context.Background()

	view, err := svc.UpsertActive(ctx, dto.UpsertActiveRequest{
		Name:     "glyphosate",
		Synonyms: []string{"Glifosato", " glifosato ", "Glyphosate IPA", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, string(farm.Glyphosate), view.ID)
	assert.Equal(t, "glyphosate", view.Name)
	assert.Equal(t, []string{"Glifosato", "Glyphosate IPA"}, view.Synonyms)

	_, err = svc.UpsertActive(ctx, dto.UpsertActiveRequest{ID: string(farm.Copper), Name: "Glyphosate"})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = svc.UpsertActive(ctx, dto.UpsertActiveRequest{Name: " ,  "})
	assert.ErrorIs(t, err, entities.ErrValidation)

	bus.Wait()
	upserted, err := bus.ReadEvents(events.ActiveStream(farm.Glyphosate), 0)
	require.NoError(t, err)
	assert.Len(t, upserted, 1)
}

func TestCatalogService_DeleteRefusedWhileReferenced(t *testing.T) {
	deps, farm, _ := newFarmDeps(t)
	svc := NewCatalogService(deps)
	ctx := context.Background()

	err := svc.DeleteActive(ctx, string(farm.Glyphosate))
	assert.ErrorIs(t, err, entities.ErrInUse)

	err = svc.DeleteProduct(ctx, string(farm.Roundup))
	assert.ErrorIs(t, err, entities.ErrInUse)
	_, err = svc.GetProduct(ctx, string(farm.Roundup))
	assert.NoError(t, err)

	spare, err := svc.UpsertProduct(ctx, dto.UpsertProductRequest{
		TradeName: "Spare",
		Actives:   []dto.ActiveInput{{Name: "Clopyralid", Concentration: dec("100"), Unit: "g/L"}},
	})
	require.NoError(t, err)

	err = svc.DeleteActive(ctx, spare.Actives[0].ActiveID)
	assert.ErrorIs(t, err, entities.ErrInUse)

	require.NoError(t, svc.DeleteProduct(ctx, spare.ID))
	_, err = svc.GetProduct(ctx, spare.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, svc.DeleteActive(ctx, spare.Actives[0].ActiveID))
	assert.ErrorIs(t, svc.DeleteActive(ctx, spare.Actives[0].ActiveID), entities.ErrNotFound)
}
