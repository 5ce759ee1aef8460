package testing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	"github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/repositories/memory"
)

// FarmNow is the clock the farm scenario is written against.
// Lot RU-A expires 61 days later and RU-B 212 days later.
var FarmNow = time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC)

// Farm holds the ids of the seeded farm scenario
type Farm struct {
	Glyphosate entities.ActiveID
	TwoFourD   entities.ActiveID
	Copper     entities.ActiveID

	Roundup  entities.ProductID // 360 g/L glyphosate, density 1.17
	GlyphoWG entities.ProductID // 75 %w/w glyphosate, solid, no density
	Amine    entities.ProductID // 480 g/L 2,4-D, no density
	Cuprex   entities.ProductID // 50 %w/w copper oxychloride, solid

	LotA      entities.LotID // Roundup RU-A, 10 l at 5.00, expires 2025-01-01
	LotB      entities.LotID // Roundup RU-B, 10 l at 6.00, expires 2025-06-01
	AmineLot  entities.LotID // 20 l, unpriced, no expiry
	CuprexLot entities.LotID // 25 kg at 12.50, expires 2026-03-01
	WGLot     entities.LotID // 8 kg at 9.00, no expiry
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// NewFarmStore returns an in-memory store seeded with the farm scenario
func NewFarmStore() (*memory.Store, *Farm) {
	store := memory.NewStore()
	farm, err := SeedFarm(context.Background(), store)
	if err != nil {
		panic(fmt.Sprintf("seed farm: %v", err))
	}
	return store, farm
}

// SeedFarm writes the farm scenario into any store in one unit of work:
// four actives, four products, five lots with opening movements and three
// compatibility rules (glyphosate + 2,4-D caution, glyphosate + copper
// oxychloride forbidden, 2,4-D + copper oxychloride allowed).
func SeedFarm(ctx context.Context, store repositories.Store) (*Farm, error) {
	farm := &Farm{}
	err := store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		actives := []*entities.ActiveSubstance{
			{Name: "Glyphosate", Synonyms: []string{"Glifosato", "glyphosate-isopropylammonium"}},
			{Name: "2,4-D", Synonyms: []string{"2,4-D amine"}},
			{Name: "Copper oxychloride"},
		}
		for _, a := range actives {
			a.ID = entities.ActiveID(entities.NewID())
			a.NormalizedName = services.NormalizeName(a.Name)
			if err := repos.Catalog.SaveActive(ctx, a); err != nil {
				return err
			}
		}
		farm.Glyphosate, farm.TwoFourD, farm.Copper = actives[0].ID, actives[1].ID, actives[2].ID

		products := []struct {
			product *entities.Product
			active  entities.ActiveID
			conc    string
			unit    entities.ConcentrationUnit
		}{
			{&entities.Product{TradeName: "Roundup", ProductType: entities.ProductTypeHerbicide,
				Density: price("1.17"), DefaultUnit: entities.Liquid}, farm.Glyphosate, "360", entities.MassPerVolume},
			{&entities.Product{TradeName: "Glypho 75 WG", ProductType: entities.ProductTypeHerbicide,
				DefaultUnit: entities.Solid}, farm.Glyphosate, "75", entities.PercentMassPerMass},
			{&entities.Product{TradeName: "Amine 480", ProductType: entities.ProductTypeHerbicide,
				DefaultUnit: entities.Liquid}, farm.TwoFourD, "480", entities.MassPerVolume},
			{&entities.Product{TradeName: "Cuprex", ProductType: "fungicide",
				DefaultUnit: entities.Solid}, farm.Copper, "50", entities.PercentMassPerMass},
		}
		for _, p := range products {
			p.product.ID = entities.ProductID(entities.NewID())
			p.product.NormalizedName = services.NormalizeName(p.product.TradeName)
			if err := repos.Catalog.SaveProduct(ctx, p.product); err != nil {
				return err
			}
			err := repos.Catalog.SaveProductActive(ctx, entities.ProductActive{
				ProductID:     p.product.ID,
				ActiveID:      p.active,
				Concentration: decimal.RequireFromString(p.conc),
				Unit:          p.unit,
			})
			if err != nil {
				return err
			}
		}
		farm.Roundup, farm.GlyphoWG = products[0].product.ID, products[1].product.ID
		farm.Amine, farm.Cuprex = products[2].product.ID, products[3].product.ID

		expiryA, expiryB, expiryCu := day(2025, 1, 1), day(2025, 6, 1), day(2026, 3, 1)
		lots := []struct {
			id       *entities.LotID
			product  entities.ProductID
			code     string
			received time.Time
			expiry   *time.Time
			unit     entities.QuantityUnit
			qty      string
			price    decimal.NullDecimal
		}{
			{&farm.LotA, farm.Roundup, "RU-A", day(2024, 3, 10), &expiryA, entities.Liquid, "10", price("5.00")},
			{&farm.LotB, farm.Roundup, "RU-B", day(2024, 2, 5), &expiryB, entities.Liquid, "10", price("6.00")},
			{&farm.AmineLot, farm.Amine, "AM-1", day(2024, 4, 1), nil, entities.Liquid, "20", decimal.NullDecimal{}},
			{&farm.CuprexLot, farm.Cuprex, "CU-1", day(2024, 5, 2), &expiryCu, entities.Solid, "25", price("12.50")},
			{&farm.WGLot, farm.GlyphoWG, "WG-1", day(2024, 6, 15), nil, entities.Solid, "8", price("9.00")},
		}
		for _, l := range lots {
			lot, err := entities.NewStockLot(l.product, "", l.code, l.received, l.expiry, l.unit, l.price)
			if err != nil {
				return err
			}
			if err := repos.Ledger.SaveLot(ctx, lot); err != nil {
				return err
			}
			opening, err := entities.NewLedgerMovement(lot, entities.In, decimal.RequireFromString(l.qty), l.unit, l.received)
			if err != nil {
				return err
			}
			opening.RefType = entities.RefReceipt
			opening.RefID = string(lot.ID)
			if err := repos.Ledger.AppendMovement(ctx, opening); err != nil {
				return err
			}
			*l.id = lot.ID
		}

		rules := []struct {
			a, b     string
			relation entities.Verdict
			notes    string
		}{
			{"glyphosate", "2,4-d", entities.Caution, "jar test first"},
			{"copper oxychloride", "glyphosate", entities.Forbidden, "copper antagonises glyphosate"},
			{"2,4-d", "copper oxychloride", entities.Allowed, ""},
		}
		for _, r := range rules {
			rule, err := entities.NewCompatibilityRule(services.NormalizeName(r.a), services.NormalizeName(r.b), r.relation, r.notes)
			if err != nil {
				return err
			}
			if err := repos.Compatibility.SaveRule(ctx, rule); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return farm, nil
}
