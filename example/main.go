package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/application/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	deps := services.Deps{Store: memory.NewStore()}
	catalog := services.NewCatalogService(deps)
	ledger := services.NewLedgerService(deps)
	stock := services.NewActiveStockService(deps)
	mix := services.NewMixService(deps)

	if _, err := catalog.UpsertActive(ctx, dto.UpsertActiveRequest{
		Name:     "Glyphosate",
		Synonyms: []string{"Glifosato"},
	}); err != nil {
		log.Fatal(err)
	}

	roundup, err := catalog.UpsertProduct(ctx, dto.UpsertProductRequest{
		TradeName:   "Roundup",
		ProductType: "herbicide",
		Density:     decimal.NewNullDecimal(decimal.RequireFromString("1.17")),
		DefaultUnit: "l",
		Actives: []dto.ActiveInput{
			{Name: "Glyphosate", Concentration: decimal.NewFromInt(360), Unit: "g/L"},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	// Two deliveries; the older one is drawn first
	for _, lot := range []struct {
		code     string
		received time.Time
		qty      int64
		price    string
	}{
		{"RU-A", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 10, "5.00"},
		{"RU-B", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), 20, "6.00"},
	} {
		if _, err := ledger.CreateLot(ctx, dto.CreateLotRequest{
			ProductID:    roundup.ID,
			LotCode:      lot.code,
			ReceivedDate: lot.received,
			Unit:         "l",
			Quantity:     decimal.NewFromInt(lot.qty),
			UnitPrice:    decimal.NewNullDecimal(decimal.RequireFromString(lot.price)),
		}); err != nil {
			log.Fatal(err)
		}
	}

	withdrawal, err := ledger.Withdraw(ctx, dto.WithdrawRequest{
		AllocationRequest: dto.AllocationRequest{
			ProductID: roundup.ID,
			Quantity:  decimal.NewFromInt(15),
			Unit:      "l",
		},
		Reason: "spraying",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Withdrew %s %s of %s:\n", withdrawal.Allocated, withdrawal.Unit, roundup.TradeName)
	for _, line := range withdrawal.Allocations {
		fmt.Printf("  %-6s %s\n", line.LotCode, line.Quantity)
	}

	lots, err := ledger.ListLotsWithBalance(ctx, dto.LotQuery{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("\nBalances:")
	for _, lot := range lots {
		fmt.Printf("  %-6s %s %s\n", lot.LotCode, lot.Balance, lot.Unit)
	}

	glyphosate, err := stock.StockForActive(ctx, "glifosato")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\n%s on hand: %s kg\n", glyphosate.Active, glyphosate.TotalMassKg.StringFixed(3))

	if _, err := mix.SaveRule(ctx, dto.RuleRequest{
		A:        "Glyphosate",
		B:        "Copper oxychloride",
		Relation: "forbidden",
		Notes:    "copper binds glyphosate",
	}); err != nil {
		log.Fatal(err)
	}
	check, err := mix.Check(ctx, "copper oxychloride", "glyphosate")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Glyphosate + copper oxychloride: %s (%s)\n", check.Relation, check.Notes)
}
