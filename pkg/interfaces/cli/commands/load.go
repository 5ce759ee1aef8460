package commands

import (
	"context"
	"fmt"

	domain "github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/agrostock/pkg/infrastructure/rules"
	"github.com/vsinha/agrostock/pkg/interfaces/cli/output"
	"github.com/vsinha/agrostock/pkg/interfaces/httpapi"
)

// loadStats counts what a load wrote
type loadStats struct {
	Actives  int `json:"actives"`
	Products int `json:"products"`
	Lots     int `json:"lots"`
	Rules    int `json:"rules"`
}

// loadScenario upserts the scenario's actives and products, receives its lots and applies
// its rules.yaml when the directory has one. Lots name their product by trade name.
func loadScenario(ctx context.Context, svc *httpapi.Services, dir string) (*loadStats, error) {
	scenario, err := csv.NewLoader().LoadDirectory(dir)
	if err != nil {
		return nil, err
	}

	stats := &loadStats{}
	for _, req := range scenario.Actives {
		if _, err := svc.Catalog.UpsertActive(ctx, req); err != nil {
			return nil, fmt.Errorf("active %q: %w", req.Name, err)
		}
		stats.Actives++
	}
	ids := make(map[string]string, len(scenario.Products))
	for _, req := range scenario.Products {
		product, err := svc.Catalog.UpsertProduct(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", req.TradeName, err)
		}
		ids[domain.NormalizeName(product.TradeName)] = product.ID
		stats.Products++
	}

	for _, rec := range scenario.Lots {
		id, ok := ids[domain.NormalizeName(rec.TradeName)]
		if !ok {
			found, err := svc.Catalog.ListProducts(ctx, "")
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				ids[domain.NormalizeName(p.TradeName)] = p.ID
			}
			if id, ok = ids[domain.NormalizeName(rec.TradeName)]; !ok {
				return nil, fmt.Errorf("lots CSV row %d: unknown trade_name %q", rec.Row, rec.TradeName)
			}
		}
		req := rec.Request
		req.ProductID = id
		if _, err := svc.Ledger.CreateLot(ctx, req); err != nil {
			return nil, fmt.Errorf("lots CSV row %d: %w", rec.Row, err)
		}
		stats.Lots++
	}

	if path := scenarioRules(dir); path != "" {
		n, err := loadRules(ctx, svc, path)
		if err != nil {
			return nil, err
		}
		stats.Rules = n
	}
	return stats, nil
}

func loadRules(ctx context.Context, svc *httpapi.Services, path string) (int, error) {
	list, err := rules.LoadFile(path)
	if err != nil {
		return 0, err
	}
	n, err := rules.Apply(ctx, svc.Mix, list)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func runLoad(ctx context.Context, a *App, args []string) error {
	var opts options
	fs := newFlagSet("load", &opts)
	if err := parse(fs, args); err != nil {
		return err
	}
	if opts.scenario == "" {
		return fmt.Errorf("%w: load: -scenario is required", ErrUsage)
	}

	// open loads nothing itself so the stats below cover the scenario alone
	scenario := opts.scenario
	opts.scenario = ""
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	stats, err := loadScenario(ctx, s.svc, scenario)
	if err != nil {
		return err
	}
	a.log.Info().Int("actives", stats.Actives).Int("products", stats.Products).Int("lots", stats.Lots).Int("rules", stats.Rules).Str("dir", scenario).Msg("scenario loaded")

	return a.render(output.Report{
		Name:  "load",
		Title: "Loaded " + scenario,
		Value: stats,
		Table: output.Table{
			Headers: []string{"Actives", "Products", "Lots", "Rules"},
			Rows:    [][]any{{stats.Actives, stats.Products, stats.Lots, stats.Rules}},
		},
	}, opts)
}
