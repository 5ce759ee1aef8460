package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/vsinha/agrostock/pkg/infrastructure/snapshot"
	"github.com/vsinha/agrostock/pkg/interfaces/cli/output"
)

func statsReport(title string, stats *snapshot.Stats) output.Report {
	return output.Report{
		Name:  "snapshot",
		Title: title,
		Value: stats,
		Table: output.Table{
			Headers: []string{"Actives", "Products", "Lots", "Movements", "Rules", "Mixes", "Applications"},
			Rows: [][]any{{
				stats.Actives, stats.Products, stats.Lots, stats.Movements,
				stats.Rules, stats.Mixes, stats.Applications,
			}},
		},
	}
}

func runExport(ctx context.Context, a *App, args []string) error {
	var (
		opts options
		out  string
	)
	fs := newFlagSet("export", &opts)
	fs.StringVar(&out, "out", "", "snapshot file to write")
	if err := parse(fs, args); err != nil {
		return err
	}
	if out == "" {
		return fmt.Errorf("%w: export: -out is required", ErrUsage)
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	stats, err := snapshot.Export(ctx, s.store, f, a.now())
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.log.Info().Str("file", out).Int("lots", stats.Lots).Int("movements", stats.Movements).Msg("snapshot written")
	return a.render(statsReport("Exported "+out, stats), opts)
}

func runImport(ctx context.Context, a *App, args []string) error {
	var (
		opts options
		in   string
	)
	fs := newFlagSet("import", &opts)
	fs.StringVar(&in, "in", "", "snapshot file to read")
	if err := parse(fs, args); err != nil {
		return err
	}
	if in == "" {
		return fmt.Errorf("%w: import: -in is required", ErrUsage)
	}
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", in, err)
	}
	defer f.Close()

	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	stats, err := snapshot.Import(ctx, s.store, f)
	if err != nil {
		return err
	}
	a.log.Info().Str("file", in).Int("lots", stats.Lots).Int("movements", stats.Movements).Msg("snapshot restored")
	return a.render(statsReport("Imported "+in, stats), opts)
}
