package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vsinha/agrostock/pkg/infrastructure/rules"
	"github.com/vsinha/agrostock/pkg/interfaces/cli/output"
)

func runMix(ctx context.Context, a *App, args []string) error {
	var (
		opts     options
		first    string
		second   string
		products string
	)
	fs := newFlagSet("mix", &opts)
	fs.StringVar(&first, "a", "", "first active substance")
	fs.StringVar(&second, "b", "", "second active substance")
	fs.StringVar(&products, "products", "", "comma separated product ids or trade names")
	if err := parse(fs, args); err != nil {
		return err
	}
	if (products == "") == (first == "" && second == "") {
		return fmt.Errorf("%w: mix: give either -a and -b or -products", ErrUsage)
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	if products == "" {
		pair, err := s.svc.Mix.Check(ctx, first, second)
		if err != nil {
			return err
		}
		report := output.RulesReport(nil)
		report.Name, report.Title, report.Value = "mix_check", "Mix check", pair
		report.Table.Rows = [][]any{{pair.A, pair.B, pair.Relation, pair.Notes}}
		report.Footer = []string{"Verdict: " + pair.Relation}
		return a.render(report, opts)
	}

	var ids []string
	for _, ref := range strings.Split(products, ",") {
		id, err := resolveProduct(ctx, s, strings.TrimSpace(ref))
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	report, err := s.svc.Mix.CheckItems(ctx, ids)
	if err != nil {
		return err
	}
	return a.render(output.MixReport(report), opts)
}

func runRules(ctx context.Context, a *App, args []string) error {
	var (
		opts  options
		write string
	)
	fs := newFlagSet("rules", &opts)
	fs.StringVar(&write, "write", "", "also save the rules as YAML to this file")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	list, err := s.svc.Mix.ListRules(ctx)
	if err != nil {
		return err
	}
	if write != "" {
		f, err := os.Create(write)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", write, err)
		}
		if err := rules.Write(f, list); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return a.render(output.RulesReport(list), opts)
}
