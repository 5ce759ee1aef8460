package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/interfaces/cli/output"
)

// parseItems reads "product:dose:unit" entries separated by commas.
// The product part may itself contain colons.
func parseItems(ctx context.Context, s *session, raw string) ([]dto.MixItemInput, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var items []dto.MixItemInput
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		unitAt := strings.LastIndex(entry, ":")
		if unitAt <= 0 {
			return nil, entities.NewValidationError("items", fmt.Sprintf("%q: expected product:dose:unit", entry))
		}
		doseAt := strings.LastIndex(entry[:unitAt], ":")
		if doseAt <= 0 {
			return nil, entities.NewValidationError("items", fmt.Sprintf("%q: expected product:dose:unit", entry))
		}
		dose, err := decimal.NewFromString(strings.TrimSpace(entry[doseAt+1 : unitAt]))
		if err != nil {
			return nil, entities.NewValidationError("items", fmt.Sprintf("%q: invalid dose", entry))
		}
		id, err := resolveProduct(ctx, s, strings.TrimSpace(entry[:doseAt]))
		if err != nil {
			return nil, err
		}
		items = append(items, dto.MixItemInput{ProductID: id, Dose: dose, DoseUnit: strings.TrimSpace(entry[unitAt+1:])})
	}
	return items, nil
}

func runApply(ctx context.Context, a *App, args []string) error {
	var (
		opts     options
		parcel   string
		area     decimalFlag
		date     string
		mixID    string
		items    string
		operator string
		machine  string
		water    decimalFlag
		tank     decimalFlag
	)
	fs := newFlagSet("apply", &opts)
	fs.StringVar(&parcel, "parcel", "", "parcel reference")
	fs.Var(&area, "area", "treated area in hectares")
	fs.StringVar(&date, "date", "", "application date YYYY-MM-DD (default today)")
	fs.StringVar(&mixID, "mix", "", "saved tank mix id")
	fs.StringVar(&items, "items", "", `doses as "product:dose:unit,..." e.g. "Roundup:1.5:L/ha"`)
	fs.StringVar(&operator, "operator", "", "operator name")
	fs.StringVar(&machine, "machine", "", "sprayer")
	fs.Var(&water, "water", "spray volume in L/ha")
	fs.Var(&tank, "tank", "tank volume in litres")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	when, err := parseDate("date", date)
	if err != nil {
		return err
	}
	inputs, err := parseItems(ctx, s, items)
	if err != nil {
		return err
	}
	req := dto.CreateApplicationRequest{
		ParcelRef: parcel,
		Date:      when,
		AreaHa:    area.value,
		MixID:     mixID,
		Operator:  operator,
		Machine:   machine,
		Items:     inputs,
	}
	if water.set {
		req.WaterLPerHa = decimal.NewNullDecimal(water.value)
	}
	if tank.set {
		req.TankVolumeL = decimal.NewNullDecimal(tank.value)
	}
	app, err := s.svc.Applications.CreateApplication(ctx, req)
	if err != nil {
		return err
	}
	return a.render(output.ApplicationReport(app), opts)
}

func runApplications(ctx context.Context, a *App, args []string) error {
	var (
		opts   options
		parcel string
	)
	fs := newFlagSet("applications", &opts)
	fs.StringVar(&parcel, "parcel", "", "only this parcel")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	apps, err := s.svc.Applications.ListApplications(ctx, parcel)
	if err != nil {
		return err
	}
	return a.render(output.ApplicationsReport(apps), opts)
}
