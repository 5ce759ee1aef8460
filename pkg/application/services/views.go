package services

import (
	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/services"
)

func movementView(m entities.LedgerMovement) dto.MovementView {
	return dto.MovementView{
		ID:            string(m.ID),
		LotID:         string(m.LotID),
		Sequence:      m.Sequence,
		Direction:     m.Direction.String(),
		Quantity:      m.Quantity,
		Unit:          m.Unit.String(),
		EffectiveDate: m.EffectiveDate,
		RefType:       m.RefType,
		RefID:         m.RefID,
		Reason:        m.Reason,
		Notes:         m.Notes,
	}
}

func allocationView(result *entities.AllocationResult, lots map[entities.LotID]entities.StockLot) dto.AllocationView {
	view := dto.AllocationView{
		ProductID:   string(result.ProductID),
		Unit:        result.Unit.String(),
		Requested:   result.Requested,
		Allocated:   result.Allocated,
		Remaining:   result.Remaining,
		Covered:     result.Covered(),
		Allocations: make([]dto.AllocationLine, 0, len(result.Allocations)),
	}
	for _, a := range result.Allocations {
		lot := lots[a.LotID]
		view.Allocations = append(view.Allocations, dto.AllocationLine{
			LotID:     string(a.LotID),
			LotCode:   lot.LotCode,
			Quantity:  a.Quantity,
			UnitPrice: lot.UnitPrice,
		})
	}
	return view
}

func mixReportView(report *entities.MixReport) dto.MixReport {
	view := dto.MixReport{
		Summary: report.Summary.String(),
		Actives: append([]string{}, report.Actives...),
		Pairs:   make([]dto.PairCheck, 0, len(report.Pairs)),
	}
	for _, p := range report.Pairs {
		view.Pairs = append(view.Pairs, dto.PairCheck{A: p.A, B: p.B, Relation: p.Relation.String(), Notes: p.Notes})
	}
	return view
}

func mixView(mix *entities.TankMix, report dto.MixReport) *dto.MixView {
	view := &dto.MixView{
		ID:               string(mix.ID),
		Name:             mix.Name,
		WaterPH:          mix.WaterPH,
		WaterHardnessPPM: mix.WaterHardnessPPM,
		Notes:            mix.Notes,
		Items:            make([]dto.MixItemInput, 0, len(mix.Items)),
		Compatibility:    report,
		CreatedAt:        mix.CreatedAt,
	}
	for _, item := range mix.Items {
		view.Items = append(view.Items, dto.MixItemInput{
			ProductID: string(item.ProductID),
			Dose:      item.DosePerHa,
			DoseUnit:  services.DoseUnitString(item.DoseUnit),
		})
	}
	return view
}

func applicationView(app *entities.Application, names map[entities.ProductID]string) *dto.ApplicationView {
	view := &dto.ApplicationView{
		ID:          string(app.ID),
		ParcelRef:   app.ParcelRef,
		Date:        app.Date,
		AreaHa:      app.AreaHa,
		MixID:       string(app.MixID),
		Operator:    app.Operator,
		Machine:     app.Machine,
		WaterLPerHa: app.WaterLPerHa,
		TankVolumeL: app.TankVolumeL,
		Status:      app.Status,
		TotalCost:   app.TotalCost,
		Items:       make([]dto.ApplicationItemView, 0, len(app.Items)),
		CreatedAt:   app.CreatedAt,
	}
	for _, item := range app.Items {
		view.Items = append(view.Items, dto.ApplicationItemView{
			ProductID:  string(item.ProductID),
			TradeName:  names[item.ProductID],
			LotID:      string(item.FromLotID),
			AppliedQty: item.AppliedQty,
			Unit:       item.Unit.String(),
			UnitPrice:  item.UnitPrice,
			Cost:       item.Cost,
		})
	}
	return view
}

func activeView(a *entities.ActiveSubstance) dto.ActiveView {
	return dto.ActiveView{
		ID:        string(a.ID),
		Name:      a.Name,
		Synonyms:  append([]string(nil), a.Synonyms...),
		CASNumber: a.CASNumber,
		Notes:     a.Notes,
	}
}

func productView(p *entities.Product, actives []entities.ProductActive, names map[entities.ActiveID]string) *dto.ProductView {
	view := &dto.ProductView{
		ID:          string(p.ID),
		TradeName:   p.TradeName,
		ProductType: p.ProductType,
		Density:     p.Density,
		Formulation: p.Formulation,
		Supplier:    p.Supplier,
		Notes:       p.Notes,
		Actives:     make([]dto.ProductActiveView, 0, len(actives)),
	}
	if p.DefaultUnit.IsValid() {
		view.DefaultUnit = p.DefaultUnit.String()
	}
	for _, pa := range actives {
		view.Actives = append(view.Actives, dto.ProductActiveView{
			ActiveID:      string(pa.ActiveID),
			Name:          names[pa.ActiveID],
			Concentration: pa.Concentration,
			Unit:          pa.Unit.String(),
		})
	}
	return view
}
