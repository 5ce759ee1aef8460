package output

import (
	"fmt"
	"time"

	"github.com/vsinha/agrostock/pkg/application/dto"
)

const dateLayout = "2006-01-02"

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func datePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return date(*t)
}

// LotsReport lists lots with their balances
func LotsReport(rows []dto.LotRow) Report {
	t := Table{Headers: []string{"Product", "Lot", "Location", "Received", "Expiry", "Days", "Balance", "Unit", "Unit price", "Expiring"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.TradeName, r.LotCode, r.LocationID, date(r.ReceivedDate), datePtr(r.ExpiryDate),
			r.ExpiresInDays, r.Balance, r.Unit, r.UnitPrice, r.ExpiringSoon,
		})
	}
	return Report{Name: "lots", Title: "Lots", Value: rows, Table: t}
}

// MovementsReport lists one lot's ledger
func MovementsReport(lotID string, movements []dto.MovementView) Report {
	t := Table{Headers: []string{"Seq", "Date", "Direction", "Quantity", "Unit", "Ref", "Reason"}}
	for _, m := range movements {
		ref := m.RefType
		if m.RefID != "" {
			ref += ":" + m.RefID
		}
		t.Rows = append(t.Rows, []any{m.Sequence, date(m.EffectiveDate), m.Direction, m.Quantity, m.Unit, ref, m.Reason})
	}
	return Report{Name: "movements", Title: "Movements " + lotID, Value: movements, Table: t}
}

// AllocationReport shows the lots FIFO takes a request from
func AllocationReport(view *dto.AllocationView) Report {
	t := Table{Headers: []string{"Lot", "Quantity", "Unit price"}}
	for _, a := range view.Allocations {
		t.Rows = append(t.Rows, []any{a.LotCode, a.Quantity, a.UnitPrice})
	}
	footer := []string{fmt.Sprintf("Requested %s %s, allocated %s", view.Requested, view.Unit, view.Allocated)}
	if !view.Covered {
		footer = append(footer, fmt.Sprintf("Short by %s %s", view.Remaining, view.Unit))
	}
	return Report{Name: "allocation", Title: "Allocation", Value: view, Table: t, Footer: footer}
}

// WithdrawalReport is an allocation that was written to the ledger
func WithdrawalReport(view *dto.WithdrawalView) Report {
	report := AllocationReport(&view.AllocationView)
	report.Name = "withdrawal"
	report.Title = "Withdrawal"
	report.Value = view
	report.Footer = append(report.Footer, fmt.Sprintf("%d movement(s) written", len(view.MovementIDs)))
	return report
}

// ActiveStockReport breaks an active substance total down per lot
func ActiveStockReport(stock *dto.ActiveStock) Report {
	t := Table{Headers: []string{"Product", "Lot", "Location", "Quantity", "Unit", "Concentration", "Active kg"}}
	for _, e := range stock.Breakdown {
		mass := "unknown"
		if e.ActiveMassKg.Valid {
			mass = e.ActiveMassKg.Decimal.String()
		}
		t.Rows = append(t.Rows, []any{
			e.TradeName, e.LotCode, e.LocationID, e.LotQty, e.Unit,
			e.Concentration.String() + " " + e.ConcentrationUnit, mass,
		})
	}
	footer := []string{fmt.Sprintf("Total %s: %s kg", stock.Active, stock.TotalMassKg)}
	if stock.UnknownMassEntries > 0 {
		footer = append(footer, fmt.Sprintf("%d lot(s) excluded: density unknown", stock.UnknownMassEntries))
	}
	return Report{Name: "active_stock", Title: "Active stock " + stock.Active, Value: stock, Table: t, Footer: footer}
}

// StockSummaryReport totals positive balances per product, location and unit
func StockSummaryReport(rows []dto.StockSummaryRow) Report {
	t := Table{Headers: []string{"Product", "Type", "Location", "Quantity", "Unit", "Value", "Lots", "Unpriced"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.TradeName, r.ProductType, r.LocationID, r.Quantity, r.Unit, r.Value, r.Lots, r.UnpricedLots})
	}
	return Report{Name: "stock_summary", Title: "Stock summary", Value: rows, Table: t}
}

// MixReport lists the evaluated pairs of a mix
func MixReport(report *dto.MixReport) Report {
	t := Table{Headers: []string{"A", "B", "Relation", "Notes"}}
	for _, p := range report.Pairs {
		t.Rows = append(t.Rows, []any{p.A, p.B, p.Relation, p.Notes})
	}
	return Report{
		Name:   "mix_check",
		Title:  "Mix check",
		Value:  report,
		Table:  t,
		Footer: []string{"Verdict: " + report.Summary},
	}
}

// RulesReport lists compatibility rules
func RulesReport(rules []dto.PairCheck) Report {
	t := Table{Headers: []string{"A", "B", "Relation", "Notes"}}
	for _, p := range rules {
		t.Rows = append(t.Rows, []any{p.A, p.B, p.Relation, p.Notes})
	}
	return Report{Name: "rules", Title: "Compatibility rules", Value: rules, Table: t}
}

// ApplicationReport shows the lots and costs of one application
func ApplicationReport(app *dto.ApplicationView) Report {
	t := Table{Headers: []string{"Product", "Lot", "Quantity", "Unit", "Unit price", "Cost"}}
	for _, item := range app.Items {
		t.Rows = append(t.Rows, []any{item.TradeName, item.LotID, item.AppliedQty, item.Unit, item.UnitPrice, item.Cost})
	}
	return Report{
		Name:  "application",
		Title: "Application " + app.ParcelRef + " " + date(app.Date),
		Value: app,
		Table: t,
		Footer: []string{
			fmt.Sprintf("Area %s ha, total cost %s", app.AreaHa, app.TotalCost),
			"Application id: " + app.ID,
		},
	}
}

// ApplicationsReport lists applications, one row each
func ApplicationsReport(apps []*dto.ApplicationView) Report {
	t := Table{Headers: []string{"Date", "Parcel", "Area ha", "Items", "Total cost", "ID"}}
	for _, app := range apps {
		t.Rows = append(t.Rows, []any{date(app.Date), app.ParcelRef, app.AreaHa, len(app.Items), app.TotalCost, app.ID})
	}
	return Report{Name: "applications", Title: "Applications", Value: apps, Table: t}
}

// ProductsReport lists catalog products with their actives
func ProductsReport(products []*dto.ProductView) Report {
	t := Table{Headers: []string{"Product", "Type", "Density", "Unit", "Actives"}}
	for _, p := range products {
		actives := ""
		for i, a := range p.Actives {
			if i > 0 {
				actives += ", "
			}
			actives += fmt.Sprintf("%s %s %s", a.Name, a.Concentration, a.Unit)
		}
		t.Rows = append(t.Rows, []any{p.TradeName, p.ProductType, p.Density, p.DefaultUnit, actives})
	}
	return Report{Name: "products", Title: "Products", Value: products, Table: t}
}
