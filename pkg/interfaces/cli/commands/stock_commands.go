package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/interfaces/cli/output"
)

// decimalFlag is a flag.Value holding a decimal; Set rejects non-numbers
type decimalFlag struct {
	value decimal.Decimal
	set   bool
}

func (d *decimalFlag) String() string {
	if d == nil || !d.set {
		return ""
	}
	return d.value.String()
}

func (d *decimalFlag) Set(s string) error {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	d.value, d.set = v, true
	return nil
}

var _ flag.Value = (*decimalFlag)(nil)

func runProducts(ctx context.Context, a *App, args []string) error {
	var (
		opts        options
		productType string
	)
	fs := newFlagSet("products", &opts)
	fs.StringVar(&productType, "type", "", "only products of this type")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	products, err := s.svc.Catalog.ListProducts(ctx, productType)
	if err != nil {
		return err
	}
	return a.render(output.ProductsReport(products), opts)
}

func runLots(ctx context.Context, a *App, args []string) error {
	var (
		opts       options
		product    string
		location   string
		expiring   int
		byReceived bool
		inStock    bool
	)
	fs := newFlagSet("lots", &opts)
	fs.StringVar(&product, "product", "", "product id or trade name")
	fs.StringVar(&location, "location", "", "only lots at this location")
	fs.IntVar(&expiring, "expiring", -1, "only lots expiring within this many days")
	fs.BoolVar(&byReceived, "by-received", false, "order by receipt date instead of FIFO priority")
	fs.BoolVar(&inStock, "in-stock", false, "hide empty lots")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	q := dto.LotQuery{LocationID: location, ByReceived: byReceived, InStockOnly: inStock}
	if product != "" {
		if q.ProductID, err = resolveProduct(ctx, s, product); err != nil {
			return err
		}
	}
	if expiring >= 0 {
		q.ExpiringWithinDays = &expiring
	}
	rows, err := s.svc.Ledger.ListLotsWithBalance(ctx, q)
	if err != nil {
		return err
	}
	return a.render(output.LotsReport(rows), opts)
}

func runMovements(ctx context.Context, a *App, args []string) error {
	var (
		opts options
		lot  string
	)
	fs := newFlagSet("movements", &opts)
	fs.StringVar(&lot, "lot", "", "lot id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if lot == "" {
		return fmt.Errorf("%w: movements: -lot is required", ErrUsage)
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	movements, err := s.svc.Ledger.ListMovements(ctx, lot)
	if err != nil {
		return err
	}
	return a.render(output.MovementsReport(lot, movements), opts)
}

// allocationFlags are shared by allocate and withdraw
type allocationFlags struct {
	product string
	qty     decimalFlag
	unit    string
}

func (f *allocationFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.product, "product", "", "product id or trade name")
	fs.Var(&f.qty, "qty", "quantity")
	fs.StringVar(&f.unit, "unit", "", "l or kg")
}

func (f *allocationFlags) request(ctx context.Context, s *session) (dto.AllocationRequest, error) {
	if !f.qty.set {
		return dto.AllocationRequest{}, entities.NewValidationError("qty", "is required")
	}
	id, err := resolveProduct(ctx, s, f.product)
	if err != nil {
		return dto.AllocationRequest{}, err
	}
	return dto.AllocationRequest{ProductID: id, Quantity: f.qty.value, Unit: f.unit}, nil
}

func runAllocate(ctx context.Context, a *App, args []string) error {
	var (
		opts    options
		alloc   allocationFlags
		partial bool
	)
	fs := newFlagSet("allocate", &opts)
	alloc.register(fs)
	fs.BoolVar(&partial, "partial", false, "report a shortfall instead of failing")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	req, err := alloc.request(ctx, s)
	if err != nil {
		return err
	}
	var view *dto.AllocationView
	if partial {
		view, err = s.svc.Ledger.Preview(ctx, req)
	} else {
		view, err = s.svc.Ledger.Allocate(ctx, req)
	}
	if err != nil {
		return err
	}
	return a.render(output.AllocationReport(view), opts)
}

func runWithdraw(ctx context.Context, a *App, args []string) error {
	var (
		opts   options
		alloc  allocationFlags
		date   string
		reason string
		notes  string
	)
	fs := newFlagSet("withdraw", &opts)
	alloc.register(fs)
	fs.StringVar(&date, "date", "", "effective date YYYY-MM-DD (default today)")
	fs.StringVar(&reason, "reason", "", "why the stock left")
	fs.StringVar(&notes, "notes", "", "free text")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	req, err := alloc.request(ctx, s)
	if err != nil {
		return err
	}
	when, err := parseDate("date", date)
	if err != nil {
		return err
	}
	view, err := s.svc.Ledger.Withdraw(ctx, dto.WithdrawRequest{AllocationRequest: req, Date: when, Reason: reason, Notes: notes})
	if err != nil {
		return err
	}
	return a.render(output.WithdrawalReport(view), opts)
}

func runActiveStock(ctx context.Context, a *App, args []string) error {
	var (
		opts options
		name string
	)
	fs := newFlagSet("active-stock", &opts)
	fs.StringVar(&name, "name", "", "active substance name or synonym")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	stock, err := s.svc.Stock.StockForActive(ctx, name)
	if err != nil {
		return err
	}
	return a.render(output.ActiveStockReport(stock), opts)
}

func runSummary(ctx context.Context, a *App, args []string) error {
	var opts options
	fs := newFlagSet("summary", &opts)
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	rows, err := s.svc.Stock.StockSummary(ctx)
	if err != nil {
		return err
	}
	return a.render(output.StockSummaryReport(rows), opts)
}
