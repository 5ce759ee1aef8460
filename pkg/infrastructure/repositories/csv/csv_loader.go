package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/domain/services"
)

// Scenario file names looked up by LoadDirectory
const (
	ActivesFile        = "actives.csv"
	ProductsFile       = "products.csv"
	ProductActivesFile = "product_actives.csv"
	LotsFile           = "lots.csv"
)

const dateLayout = "2006-01-02"

var (
	activesHeader        = []string{"name", "synonyms", "cas_number"}
	productsHeader       = []string{"trade_name", "product_type", "density", "default_unit", "formulation", "supplier"}
	productActivesHeader = []string{"trade_name", "active", "concentration", "unit"}
	lotsHeader           = []string{"trade_name", "lot_code", "location", "received_date", "expiry_date", "unit", "quantity", "unit_price"}
)

// LotRecord is a lot row still addressed by the product's trade name.
// The product id is resolved once the catalog has been loaded.
type LotRecord struct {
	Row       int
	TradeName string
	Request   dto.CreateLotRequest
}

// Scenario is the content of a scenario directory
type Scenario struct {
	Actives  []dto.UpsertActiveRequest
	Products []dto.UpsertProductRequest
	Lots     []LotRecord
}

// Loader reads catalog and stock scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadDirectory reads products.csv and, when present, actives.csv,
// product_actives.csv and lots.csv
func (l *Loader) LoadDirectory(dir string) (*Scenario, error) {
	products, err := os.Open(filepath.Join(dir, ProductsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open products file: %w", err)
	}
	defer products.Close()

	scenario := &Scenario{}
	if f, err := os.Open(filepath.Join(dir, ActivesFile)); err == nil {
		defer f.Close()
		if scenario.Actives, err = l.ParseActives(f); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open actives file: %w", err)
	}

	var actives io.Reader
	if f, err := os.Open(filepath.Join(dir, ProductActivesFile)); err == nil {
		defer f.Close()
		actives = f
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open product actives file: %w", err)
	}

	scenario.Products, err = l.ParseProducts(products, actives)
	if err != nil {
		return nil, err
	}

	lots, err := os.Open(filepath.Join(dir, LotsFile))
	if errors.Is(err, os.ErrNotExist) {
		return scenario, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open lots file: %w", err)
	}
	defer lots.Close()

	scenario.Lots, err = l.ParseLots(lots)
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

// ParseActives reads active substance rows. Synonyms are separated by "|".
func (l *Loader) ParseActives(r io.Reader) ([]dto.UpsertActiveRequest, error) {
	records, err := readRecords(r, "actives", activesHeader)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UpsertActiveRequest, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, record := range records {
		row := i + 2
		name := strings.TrimSpace(record[0])
		key := services.NormalizeName(name)
		if key == "" {
			return nil, fmt.Errorf("actives CSV row %d: name cannot be empty", row)
		}
		if seen[key] {
			return nil, fmt.Errorf("actives CSV row %d: duplicate name %q", row, name)
		}
		seen[key] = true

		var synonyms []string
		for _, syn := range strings.Split(record[1], "|") {
			if syn = strings.TrimSpace(syn); syn != "" {
				synonyms = append(synonyms, syn)
			}
		}
		out = append(out, dto.UpsertActiveRequest{
			Name:      name,
			Synonyms:  synonyms,
			CASNumber: strings.TrimSpace(record[2]),
		})
	}
	return out, nil
}

// ParseProducts reads product rows and attaches the active rows to them by
// normalized trade name. actives may be nil.
func (l *Loader) ParseProducts(products, actives io.Reader) ([]dto.UpsertProductRequest, error) {
	records, err := readRecords(products, "products", productsHeader)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UpsertProductRequest, 0, len(records))
	index := make(map[string]int, len(records))
	for i, record := range records {
		row := i + 2
		name := strings.TrimSpace(record[0])
		key := services.NormalizeName(name)
		if key == "" {
			return nil, fmt.Errorf("products CSV row %d: trade_name cannot be empty", row)
		}
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("products CSV row %d: duplicate trade_name %q", row, name)
		}
		density, err := parseOptionalDecimal(record[2])
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: density: %w", row, err)
		}
		index[key] = len(out)
		out = append(out, dto.UpsertProductRequest{
			TradeName:   name,
			ProductType: strings.TrimSpace(record[1]),
			Density:     density,
			DefaultUnit: strings.TrimSpace(record[3]),
			Formulation: strings.TrimSpace(record[4]),
			Supplier:    strings.TrimSpace(record[5]),
			Actives:     []dto.ActiveInput{},
		})
	}

	if actives == nil {
		return out, nil
	}
	records, err = readRecords(actives, "product actives", productActivesHeader)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		row := i + 2
		pos, ok := index[services.NormalizeName(record[0])]
		if !ok {
			return nil, fmt.Errorf("product actives CSV row %d: unknown trade_name %q", row, record[0])
		}
		concentration, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("product actives CSV row %d: invalid concentration %q", row, record[2])
		}
		out[pos].Actives = append(out[pos].Actives, dto.ActiveInput{
			Name:          strings.TrimSpace(record[1]),
			Concentration: concentration,
			Unit:          strings.TrimSpace(record[3]),
		})
	}
	return out, nil
}

// ParseLots reads lot rows. Dates are YYYY-MM-DD; expiry_date and unit_price may be blank.
func (l *Loader) ParseLots(r io.Reader) ([]LotRecord, error) {
	records, err := readRecords(r, "lots", lotsHeader)
	if err != nil {
		return nil, err
	}

	out := make([]LotRecord, 0, len(records))
	for i, record := range records {
		row := i + 2
		received, err := time.Parse(dateLayout, strings.TrimSpace(record[3]))
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: invalid received_date %q (expected YYYY-MM-DD)", row, record[3])
		}
		var expiry *time.Time
		if s := strings.TrimSpace(record[4]); s != "" {
			t, err := time.Parse(dateLayout, s)
			if err != nil {
				return nil, fmt.Errorf("lots CSV row %d: invalid expiry_date %q (expected YYYY-MM-DD)", row, record[4])
			}
			expiry = &t
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(record[6]))
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: invalid quantity %q", row, record[6])
		}
		price, err := parseOptionalDecimal(record[7])
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: unit_price: %w", row, err)
		}

		out = append(out, LotRecord{
			Row:       row,
			TradeName: strings.TrimSpace(record[0]),
			Request: dto.CreateLotRequest{
				LotCode:      strings.TrimSpace(record[1]),
				LocationID:   strings.TrimSpace(record[2]),
				ReceivedDate: received,
				ExpiryDate:   expiry,
				Unit:         strings.TrimSpace(record[5]),
				Quantity:     qty,
				UnitPrice:    price,
			},
		})
	}
	return out, nil
}

// readRecords returns the data rows after checking the header
func readRecords(r io.Reader, name string, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", name)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, records[0])
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func parseOptionalDecimal(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid number %q", s)
	}
	return decimal.NewNullDecimal(d), nil
}

// validateHeader compares column names case-insensitively
func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}
