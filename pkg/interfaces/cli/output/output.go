package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	// Stdout receives output when no directory is set; os.Stdout when nil
	Stdout io.Writer
}

// Report is one result ready for rendering. Value is what JSON encodes;
// Table is what the other formats lay out.
type Report struct {
	Name  string
	Title string
	Value any
	Table Table
	// Footer lines follow the table in text output
	Footer []string
}

// Table is a header row and data rows. Cells are strings, ints or decimals.
type Table struct {
	Headers []string
	Rows    [][]any
}

// Generate renders report in the configured format
func Generate(report Report, config Config) error {
	switch config.Format {
	case "", FormatText:
		return config.emit(report.Name+".txt", func(w io.Writer) error { return writeText(w, report) })
	case FormatJSON:
		return config.emit(report.Name+".json", func(w io.Writer) error { return writeJSON(w, report.Value) })
	case FormatCSV:
		return config.emit(report.Name+".csv", func(w io.Writer) error { return writeCSV(w, report.Table) })
	case FormatXLSX:
		if config.OutputDir == "" {
			return fmt.Errorf("output directory required for xlsx format")
		}
		return config.emit(report.Name+".xlsx", func(w io.Writer) error { return writeXLSX(w, report) })
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// emit writes to stdout, or to filename inside the output directory
func (c Config) emit(filename string, write func(io.Writer) error) error {
	if c.OutputDir == "" {
		out := c.Stdout
		if out == nil {
			out = os.Stdout
		}
		return write(out)
	}

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(c.OutputDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if c.Verbose && c.Stdout != nil {
		fmt.Fprintf(c.Stdout, "Results saved to: %s\n", path)
	}
	return nil
}

func writeText(w io.Writer, report Report) error {
	if report.Title != "" {
		fmt.Fprintf(w, "%s\n%s\n\n", report.Title, strings.Repeat("=", len(report.Title)))
	}
	if len(report.Table.Rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(report.Table.Headers, "\t"))
		for _, row := range report.Table.Rows {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = cellString(cell)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(report.Footer) > 0 {
		fmt.Fprintln(w)
		for _, line := range report.Footer {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellString(cell)
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeXLSX writes one sheet named after the report with a bold header row.
// Decimals become numeric cells.
func writeXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(report)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(report.Table.Headers))
	for i, h := range report.Table.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range report.Table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = xlsxValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if n := len(report.Table.Headers); n > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(n, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// sheetName keeps to the 31 characters a sheet name allows
func sheetName(report Report) string {
	name := report.Title
	if name == "" {
		name = report.Name
	}
	if name == "" {
		name = "Report"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case decimal.NullDecimal:
		if !x.Valid {
			return ""
		}
		return x.Decimal.InexactFloat64()
	case *int:
		if x == nil {
			return ""
		}
		return *x
	default:
		return v
	}
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case decimal.NullDecimal:
		if !x.Valid {
			return ""
		}
		return x.Decimal.String()
	case *int:
		if x == nil {
			return ""
		}
		return fmt.Sprint(*x)
	case bool:
		if x {
			return "yes"
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}
