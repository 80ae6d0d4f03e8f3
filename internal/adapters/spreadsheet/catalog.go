// Package spreadsheet encodes catalog records as xlsx workbooks and parses
// uploaded workbooks back into create inputs.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/warehouse-crm/internal/core/domain"
)

// ContentType is the MIME type of an xlsx workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column headers, in export order. Import matches them case-insensitively.
const (
	ColName         = "Name"
	ColSKU          = "SKU"
	ColDescription  = "Description"
	ColCategory     = "Category"
	ColPrice        = "Price"
	ColQuantity     = "Quantity"
	ColMinimumStock = "Minimum Stock"
	ColLocation     = "Location"
	ColSupplier     = "Supplier"
	ColImageURL     = "Image URL"
	ColActive       = "Active"
	ColUpdatedAt    = "Updated At"
)

// Headers lists every exported column
var Headers = []string{
	ColName, ColSKU, ColDescription, ColCategory, ColPrice, ColQuantity,
	ColMinimumStock, ColLocation, ColSupplier, ColImageURL, ColActive, ColUpdatedAt,
}

// ErrMissingColumns is returned when an uploaded sheet lacks a required header
var ErrMissingColumns = errors.New("spreadsheet is missing required columns")

// ParsedRow is a data row accepted by ReadCatalog
type ParsedRow struct {
	Row   int
	Input domain.CatalogInput
}

// RowError describes a data row that could not be parsed
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// WriteCatalog renders records into a single sheet workbook
func WriteCatalog(sheetName string, records []*domain.CatalogRecord) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, header := range Headers {
		cell := headerRow.AddCell()
		cell.SetString(header)
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.SKU)
		row.AddCell().SetString(r.Description)
		row.AddCell().SetString(r.Category)
		row.AddCell().SetString(r.Price.StringFixed(2))
		row.AddCell().SetInt(r.Quantity)
		row.AddCell().SetInt(r.MinimumStock)
		row.AddCell().SetString(r.Location)
		row.AddCell().SetString(r.Supplier)
		row.AddCell().SetString(r.ImageURL)
		row.AddCell().SetString(yesNo(r.IsActive))
		row.AddCell().SetString(r.UpdatedAt.UTC().Format(time.RFC3339))
	}

	for i := range Headers {
		sheet.SetColWidth(i+1, i+1, 18)
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buffer.Bytes(), nil
}

// ReadCatalog parses the first sheet of a workbook. The first row holds the
// headers; Name and SKU columns are required, the rest are optional. Rows that
// fail to parse are reported and skipped, blank rows are ignored.
func ReadCatalog(data []byte) ([]ParsedRow, []RowError, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, nil, nil
	}

	var (
		parsed  []ParsedRow
		rowErrs []RowError
		columns map[string]int
		rowIdx  int
	)

	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		rowIdx++
		values := rowValues(r)

		if columns == nil {
			columns = headerIndex(values)
			if _, ok := columns[normalizeHeader(ColName)]; !ok {
				return fmt.Errorf("%w: %s", ErrMissingColumns, ColName)
			}
			if _, ok := columns[normalizeHeader(ColSKU)]; !ok {
				return fmt.Errorf("%w: %s", ErrMissingColumns, ColSKU)
			}
			return nil
		}

		if isBlank(values) {
			return nil
		}

		in, err := parseRow(values, columns)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowIdx, Message: err.Error()})
			return nil
		}
		parsed = append(parsed, ParsedRow{Row: rowIdx, Input: in})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return parsed, rowErrs, nil
}

func rowValues(r *xlsx.Row) []string {
	var values []string
	_ = r.ForEachCell(func(c *xlsx.Cell) error {
		values = append(values, strings.TrimSpace(c.String()))
		return nil
	})
	return values
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func headerIndex(values []string) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		idx[normalizeHeader(v)] = i
	}
	return idx
}

func isBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}

func parseRow(values []string, columns map[string]int) (domain.CatalogInput, error) {
	get := func(col string) string {
		i, ok := columns[normalizeHeader(col)]
		if !ok || i >= len(values) {
			return ""
		}
		return values[i]
	}

	in := domain.CatalogInput{
		Name:        get(ColName),
		SKU:         get(ColSKU),
		Description: get(ColDescription),
		Category:    get(ColCategory),
		Location:    get(ColLocation),
		Supplier:    get(ColSupplier),
		ImageURL:    get(ColImageURL),
	}
	if in.Name == "" {
		return in, errors.New("name is required")
	}
	if in.SKU == "" {
		return in, errors.New("sku is required")
	}

	if s := get(ColPrice); s != "" {
		price, err := decimal.NewFromString(strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "$"))
		if err != nil {
			return in, fmt.Errorf("invalid price %q", s)
		}
		in.Price = price
	}

	var err error
	if in.Quantity, err = parseCount(get(ColQuantity)); err != nil {
		return in, fmt.Errorf("invalid quantity: %w", err)
	}
	if in.MinimumStock, err = parseCount(get(ColMinimumStock)); err != nil {
		return in, fmt.Errorf("invalid minimum stock: %w", err)
	}

	if s := get(ColActive); s != "" {
		active, err := parseYesNo(s)
		if err != nil {
			return in, err
		}
		in.IsActive = &active
	}

	return in, nil
}

// parseCount accepts integers, tolerating a whole-number float like "12.0"
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid active flag %q", s)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
