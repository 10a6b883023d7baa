package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/teztrade/pricesync/internal/models"
)

// Row is one line of the exported price list
type Row struct {
	Name               string
	MarketplaceArticle string
	SupplierArticle    string
	Price              *float64
}

var headers = []string{"Name", "Marketplace article", "Supplier article", "Price"}

// FromEnriched maps reconciled products onto export rows. The price column
// carries the computed new price when one exists, otherwise the current one.
func FromEnriched(products []models.EnrichedProduct) []Row {
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		row := Row{
			Name:            p.DisplayName,
			SupplierArticle: p.SupplierArticle,
			Price:           p.NewPrice,
		}
		if row.Price == nil {
			row.Price = p.CurrentPrice
		}
		if p.MarketplaceArticle != nil {
			row.MarketplaceArticle = *p.MarketplaceArticle
		}
		rows = append(rows, row)
	}
	return rows
}

// PriceListCSV serializes rows as the semicolon-delimited CSV the
// marketplace price-list import expects: UTF-8 BOM, quoted name column,
// bare articles and price. encoding/csv cannot produce this exact shape
// (it only quotes fields containing separators), so the lines are written
// by hand.
func PriceListCSV(rows []Row) []byte {
	var buf bytes.Buffer
	buf.WriteString("\uFEFF")
	fmt.Fprintf(&buf, "%q;%s;%s;%s\n", headers[0], headers[1], headers[2], headers[3])
	for _, row := range rows {
		fmt.Fprintf(&buf, "%q;%s;%s;%s\n", row.Name, row.MarketplaceArticle, row.SupplierArticle, formatPrice(row.Price))
	}
	return buf.Bytes()
}

// PriceListXLSX serializes rows as a single-sheet workbook with the same
// columns as the CSV
func PriceListXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Prices"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	for i, row := range rows {
		values := []interface{}{row.Name, row.MarketplaceArticle, row.SupplierArticle}
		if row.Price != nil {
			values = append(values, *row.Price)
		} else {
			values = append(values, "")
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// formatPrice renders a price without a trailing decimal point for whole
// values; an absent price renders empty
func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
