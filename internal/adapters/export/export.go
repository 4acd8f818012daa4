// Package export writes issued credentials to spreadsheet files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/example/appraise/internal/ports/secondary"
)

const sheetName = "Credentials"

func header(withTokens bool) []string {
	if withTokens {
		return []string{"username", "password", "token"}
	}
	return []string{"username", "password"}
}

func row(r secondary.CredentialRow, withTokens bool) []string {
	if withTokens {
		return []string{r.Username, r.Password, r.Token}
	}
	return []string{r.Username, r.Password}
}

// CSVSink implements secondary.CredentialSink for comma-separated files.
type CSVSink struct{}

// NewCSVSink creates a new CSV credential sink.
func NewCSVSink() *CSVSink {
	return &CSVSink{}
}

// Write writes rows to path, replacing any existing file.
func (s *CSVSink) Write(ctx context.Context, path string, rows []secondary.CredentialRow, withTokens bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header(withTokens)); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(row(r, withTokens)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return f.Close()
}

// XLSXSink implements secondary.CredentialSink for Excel workbooks.
type XLSXSink struct{}

// NewXLSXSink creates a new XLSX credential sink.
func NewXLSXSink() *XLSXSink {
	return &XLSXSink{}
}

// Write writes rows to a single-sheet workbook at path.
func (s *XLSXSink) Write(ctx context.Context, path string, rows []secondary.CredentialRow, withTokens bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheetName, cell, &values)
	}

	if err := write(1, header(withTokens)); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}
	for i, r := range rows {
		if err := write(i+2, row(r, withTokens)); err != nil {
			return fmt.Errorf("failed to write xlsx row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Ensure sinks implement the interface.
var (
	_ secondary.CredentialSink = (*CSVSink)(nil)
	_ secondary.CredentialSink = (*XLSXSink)(nil)
)
