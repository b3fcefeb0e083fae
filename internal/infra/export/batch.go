// Package export renders voucher batches for printing and distribution.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"hotspot-portal/internal/domain/model"
)

// ErrEmptyBatch is returned when a batch has no vouchers to export.
var ErrEmptyBatch = errors.New("no vouchers found in this batch")

var header = []string{"Code", "Plan", "Amount", "Status", "Expiry"}

// Format is a supported export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename is vouchers_batch_<id>.<ext>.
func Filename(batchID int64, f Format) string {
	return fmt.Sprintf("vouchers_batch_%d.%s", batchID, f)
}

func rows(b *model.VoucherBatch) [][]string {
	plan := b.PlanName
	if plan == "" {
		plan = "N/A"
	}
	out := make([][]string, 0, len(b.Vouchers))
	for _, v := range b.Vouchers {
		expiry := "Never"
		if v.ExpiryDate != nil {
			expiry = v.ExpiryDate.UTC().Format(time.RFC3339)
		}
		out = append(out, []string{v.Code, plan, v.Amount.StringFixed(2), string(v.Status), expiry})
	}
	return out
}

// Write encodes the batch in the given format.
func Write(w io.Writer, b *model.VoucherBatch, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, b)
	case FormatXLSX:
		return WriteXLSX(w, b)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func WriteCSV(w io.Writer, b *model.VoucherBatch) error {
	if b == nil || len(b.Vouchers) == 0 {
		return ErrEmptyBatch
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows(b)); err != nil {
		return err
	}
	return cw.Error()
}

// WriteXLSX writes one sheet named after the batch, with a bold header row.
func WriteXLSX(w io.Writer, b *model.VoucherBatch) error {
	if b == nil || len(b.Vouchers) == 0 {
		return ErrEmptyBatch
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("Batch %d", b.ID)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	all := append([][]string{header}, rows(b)...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(row))
		for j, s := range row {
			vals[j] = s
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "E", 18); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
