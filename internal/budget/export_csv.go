package budget

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	s.pendingLines = 0
	return s.buf.Flush()
}

// WriteReportCSV streams the report as CSV, one row per division and cost
// code, nested rows indented under their parent.
func WriteReportCSV(w io.Writer, report Report) error {
	s := newCSVStreamer(w)
	if err := s.writeComment(fmt.Sprintf("# Budget report: %s (%s)", report.ProjectName, report.ProjectUUID)); err != nil {
		return err
	}
	if err := s.writeComment(fmt.Sprintf("# Generated at: %s", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))); err != nil {
		return err
	}
	header := []string{"number", "name", "budgeted", "purchase_order", "change_order", "paid", "total", "budget_remaining", "cost_per_room"}
	if err := s.writeRow(header); err != nil {
		return err
	}

	for _, div := range report.Divisions {
		row := []string{
			div.Number, div.Name,
			money(div.BudgetedAmount), money(div.PurchaseOrderAmount), money(div.ChangeOrderAmount),
			money(div.PaidAmount), money(div.TotalAmount), money(div.BudgetRemaining), money(div.CostPerRoom),
		}
		if err := s.writeRow(row); err != nil {
			return err
		}
		if err := writeCSVRows(s, div.CostCodes, 1); err != nil {
			return err
		}
	}

	summary := report.Summary
	totalRow := []string{
		"", "TOTAL",
		money(summary.BudgetedAmount), money(summary.PurchaseOrderAmount), money(summary.ChangeOrderAmount),
		money(summary.PaidAmount), money(summary.TotalAmount), money(summary.BudgetRemaining), money(summary.CostPerRoom),
	}
	if err := s.writeRow(totalRow); err != nil {
		return err
	}
	return s.Flush()
}

func writeCSVRows(s *csvStreamer, rows []ReportRow, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, row := range rows {
		record := []string{
			indent + row.Number, row.Name,
			money(row.BudgetedAmount), money(row.PurchaseOrderAmount), money(row.ChangeOrderAmount),
			money(row.PaidAmount), money(row.TotalAmount), money(row.BudgetRemaining), money(row.CostPerRoom),
		}
		if err := s.writeRow(record); err != nil {
			return err
		}
		if err := writeCSVRows(s, row.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
