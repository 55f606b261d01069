// Package pdf renders the month report as a downloadable PDF.
package pdf

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"skpdi/internal/report"
)

// Display conventions shared with the dashboard UI.
const (
	emptyValue         = "–"
	thousandsSeparator = " "
	percentSuffix      = " %"

	// Amounts below this render as the empty placeholder.
	minValueThreshold = 1.0
)

var monthNames = [...]string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

// Build renders the month report to PDF bytes.
func Build(r report.MonthReport) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("cp1251")
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr(title(r.Month)), "", 1, "L", false, 0, "")

	if r.LastUpdated != nil {
		doc.SetFont("Helvetica", "", 9)
		doc.SetTextColor(110, 110, 110)
		updated := fmt.Sprintf("Данные обновлены: %s МСК", r.LastUpdated.Format("02.01.2006 15:04"))
		doc.CellFormat(0, 6, tr(updated), "", 1, "L", false, 0, "")
		doc.SetTextColor(0, 0, 0)
	}
	doc.Ln(4)

	writeSummary(doc, tr, r.Summary)
	doc.Ln(4)
	writeCategories(doc, tr, r.Categories)
	doc.Ln(4)
	writeItems(doc, tr, r.Items)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName returns the attachment name for a month's report.
func FileName(month time.Time) string {
	return fmt.Sprintf("mad-podolsk-otchet-%s.pdf", month.Format("2006-01"))
}

func title(month time.Time) string {
	name := monthNames[int(month.Month())-1]
	return fmt.Sprintf("Отчёт о ходе работ: %s %d", name, month.Year())
}

func writeSummary(doc *fpdf.Fpdf, tr func(string) string, s report.Summary) {
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, tr("Сводка за месяц"), "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	lines := []struct {
		label string
		value string
	}{
		{"План", FormatAmount(s.Planned)},
		{"Факт", FormatAmount(s.Fact)},
		{"Отклонение", FormatAmount(s.Delta)},
		{"Выполнение", FormatPercent(s.Completion)},
	}
	if s.AverageDaily != nil {
		lines = append(lines, struct {
			label string
			value string
		}{"Среднедневная выручка", FormatAmount(*s.AverageDaily)})
	}
	if s.ContractCompletion != nil {
		lines = append(lines, struct {
			label string
			value string
		}{"Выполнение контракта", FormatPercent(s.ContractCompletion)})
	}

	for _, line := range lines {
		doc.CellFormat(70, 6, tr(line.label), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 6, tr(line.value), "", 1, "L", false, 0, "")
	}
}

func writeCategories(doc *fpdf.Fpdf, tr func(string) string, cats []report.CategoryTotals) {
	if len(cats) == 0 {
		return
	}
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, tr("Сметы"), "", 1, "L", false, 0, "")

	writeTableHeader(doc, tr)
	doc.SetFont("Helvetica", "", 9)
	for _, c := range cats {
		doc.CellFormat(70, 6, tr(c.Title), "1", 0, "L", false, 0, "")
		doc.CellFormat(40, 6, tr(FormatAmount(c.Planned)), "1", 0, "R", false, 0, "")
		doc.CellFormat(40, 6, tr(FormatAmount(c.Fact)), "1", 0, "R", false, 0, "")
		doc.CellFormat(0, 6, tr(FormatAmount(c.Delta)), "1", 1, "R", false, 0, "")
	}
}

func writeItems(doc *fpdf.Fpdf, tr func(string) string, items []report.Item) {
	if len(items) == 0 {
		return
	}
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, tr("Работы"), "", 1, "L", false, 0, "")

	writeTableHeader(doc, tr)
	doc.SetFont("Helvetica", "", 8)
	for _, item := range items {
		name := item.WorkName
		if len([]rune(name)) > 60 {
			name = string([]rune(name)[:57]) + "..."
		}
		doc.CellFormat(70, 6, tr(name), "1", 0, "L", false, 0, "")
		doc.CellFormat(40, 6, tr(formatNullable(item.Planned.Ptr())), "1", 0, "R", false, 0, "")
		doc.CellFormat(40, 6, tr(formatNullable(item.Fact.Ptr())), "1", 0, "R", false, 0, "")
		doc.CellFormat(0, 6, tr(FormatAmount(item.Delta)), "1", 1, "R", false, 0, "")
	}
}

func writeTableHeader(doc *fpdf.Fpdf, tr func(string) string) {
	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(70, 6, tr("Смета"), "1", 0, "L", false, 0, "")
	doc.CellFormat(40, 6, tr("План"), "1", 0, "R", false, 0, "")
	doc.CellFormat(40, 6, tr("Факт"), "1", 0, "R", false, 0, "")
	doc.CellFormat(0, 6, tr("Отклонение"), "1", 1, "R", false, 0, "")
}

// FormatAmount renders a rouble amount with space-separated thousands.
// Values smaller than the display threshold collapse to the placeholder.
func FormatAmount(v float64) string {
	if math.Abs(v) < minValueThreshold {
		return emptyValue
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + groupThousands(strconv.FormatInt(int64(math.Round(v)), 10))
}

func formatNullable(v *float64) string {
	if v == nil {
		return emptyValue
	}
	return FormatAmount(*v)
}

// FormatPercent renders a completion ratio; absent ratios render as the
// placeholder.
func FormatPercent(ratio *float64) string {
	if ratio == nil {
		return emptyValue
	}
	return strconv.FormatFloat(*ratio*100, 'f', 1, 64) + percentSuffix
}

func groupThousands(digits string) string {
	var b strings.Builder
	n := len(digits)
	for i, r := range digits {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteString(thousandsSeparator)
		}
		b.WriteRune(r)
	}
	return b.String()
}
