package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/xuri/excelize/v2"
)

// Spreadsheets are rendered row by row as "column: value" lines with a blank
// line between rows, so every chunk keeps its column names.
func readSpreadsheet(ctx context.Context, filename, ext string) (string, error) {
	switch ext {
	case ".csv":
		f, err := os.Open(filename)
		if err != nil {
			return "", err
		}
		defer f.Close()

		rows, err := documentloaders.NewCSV(f).Load(ctx)
		if err != nil {
			return "", err
		}
		return joinPages(rows, "\n\n"), nil
	case ".xlsx":
		return readWorkbook(filename)
	}
	return "", fmt.Errorf("no reader for %s", ext)
}

func readWorkbook(filename string) (string, error) {
	wb, err := excelize.OpenFile(filename)
	if err != nil {
		return "", err
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	var parts []string
	for _, sheet := range sheets {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		var b strings.Builder
		if len(sheets) > 1 {
			fmt.Fprintf(&b, "## %s\n\n", sheet)
		}
		b.WriteString(renderRecords(rows[0], rows[1:]))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n"), nil
}

func renderRecords(header []string, rows [][]string) string {
	records := make([]string, 0, len(rows))
	for _, row := range rows {
		lines := make([]string, 0, len(header))
		for i, col := range header {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			lines = append(lines, fmt.Sprintf("%s: %s", col, value))
		}
		records = append(records, strings.Join(lines, "\n"))
	}
	return strings.Join(records, "\n\n")
}
