package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel renders a workbook as text. Each sheet starts with a "Sheet: <name>" line
// followed by its non-empty rows, cells joined by tabs. Sheets are separated by a blank line.
func extractExcel(content []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := make([]string, 0, len(wb.GetSheetList()))
	for _, name := range wb.GetSheetList() {
		rows, err := wb.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", name, err)
		}
		var b strings.Builder
		for _, cells := range rows {
			line := strings.TrimRight(strings.Join(cells, "\t"), "\t ")
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteByte('\n')
			b.WriteString(line)
		}
		if b.Len() > 0 {
			sheets = append(sheets, "Sheet: "+name+b.String())
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}
