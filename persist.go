package calcforge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tidwall/jsonc"
	"github.com/xuri/excelize/v2"
)

// Save serializes the workbook as a JSON object mapping sheet name to
// full text content, names sorted for deterministic output.
func (b *Workbook) Save(w io.Writer) error {
	texts := make(map[string]string, b.Len())
	for _, name := range b.Names() {
		ws, _ := b.Sheet(name)
		texts[name] = ws.Text()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(texts)
}

// SaveFile writes the workbook to a file.
func (b *Workbook) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	defer f.Close()
	return b.Save(f)
}

// LoadWorkbook reads a sheet-name→text JSON object and reconstructs a
// workbook, discarding any prior state. Comments in the file are
// tolerated (JSONC) and stripped before decoding. Sheets are created
// in sorted name order so reconstruction is deterministic.
func LoadWorkbook(r io.Reader) (*Workbook, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("load workbook: %w", err)
	}
	var texts map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(raw), &texts); err != nil {
		return nil, fmt.Errorf("load workbook: %w", err)
	}

	book := NewWorkbook()
	book.Sync(texts)
	return book, nil
}

// LoadWorkbookFile reads a workbook from a file.
func LoadWorkbookFile(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load workbook: %w", err)
	}
	defer f.Close()
	return LoadWorkbook(f)
}

// ExportXLSX evaluates every worksheet and writes the results to an
// xlsx file: one spreadsheet sheet per worksheet, with the raw formula
// in column A and the evaluated result in column B.
func (c *Calculator) ExportXLSX(ctx context.Context, path string) error {
	results, err := c.EvaluateAll(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	names := c.book.Names()
	sort.Strings(names)
	for i, name := range names {
		sheetName := SafeSheetName(name)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				return fmt.Errorf("export sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			return fmt.Errorf("export sheet %q: %w", name, err)
		}

		if err := f.SetCellValue(sheetName, "A1", "Formula"); err != nil {
			return fmt.Errorf("export sheet %q: %w", name, err)
		}
		if err := f.SetCellValue(sheetName, "B1", "Result"); err != nil {
			return fmt.Errorf("export sheet %q: %w", name, err)
		}

		for _, line := range results[name] {
			row := line.ID + 1
			formulaCell, _ := excelize.CoordinatesToCellName(1, row)
			resultCell, _ := excelize.CoordinatesToCellName(2, row)
			if err := f.SetCellValue(sheetName, formulaCell, line.Raw); err != nil {
				return fmt.Errorf("export sheet %q: %w", name, err)
			}
			if err := f.SetCellValue(sheetName, resultCell, line.Value.String()); err != nil {
				return fmt.Errorf("export sheet %q: %w", name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// SafeSheetName sanitizes a worksheet name for use as an xlsx sheet
// name: forbidden characters become underscores and the name is
// truncated to 31 characters.
func SafeSheetName(name string) string {
	forbidden := []rune{'/', '\\', ':', '*', '?', '[', ']'}
	runes := []rune(name)
	for i, r := range runes {
		for _, f := range forbidden {
			if r == f {
				runes[i] = '_'
				break
			}
		}
	}
	if len(runes) > 31 {
		runes = runes[:31]
	}
	return string(runes)
}
