package statement

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ais-clarity/internal/model"
)

// ReadXLSX reads an XLSX statement. The first non-blank row of the sheet
// is the header.
func ReadXLSX(ctx context.Context, path string, opts Options) ([]model.Entry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "statement: open xlsx")
	}

	sheet, err := getSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	b := newBuilder(opts)
	headerSeen := false
	for _, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "statement: xlsx cancelled")
		}

		cells := rowToStrings(row)
		if !headerSeen {
			if blank(cells) {
				continue
			}
			if err := b.header(cells); err != nil {
				return nil, err
			}
			headerSeen = true
			continue
		}
		if err := b.add(cells); err != nil {
			return nil, err
		}
	}
	if !headerSeen {
		return nil, eris.New("statement: empty sheet")
	}
	return b.entries, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("statement: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("statement: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
