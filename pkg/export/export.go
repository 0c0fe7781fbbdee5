package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/tableau"
)

// ExpandPattern substitutes {name}, {date} and {time} in a filename
// pattern. {date} is YYYY-MM-DD and {time} is HH-MM-SS, both from now.
// A pattern that names no supported extension gets .csv appended so the
// artifact is always openable.
func ExpandPattern(pattern, name string, now time.Time) string {
	out := strings.ReplaceAll(pattern, "{name}", name)
	out = strings.ReplaceAll(out, "{date}", now.Format("2006-01-02"))
	out = strings.ReplaceAll(out, "{time}", now.Format("15-04-05"))

	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv", ".xlsx":
	default:
		out += ".csv"
	}
	return out
}

// Write exports records to path, as XLSX when the name ends .xlsx and
// CSV otherwise. The file is written to a temp name in the target
// directory and renamed into place, so a partial write never leaves a
// half-finished artifact. Zero records returns ErrNoResults and writes
// nothing.
func Write(path string, records []tableau.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: nothing to export", apperrors.ErrNoResults)
	}

	header := headerFor(records[0])

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	// Both writers stream into the open handle; SaveAs would reject the
	// extension-less temp name for a workbook.
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = writeXLSX(tmp, header, records)
	} else {
		err = writeCSV(tmp, header, records)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}

// headerFor returns the first record's keys in a stable sorted order.
// The wire hands back unordered maps, so sorting is the only way two
// runs of the same query produce the same column layout.
func headerFor(rec tableau.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeCSV(f *os.File, header []string, records []tableau.Record) error {
	w := csv.NewWriter(f)

	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, key := range header {
			row[i] = CellString(rec[key])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(w io.Writer, header []string, records []tableau.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, rec := range records {
		for j, key := range header {
			row[j] = CellString(rec[key])
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// CellString renders one decoded JSON value as cell text. Floats use
// the shortest round-trip form instead of Go's default scientific
// notation.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
