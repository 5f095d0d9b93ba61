package tec

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrSchemaDrift is returned when the register no longer carries a column the
// canonical schema depends on.
var ErrSchemaDrift = eris.New("tec: schema drift")

// DateLayout is the layout used when rendering connection dates.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing effective dates.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	// Slashed dates are day-first, as the register publishes them, and only
	// fall back to month-first when the second field cannot be a month.
	"02/01/2006",
	"02/01/2006 15:04",
	"01/02/2006",
	"02-01-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2 January 2006",
}

// RawTable is delimited text as read from the register: a header row and
// string cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Normalize maps a raw register table onto the canonical schema. The three
// renamed columns are accepted under either their source or canonical name,
// so normalizing the output of Dataset.Table is a no-op. Unparseable dates
// become nil; a missing column is ErrSchemaDrift.
func Normalize(raw RawTable) (*Dataset, error) {
	colIdx := mapColumns(raw.Header)

	idx := make(map[string]int, len(CanonicalColumns))
	used := make(map[int]bool, len(CanonicalColumns))
	for _, col := range CanonicalColumns {
		i, ok := lookupColumn(colIdx, col)
		if !ok {
			return nil, eris.Wrapf(ErrSchemaDrift, "missing column %q", col)
		}
		idx[col] = i
		used[i] = true
	}

	var extraCols []string
	var extraIdx []int
	for i, name := range raw.Header {
		if used[i] {
			continue
		}
		extraCols = append(extraCols, name)
		extraIdx = append(extraIdx, i)
	}

	ds := &Dataset{
		Records:      make([]Record, 0, len(raw.Rows)),
		ExtraColumns: extraCols,
	}
	for _, row := range raw.Rows {
		rec := Record{
			ProjectName:    cell(row, idx[ColProjectName]),
			HostTO:         cell(row, idx[ColHostTO]),
			PlantType:      cell(row, idx[ColPlantType]),
			ProjectStatus:  cell(row, idx[ColProjectStatus]),
			AgreementType:  cell(row, idx[ColAgreementType]),
			ConnectionCap:  parseFloat64Or(cell(row, idx[ColConnectionCap]), 0),
			MWChange:       parseFloat64Or(cell(row, idx[ColMWChange]), 0),
			ConnectionDate: ParseDate(cell(row, idx[ColConnectionDate])),
		}
		if len(extraIdx) > 0 {
			rec.Extra = make([]string, len(extraIdx))
			for j, i := range extraIdx {
				rec.Extra[j] = cell(row, i)
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// Table renders the dataset with canonical column names, followed by the
// pass-through columns.
func (d *Dataset) Table() RawTable {
	t := RawTable{Header: append(append([]string{}, CanonicalColumns...), d.extraColumns()...)}
	t.Rows = make([][]string, 0, d.Len())
	if d == nil {
		return t
	}
	for _, r := range d.Records {
		row := []string{
			r.ProjectName,
			r.HostTO,
			r.PlantType,
			r.ProjectStatus,
			r.AgreementType,
			formatFloat(r.ConnectionCap),
			formatFloat(r.MWChange),
			FormatDate(r.ConnectionDate),
		}
		for j := range d.ExtraColumns {
			if j < len(r.Extra) {
				row = append(row, r.Extra[j])
			} else {
				row = append(row, "")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (d *Dataset) extraColumns() []string {
	if d == nil {
		return nil
	}
	return d.ExtraColumns
}

// ParseDate parses an effective date, truncated to the day. Returns nil when
// s is empty or matches none of the known layouts.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// FormatDate renders t with DateLayout; nil renders as "".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseFloat64Or parses a capacity figure, tolerating thousands separators.
// Returns def if the cell is empty, not numeric, NaN or infinite.
func parseFloat64Or(s string, def float64) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// normalizeCol lowercases and collapses whitespace for header matching.
func normalizeCol(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// mapColumns builds a normalized column name → index map. The first
// occurrence of a duplicated header wins.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		key := normalizeCol(col)
		if _, dup := m[key]; !dup {
			m[key] = i
		}
	}
	return m
}

// lookupColumn finds a canonical column by its own name or by the source
// name it is renamed from.
func lookupColumn(colIdx map[string]int, canonical string) (int, bool) {
	if i, ok := colIdx[normalizeCol(canonical)]; ok {
		return i, true
	}
	for src, dst := range renames {
		if dst != canonical {
			continue
		}
		if i, ok := colIdx[normalizeCol(src)]; ok {
			return i, true
		}
	}
	return 0, false
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
