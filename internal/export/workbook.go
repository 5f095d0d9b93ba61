// Package export writes a filtered register view and its aggregates to an
// Excel workbook and reads saved filter presets.
package export

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tec-dashboard/internal/tec"
)

// Sheet names, in workbook order.
const (
	SheetRecords      = "Records"
	SheetPlantOwner   = "Plant Type x Owner"
	SheetHierarchy    = "Hierarchy"
	SheetDistribution = "Distribution"
	SheetTimeline     = "Timeline"
	SheetSummary      = "Summary"
)

// Sheets lists every sheet WriteWorkbook produces.
var Sheets = []string{SheetRecords, SheetPlantOwner, SheetHierarchy, SheetDistribution, SheetTimeline, SheetSummary}

// WriteWorkbook writes view and every aggregate computed from it to w.
func WriteWorkbook(w io.Writer, view *tec.Dataset) error {
	f := xlsx.NewFile()

	writers := []struct {
		name  string
		write func(*xlsx.Sheet, *tec.Dataset)
	}{
		{SheetRecords, writeRecords},
		{SheetPlantOwner, writePlantOwner},
		{SheetHierarchy, writeHierarchy},
		{SheetDistribution, writeDistribution},
		{SheetTimeline, writeTimeline},
		{SheetSummary, writeSummary},
	}
	for _, sw := range writers {
		sheet, err := f.AddSheet(sw.name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", sw.name)
		}
		sw.write(sheet, view)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// SaveWorkbook writes the workbook to path.
func SaveWorkbook(path string, view *tec.Dataset) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	if err := WriteWorkbook(out, view); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(out.Close(), "export: close file")
}

// LoadSelection reads a YAML filter preset. Dimensions missing from the
// file select every observed value.
func LoadSelection(path string) (tec.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tec.Preset{}, eris.Wrap(err, "export: read selection")
	}
	var p tec.Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return tec.Preset{}, eris.Wrap(err, "export: parse selection")
	}
	return p, nil
}

func writeRecords(sheet *xlsx.Sheet, view *tec.Dataset) {
	header := append(append([]string{}, tec.CanonicalColumns...), view.ExtraColumns...)
	addStrings(sheet.AddRow(), header...)

	for _, r := range view.Records {
		row := sheet.AddRow()
		addStrings(row, r.ProjectName, r.HostTO, r.PlantType, r.ProjectStatus, r.AgreementType)
		row.AddCell().SetFloat(r.ConnectionCap)
		row.AddCell().SetFloat(r.MWChange)
		addStrings(row, tec.FormatDate(r.ConnectionDate))
		addStrings(row, r.Extra...)
	}
}

func writePlantOwner(sheet *xlsx.Sheet, view *tec.Dataset) {
	agg := tec.CapacityByPlantTypeOwner(view)

	header := sheet.AddRow()
	addStrings(header, tec.ColPlantType)
	addStrings(header, agg.Owners...)

	for _, pt := range agg.PlantTypes {
		row := sheet.AddRow()
		addStrings(row, pt)
		for _, owner := range agg.Owners {
			row.AddCell().SetFloat(agg.Get(pt, owner))
		}
	}
}

func writeHierarchy(sheet *xlsx.Sheet, view *tec.Dataset) {
	addStrings(sheet.AddRow(), tec.ColHostTO, tec.ColPlantType, tec.ColProjectStatus, tec.ColConnectionCap, "Projects", "Project Names")
	for _, leaf := range tec.CapacityHierarchy(view).Leaves {
		row := sheet.AddRow()
		addStrings(row, leaf.HostTO, leaf.PlantType, leaf.ProjectStatus)
		row.AddCell().SetFloat(leaf.Capacity)
		row.AddCell().SetInt(leaf.ProjectCount)
		addStrings(row, strings.Join(leaf.ProjectNames, "; "))
	}
}

func writeDistribution(sheet *xlsx.Sheet, view *tec.Dataset) {
	dist := tec.CapacityDistribution(view)
	addStrings(sheet.AddRow(), "View", "Label", "Total (MW)", "Breakdown", tec.ColConnectionCap)

	emit := func(name string, slices []tec.DistributionSlice) {
		for _, s := range slices {
			for _, b := range s.NonZero() {
				row := sheet.AddRow()
				addStrings(row, name, s.Label)
				row.AddCell().SetFloat(s.Total)
				addStrings(row, b.Label)
				row.AddCell().SetFloat(b.Capacity)
			}
		}
	}
	emit("By Status", dist.ByStatus)
	emit("By Owner", dist.ByOwner)
}

func writeTimeline(sheet *xlsx.Sheet, view *tec.Dataset) {
	addStrings(sheet.AddRow(), tec.ColConnectionDate, tec.ColHostTO, tec.ColConnectionCap, "Projects", "Unique Plant Types", tec.ColMWChange)
	for _, p := range tec.CapacityTimeline(view) {
		row := sheet.AddRow()
		date := tec.FormatDate(p.Date)
		if date == "" {
			date = "unknown"
		}
		addStrings(row, date, p.HostTO)
		row.AddCell().SetFloat(p.Capacity)
		row.AddCell().SetInt(p.Projects)
		row.AddCell().SetInt(p.PlantTypes)
		row.AddCell().SetFloat(p.MWChange)
	}
}

func writeSummary(sheet *xlsx.Sheet, view *tec.Dataset) {
	s := tec.Summarize(view)

	row := sheet.AddRow()
	addStrings(row, "Total Projects")
	row.AddCell().SetInt(s.Projects)

	row = sheet.AddRow()
	addStrings(row, "Network Owners")
	row.AddCell().SetInt(s.Owners)

	row = sheet.AddRow()
	addStrings(row, "Capacity Change (MW)")
	row.AddCell().SetFloat(s.MWChange)

	row = sheet.AddRow()
	addStrings(row, "Total Capacity (MW)")
	row.AddCell().SetFloat(s.Capacity)

	addStrings(sheet.AddRow(), "Connection Dates", s.DateRange.String())
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

