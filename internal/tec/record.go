// Package tec models the NESO Transmission Entry Capacity register and derives
// the filtered views and aggregates the dashboard renders.
package tec

import (
	"sort"
	"time"
)

// Canonical column names, as exposed to the presentation layer.
const (
	ColProjectName    = "Project Name"
	ColHostTO         = "HOST TO"
	ColPlantType      = "Plant Type"
	ColProjectStatus  = "Project Status"
	ColAgreementType  = "Agreement Type"
	ColConnectionCap  = "Connection Cap (MW)"
	ColMWChange       = "MW Change"
	ColConnectionDate = "Connection Date"
)

// Source column names that the register publishes under a different name.
const (
	SrcConnectionCap  = "Cumulative Total Capacity (MW)"
	SrcMWChange       = "MW Increase / Decrease"
	SrcConnectionDate = "MW Effective From"
)

// renames maps source columns to their canonical names.
var renames = map[string]string{
	SrcMWChange:       ColMWChange,
	SrcConnectionCap:  ColConnectionCap,
	SrcConnectionDate: ColConnectionDate,
}

// CanonicalColumns lists the typed columns in display order.
var CanonicalColumns = []string{
	ColProjectName,
	ColHostTO,
	ColPlantType,
	ColProjectStatus,
	ColAgreementType,
	ColConnectionCap,
	ColMWChange,
	ColConnectionDate,
}

// Record is one project-capacity revision in canonical form.
type Record struct {
	ProjectName    string     `json:"project_name"`
	HostTO         string     `json:"host_to"`
	PlantType      string     `json:"plant_type"`
	ProjectStatus  string     `json:"project_status"`
	AgreementType  string     `json:"agreement_type"`
	ConnectionCap  float64    `json:"connection_cap_mw"`
	MWChange       float64    `json:"mw_change"`
	ConnectionDate *time.Time `json:"connection_date,omitempty"`

	// Extra holds the untyped source columns, aligned with Dataset.ExtraColumns.
	Extra []string `json:"extra,omitempty"`
}

// Dataset is an ordered collection of canonical records. A Dataset returned
// by the loader is shared across a session and must be treated as read-only.
type Dataset struct {
	Records      []Record `json:"records"`
	ExtraColumns []string `json:"extra_columns,omitempty"`
}

// Empty returns a dataset with no records.
func Empty() *Dataset {
	return &Dataset{Records: []Record{}}
}

// Len returns the number of records; a nil dataset has none.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// TotalCapacity sums ConnectionCap over every record.
func (d *Dataset) TotalCapacity() float64 {
	var total float64
	if d == nil {
		return total
	}
	for _, r := range d.Records {
		total += r.ConnectionCap
	}
	return total
}

// Dimension names a categorical column used for filtering and grouping.
type Dimension int

const (
	DimOwner Dimension = iota + 1
	DimStatus
	DimAgreement
	DimPlantType
)

// String returns the canonical column name of the dimension.
func (d Dimension) String() string {
	switch d {
	case DimOwner:
		return ColHostTO
	case DimStatus:
		return ColProjectStatus
	case DimAgreement:
		return ColAgreementType
	case DimPlantType:
		return ColPlantType
	default:
		return "unknown"
	}
}

// Value returns the record's value for the dimension.
func (d Dimension) Value(r Record) string {
	switch d {
	case DimOwner:
		return r.HostTO
	case DimStatus:
		return r.ProjectStatus
	case DimAgreement:
		return r.AgreementType
	case DimPlantType:
		return r.PlantType
	default:
		return ""
	}
}

// Distinct returns the sorted distinct values observed for dim.
func (d *Dataset) Distinct(dim Dimension) []string {
	if d == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	for _, r := range d.Records {
		seen[dim.Value(r)] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
