package tec

import (
	"fmt"
	"time"
)

// Summary holds the headline cards shown above the charts.
type Summary struct {
	Projects  int       `json:"total_projects"`
	Owners    int       `json:"network_owners"`
	MWChange  float64   `json:"capacity_change_mw"`
	Capacity  float64   `json:"total_capacity_mw"`
	DateRange DateRange `json:"date_range"`
}

// DateRange spans the earliest and latest known connection dates.
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// String renders the range for the dashboard title.
func (r DateRange) String() string {
	if r.Start == nil || r.End == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s to %s", r.Start.Format("Jan 2006"), r.End.Format("Jan 2006"))
}

// Summarize computes the headline cards for ds.
func Summarize(ds *Dataset) Summary {
	s := Summary{
		Projects:  ds.Len(),
		Owners:    len(ds.Distinct(DimOwner)),
		Capacity:  ds.TotalCapacity(),
		DateRange: ConnectionDateRange(ds),
	}
	if ds != nil {
		for _, r := range ds.Records {
			s.MWChange += r.MWChange
		}
	}
	return s
}

// ConnectionDateRange returns the earliest and latest non-nil connection
// dates in ds.
func ConnectionDateRange(ds *Dataset) DateRange {
	var r DateRange
	if ds == nil {
		return r
	}
	for _, rec := range ds.Records {
		d := rec.ConnectionDate
		if d == nil {
			continue
		}
		if r.Start == nil || d.Before(*r.Start) {
			r.Start = d
		}
		if r.End == nil || d.After(*r.End) {
			r.End = d
		}
	}
	return r
}
