package tec

import (
	"sort"
	"time"
)

// TimelinePoint aggregates the records of one owner sharing a connection
// date. A nil Date is the bucket for records without a parseable date.
type TimelinePoint struct {
	Date       *time.Time `json:"connection_date"`
	HostTO     string     `json:"host_to"`
	Capacity   float64    `json:"connection_cap_mw"`
	Projects   int        `json:"project_count"`
	PlantTypes int        `json:"unique_plant_types"`
	MWChange   float64    `json:"mw_change"`
}

// Timeline is the capacity scatter series, ordered by date (unknown last)
// then owner.
type Timeline []TimelinePoint

// Total sums capacity across every point.
func (t Timeline) Total() float64 {
	var total float64
	for _, p := range t {
		total += p.Capacity
	}
	return total
}

type timelineKey struct {
	day   string
	owner string
}

type timelineAcc struct {
	point  TimelinePoint
	plants map[string]struct{}
}

// CapacityTimeline groups ds by (connection date, owner). Plant types are
// counted distinct; MW change is summed signed.
func CapacityTimeline(ds *Dataset) Timeline {
	groups := make(map[timelineKey]*timelineAcc)
	if ds != nil {
		for _, r := range ds.Records {
			k := timelineKey{day: FormatDate(r.ConnectionDate), owner: r.HostTO}
			acc, ok := groups[k]
			if !ok {
				acc = &timelineAcc{
					point:  TimelinePoint{Date: r.ConnectionDate, HostTO: r.HostTO},
					plants: make(map[string]struct{}),
				}
				groups[k] = acc
			}
			acc.point.Capacity += r.ConnectionCap
			acc.point.Projects++
			acc.point.MWChange += r.MWChange
			acc.plants[r.PlantType] = struct{}{}
		}
	}

	out := make(Timeline, 0, len(groups))
	for _, acc := range groups {
		acc.point.PlantTypes = len(acc.plants)
		out = append(out, acc.point)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Date == nil && b.Date != nil:
			return false
		case a.Date != nil && b.Date == nil:
			return true
		case a.Date != nil && b.Date != nil && !a.Date.Equal(*b.Date):
			return a.Date.Before(*b.Date)
		}
		return a.HostTO < b.HostTO
	})
	return out
}
