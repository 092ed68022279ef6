// Package capacity computes storage utilization for locations, zones and units.
package capacity

import (
	"math"
	"sort"

	"dukapos/internal/models"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusAlert   Status = "alert"
)

const (
	WarningThreshold = 70.0
	AlertThreshold   = 90.0
)

// Usage is the utilization of one capacity-bearing entity.
type Usage struct {
	Used          float64 `json:"used"`
	Total         float64 `json:"total"`
	Percentage    float64 `json:"percentage"`
	Status        Status  `json:"status"`
	Misconfigured bool    `json:"misconfigured,omitempty"`
	OverCapacity  bool    `json:"over_capacity,omitempty"`
}

// Classify maps a percentage to a status. Thresholds are exclusive.
func Classify(pct float64) Status {
	switch {
	case pct > AlertThreshold:
		return StatusAlert
	case pct > WarningThreshold:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// Utilization returns used/total as a percentage in [0,100].
func Utilization(used, total float64) Usage {
	if used < 0 || math.IsNaN(used) {
		used = 0
	}
	u := Usage{Used: used, Total: total}
	if total <= 0 || math.IsNaN(total) {
		u.Status = StatusNormal
		u.Misconfigured = true
		return u
	}
	if used > total {
		u.Percentage = 100
		u.OverCapacity = true
		u.Status = StatusAlert
		return u
	}
	pct := used / total * 100
	// classify before rounding so 90.04 stays above the alert threshold
	u.Status = Classify(pct)
	u.Percentage = round1(pct)
	return u
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type EntityUsage struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Usage
}

type CategoryShare struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LocationReport is the capacity view of one location.
type LocationReport struct {
	LocationID uuid.UUID       `json:"location_id"`
	Name       string          `json:"name"`
	Unit       string          `json:"capacity_unit"`
	Location   Usage           `json:"location"`
	Zones      []EntityUsage   `json:"zones"`
	Units      []EntityUsage   `json:"units"`
	Categories []CategoryShare `json:"categories"`
}

// Alerting returns the entities of the report at warning or alert level.
func (r *LocationReport) Alerting() []EntityUsage {
	var out []EntityUsage
	if r.Location.Status != StatusNormal {
		out = append(out, EntityUsage{ID: r.LocationID, Name: r.Name, Usage: r.Location})
	}
	for _, z := range r.Zones {
		if z.Status != StatusNormal {
			out = append(out, z)
		}
	}
	for _, u := range r.Units {
		if u.Status != StatusNormal {
			out = append(out, u)
		}
	}
	return out
}

// BuildLocationReport derives the report from a fetched aggregate.
func BuildLocationReport(agg models.LocationAggregate) LocationReport {
	report := LocationReport{
		LocationID: agg.Location.ID,
		Name:       agg.Location.Name,
		Unit:       agg.Location.CapacityUnit,
		Location:   Utilization(agg.Location.CapacityUsed, agg.Location.TotalCapacity),
		Zones:      make([]EntityUsage, 0, len(agg.Zones)),
		Units:      make([]EntityUsage, 0, len(agg.Units)),
		Categories: make([]CategoryShare, 0, len(agg.CategoryUsage)),
	}
	for _, z := range agg.Zones {
		report.Zones = append(report.Zones, EntityUsage{ID: z.ID, Name: z.Name, Usage: Utilization(z.CapacityUsed, z.Capacity)})
	}
	for _, u := range agg.Units {
		report.Units = append(report.Units, EntityUsage{ID: u.ID, Name: u.Name, Usage: Utilization(u.CapacityUsed, u.Capacity)})
	}

	total := 0
	for _, n := range agg.CategoryUsage {
		if n > 0 {
			total += n
		}
	}
	for name, n := range agg.CategoryUsage {
		share := CategoryShare{Category: name, Count: n}
		if total > 0 && n > 0 {
			share.Percentage = round1(float64(n) / float64(total) * 100)
		}
		report.Categories = append(report.Categories, share)
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		if report.Categories[i].Count != report.Categories[j].Count {
			return report.Categories[i].Count > report.Categories[j].Count
		}
		return report.Categories[i].Category < report.Categories[j].Category
	})
	return report
}
