package Outbreaks

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"TeleCare/Models"
)

// Unknown is the key used for a missing or blank location or condition.
const Unknown = "unknown"

// Table maps a normalized city to per-condition report counts. Every stored
// count is at least 1.
type Table map[string]map[string]int

type DiseaseCount struct {
	Disease string `json:"disease"`
	Count   int    `json:"count"`
}

type Entry struct {
	City     string         `json:"city"`
	Diseases []DiseaseCount `json:"diseases"`
	Total    int            `json:"total"`
}

// Normalize trims and lowercases s. Blank input maps to Unknown.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Unknown
	}
	return s
}

// Aggregate counts reports by normalized location and condition.
func Aggregate(reports []Models.Report) Table {
	table := Table{}
	for _, r := range reports {
		table.add(Normalize(lo.FromPtr(r.Location)), Normalize(r.Type), 1)
	}
	return table
}

func (t Table) add(city, disease string, n int) {
	if n <= 0 {
		return
	}
	diseases, ok := t[city]
	if !ok {
		diseases = map[string]int{}
		t[city] = diseases
	}
	diseases[disease] += n
}

func (t Table) Count(city, disease string) int {
	return t[Normalize(city)][Normalize(disease)]
}

// Entries projects the table into cities ordered by total reports, each with
// its conditions ordered by count. Ties are broken by name.
func (t Table) Entries() []Entry {
	entries := lo.MapToSlice(t, func(city string, diseases map[string]int) Entry {
		counts := lo.MapToSlice(diseases, func(disease string, n int) DiseaseCount {
			return DiseaseCount{Disease: disease, Count: n}
		})
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Disease < counts[j].Disease
		})
		return Entry{
			City:     city,
			Diseases: counts,
			Total:    lo.SumBy(counts, func(c DiseaseCount) int { return c.Count }),
		}
	})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].City < entries[j].City
	})
	return entries
}
