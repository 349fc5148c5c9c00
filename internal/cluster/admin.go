package cluster

import (
	"sort"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
)

// TypeGroup collects the reports of one disaster type inside a DS division.
type TypeGroup struct {
	DisasterType string          `json:"disasterType"`
	Reports      []domain.Report `json:"reports"`
}

// DivisionGroup is one DS division within a district.
type DivisionGroup struct {
	DSDivision string      `json:"dsDivision"`
	Types      []TypeGroup `json:"types"`
}

// DistrictGroup is the top level of the administrative tree.
type DistrictGroup struct {
	District  string          `json:"district"`
	Divisions []DivisionGroup `json:"divisions"`
}

// GroupByAdministration builds the district -> DS division -> disaster type
// tree over every feature, including those without coordinates. Keys are the
// normalized values, so missing fields land in the Unknown bucket. All three
// levels are sorted by key and reports inside a leaf keep their input order.
func GroupByAdministration(features []domain.ReportFeature) []DistrictGroup {
	tree := map[string]map[string]map[string][]domain.Report{}
	for _, f := range features {
		divisions, ok := tree[f.District]
		if !ok {
			divisions = map[string]map[string][]domain.Report{}
			tree[f.District] = divisions
		}
		types, ok := divisions[f.DSDivision]
		if !ok {
			types = map[string][]domain.Report{}
			divisions[f.DSDivision] = types
		}
		types[f.DisasterType] = append(types[f.DisasterType], f.Report)
	}

	out := make([]DistrictGroup, 0, len(tree))
	for district, divisions := range tree {
		dg := DistrictGroup{District: district}
		for division, types := range divisions {
			vg := DivisionGroup{DSDivision: division}
			for disasterType, rs := range types {
				vg.Types = append(vg.Types, TypeGroup{DisasterType: disasterType, Reports: rs})
			}
			sort.Slice(vg.Types, func(i, j int) bool { return vg.Types[i].DisasterType < vg.Types[j].DisasterType })
			dg.Divisions = append(dg.Divisions, vg)
		}
		sort.Slice(dg.Divisions, func(i, j int) bool { return dg.Divisions[i].DSDivision < dg.Divisions[j].DSDivision })
		out = append(out, dg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}
