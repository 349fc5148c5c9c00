package domain

import (
	"encoding/json"
	"time"
)

// Verified disaster statuses. A verified disaster opens in StatusOpen and is
// closed by officials once the response winds down.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// ResourceRequest is filled in by officials after verification; the merge
// step only creates the empty placeholder list.
type ResourceRequest struct {
	ResourceType string `json:"resourceType" firestore:"resourceType"`
	Quantity     int    `json:"quantity" firestore:"quantity"`
	Notes        string `json:"notes,omitempty" firestore:"notes"`
}

// VolunteerRequest is filled in by officials after verification.
type VolunteerRequest struct {
	Role  string `json:"role" firestore:"role"`
	Count int    `json:"count" firestore:"count"`
}

// VerifiedDisaster is the consolidated record produced by merging a set of
// selected reports into one official disaster.
type VerifiedDisaster struct {
	ID                string               `json:"id,omitempty" firestore:"id"`
	DisasterType      string               `json:"disasterType" firestore:"disasterType"`
	District          string               `json:"district" firestore:"district"`
	DSDivision        string               `json:"dsDivision" firestore:"dsDivision"`
	Location          *Geo                 `json:"location,omitempty" firestore:"location"`
	HumanEffect       HumanEffect          `json:"humanEffect" firestore:"humanEffect"`
	Infrastructure    InfrastructureDamage `json:"infrastructure" firestore:"infrastructure"`
	SourceReportIDs   []string             `json:"sourceReportIds" firestore:"sourceReportIds"`
	Status            string               `json:"status" firestore:"status"`
	ResourceRequests  []ResourceRequest    `json:"resourceRequests" firestore:"resourceRequests"`
	VolunteerRequests []VolunteerRequest   `json:"volunteerRequests" firestore:"volunteerRequests"`
	CreatedAt         time.Time            `json:"createdAt" firestore:"createdAt"`
}

// MergeReports consolidates the given reports into one VerifiedDisaster.
//
// Numeric impact fields are summed; the critical-infrastructure description
// list is a deduplicated union preserving first-seen order. Disaster type,
// district, DS division, and location are taken from the first report, a
// deliberately simple tie-break when the selection spans multiple types or
// regions, kept for compatibility with the existing verification flow.
// Callers must pass at least one report.
func MergeReports(reports []Report) VerifiedDisaster {
	first := reports[0]

	d := VerifiedDisaster{
		DisasterType:      first.DisasterType,
		District:          first.District,
		DSDivision:        first.DSDivision,
		SourceReportIDs:   make([]string, 0, len(reports)),
		Status:            StatusOpen,
		ResourceRequests:  []ResourceRequest{},
		VolunteerRequests: []VolunteerRequest{},
		CreatedAt:         clock.Now().UTC(),
	}
	if first.Latitude != nil && first.Longitude != nil {
		d.Location = &Geo{Lat: *first.Latitude, Lon: *first.Longitude}
	}

	seen := make(map[string]bool)
	for _, r := range reports {
		d.SourceReportIDs = append(d.SourceReportIDs, r.ID)
		d.HumanEffect = d.HumanEffect.Add(r.HumanEffect)
		d.Infrastructure.HousesFullyDamaged += r.Infrastructure.HousesFullyDamaged
		d.Infrastructure.HousesPartiallyDamaged += r.Infrastructure.HousesPartiallyDamaged
		for _, item := range r.Infrastructure.CriticalInfrastructureDamages {
			if seen[item] {
				continue
			}
			seen[item] = true
			d.Infrastructure.CriticalInfrastructureDamages = append(d.Infrastructure.CriticalInfrastructureDamages, item)
		}
	}
	return d
}

// Document returns the map form of the disaster for remote document creation.
func (d VerifiedDisaster) Document() map[string]any {
	raw, err := json.Marshal(d)
	if err != nil {
		// All VerifiedDisaster fields are plain JSON-marshalable types.
		panic(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(err)
	}
	delete(doc, "id")
	return doc
}
