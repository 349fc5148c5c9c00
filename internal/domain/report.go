package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Remote collection names. The PWA frontend and the serverless functions read
// the same collections, so these names are part of the external contract.
const (
	ReportsCollection  = "disasterReports"
	VerifiedCollection = "verifiedDisasters"
)

// Report lifecycle statuses.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)

// UnknownBucket is the administrative fallback for reports that arrive
// without a district, DS division, or disaster type.
const UnknownBucket = "Unknown"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lon float64 `json:"lon" firestore:"lon"`
}

// HumanEffect holds the casualty and displacement counts of a report.
type HumanEffect struct {
	AffectedFamilies int `json:"affectedFamilies" firestore:"affectedFamilies"`
	AffectedPeople   int `json:"affectedPeople" firestore:"affectedPeople"`
	Deaths           int `json:"deaths" firestore:"deaths"`
	Injured          int `json:"injured" firestore:"injured"`
	Missing          int `json:"missing" firestore:"missing"`
}

// Add returns the element-wise sum of two HumanEffect values.
func (h HumanEffect) Add(o HumanEffect) HumanEffect {
	return HumanEffect{
		AffectedFamilies: h.AffectedFamilies + o.AffectedFamilies,
		AffectedPeople:   h.AffectedPeople + o.AffectedPeople,
		Deaths:           h.Deaths + o.Deaths,
		Injured:          h.Injured + o.Injured,
		Missing:          h.Missing + o.Missing,
	}
}

// InfrastructureDamage holds structural damage counts plus free-text
// descriptions of damaged critical infrastructure (hospitals, bridges,
// transmission lines).
type InfrastructureDamage struct {
	HousesFullyDamaged            int      `json:"housesFullyDamaged" firestore:"housesFullyDamaged"`
	HousesPartiallyDamaged        int      `json:"housesPartiallyDamaged" firestore:"housesPartiallyDamaged"`
	CriticalInfrastructureDamages []string `json:"criticalInfrastructureDamages,omitempty" firestore:"criticalInfrastructureDamages"`
}

// Report is a citizen disaster report document as stored in the remote
// disasterReports collection and delivered over the live feed.
//
// Latitude and longitude are pointers: reports captured without map input
// have no coordinates at all, which is distinct from a report at (0, 0).
type Report struct {
	ID                 string               `json:"id" firestore:"id"`
	DisasterType       string               `json:"disasterType" firestore:"disasterType"`
	District           string               `json:"district" firestore:"district"`
	DSDivision         string               `json:"dsDivision" firestore:"dsDivision"`
	Latitude           *float64             `json:"latitude,omitempty" firestore:"latitude"`
	Longitude          *float64             `json:"longitude,omitempty" firestore:"longitude"`
	Description        string               `json:"description,omitempty" firestore:"description"`
	ReporterName       string               `json:"reporterName,omitempty" firestore:"reporterName"`
	Status             string               `json:"status" firestore:"status"`
	VerifiedDisasterID string               `json:"verifiedDisasterId,omitempty" firestore:"verifiedDisasterId"`
	HumanEffect        HumanEffect          `json:"humanEffect" firestore:"humanEffect"`
	Infrastructure     InfrastructureDamage `json:"infrastructure" firestore:"infrastructure"`
	Images             []string             `json:"images,omitempty" firestore:"images"`
	CreatedAt          time.Time            `json:"createdAt" firestore:"createdAt"`
}

// ErrMissingID indicates a feed document without a report id.
var ErrMissingID = errors.New("report document has no id")

// ParseReportDocument decodes a live-feed message payload into a Report.
func ParseReportDocument(raw []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return Report{}, fmt.Errorf("parse report document: %w", err)
	}
	if r.ID == "" {
		return Report{}, ErrMissingID
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return r, nil
}
