package domain

import "math"

// ReportFeature is the normalized point-feature form of a report consumed by
// the spatial clusterer and the administrative grouper.
type ReportFeature struct {
	ID           string  `json:"id"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	DisasterType string  `json:"disasterType"`
	District     string  `json:"district"`
	DSDivision   string  `json:"dsDivision"`

	// HasCoordinates is false when the source report carried no usable
	// coordinate pair. Such features keep the (0, 0) bookkeeping sentinel,
	// are excluded from spatial indexing, and still participate in
	// administrative grouping.
	HasCoordinates bool `json:"hasCoordinates"`

	// Report is the original backing document, kept for aggregation.
	Report Report `json:"-"`
}

// NormalizeReport converts one report document into its feature form.
// Missing district, DS division, or disaster type fall back to the Unknown
// bucket; a missing or NaN coordinate marks the feature as non-spatial.
// Normalization is a pure function: re-ingesting the same document yields a
// structurally equal feature.
func NormalizeReport(r Report) ReportFeature {
	f := ReportFeature{
		ID:           r.ID,
		DisasterType: orUnknown(r.DisasterType),
		District:     orUnknown(r.District),
		DSDivision:   orUnknown(r.DSDivision),
		Report:       r,
	}
	if r.Latitude != nil && r.Longitude != nil &&
		!math.IsNaN(*r.Latitude) && !math.IsNaN(*r.Longitude) {
		f.Lat = *r.Latitude
		f.Lon = *r.Longitude
		f.HasCoordinates = true
	}
	return f
}

// NormalizeReports normalizes a snapshot of report documents, preserving
// input order.
func NormalizeReports(reports []Report) []ReportFeature {
	features := make([]ReportFeature, len(reports))
	for i, r := range reports {
		features[i] = NormalizeReport(r)
	}
	return features
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownBucket
	}
	return s
}
