// Command validate performs integrity checks over a report fixture file (as
// produced by cmd/seed): document parsing, normalization invariants, cluster
// completeness across zoom levels, and administrative grouping totals.
//
// Usage:
//
//	go run ./cmd/validate -reports testdata/reports.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/cluster"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	reportsPath := flag.String("reports", "", "path to a JSON array of report documents")
	flag.Parse()

	if *reportsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*reportsPath); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Disaster Report Fixture Validation ===")
	fmt.Println()

	docs, err := loadDocuments(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reports: %v\n", err)
		return 1
	}

	parsed, parsePhase := validateParsing(docs)
	features := domain.NormalizeReports(parsed)

	phases := []*phase{
		parsePhase,
		validateNormalization(parsed, features),
		validateClustering(features),
		validateGrouping(features),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Documents: %d total, %d parsed, %d with coordinates\n",
		len(docs), len(parsed), countIndexed(features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadDocuments(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// validateParsing runs every document through the feed decoder and collects
// the ones that parse; broken documents become phase errors.
func validateParsing(docs []json.RawMessage) ([]domain.Report, *phase) {
	p := &phase{name: "Phase 1: Document Parsing"}
	var parsed []domain.Report
	seen := map[string]bool{}

	for i, doc := range docs {
		r, err := domain.ParseReportDocument(doc)
		if err != nil {
			p.errorf("document %d: %v", i, err)
			continue
		}
		if seen[r.ID] {
			p.errorf("document %d: duplicate id %q", i, r.ID)
			continue
		}
		seen[r.ID] = true
		parsed = append(parsed, r)
	}
	return parsed, p
}

func validateNormalization(reports []domain.Report, features []domain.ReportFeature) *phase {
	p := &phase{name: "Phase 2: Normalization Invariants"}

	if len(features) != len(reports) {
		p.errorf("feature count %d != report count %d", len(features), len(reports))
		return p
	}

	for i, f := range features {
		r := reports[i]
		if f.ID != r.ID {
			p.errorf("feature %d: id %q != report id %q", i, f.ID, r.ID)
		}
		if f.District == "" || f.DSDivision == "" || f.DisasterType == "" {
			p.errorf("feature %s: empty administrative field after normalization", f.ID)
		}
		hasCoords := r.Latitude != nil && r.Longitude != nil
		if f.HasCoordinates != hasCoords {
			p.errorf("feature %s: HasCoordinates=%v but report coords present=%v", f.ID, f.HasCoordinates, hasCoords)
		}
	}

	// Re-normalizing must be structurally stable.
	again := domain.NormalizeReports(reports)
	for i := range features {
		if features[i].ID != again[i].ID || features[i].District != again[i].District {
			p.errorf("normalization is not stable at index %d", i)
			break
		}
	}
	return p
}

// validateClustering checks that at every zoom the returned nodes partition
// the coordinate-bearing features exactly.
func validateClustering(features []domain.ReportFeature) *phase {
	p := &phase{name: "Phase 3: Cluster Completeness"}

	ix := cluster.NewIndex(features, cluster.DefaultMaxZoom)
	expected := countIndexed(features)

	for zoom := 0; zoom <= 18; zoom += 3 {
		seen := map[string]int{}
		total := 0
		for _, n := range ix.Clusters(cluster.WorldBounds(), zoom) {
			total += n.Count
			if n.Singleton() {
				seen[n.ReportID]++
				continue
			}
			if n.Count < 2 {
				p.errorf("zoom %d: aggregate %d has count %d", zoom, n.ClusterID, n.Count)
			}
			for _, f := range ix.Expand(n.ClusterID) {
				seen[f.ID]++
			}
		}
		if total != expected {
			p.errorf("zoom %d: node counts sum to %d, expected %d", zoom, total, expected)
		}
		for id, n := range seen {
			if n != 1 {
				p.errorf("zoom %d: feature %s appears %d times", zoom, id, n)
			}
		}
		if len(seen) != expected {
			p.errorf("zoom %d: %d distinct features covered, expected %d", zoom, len(seen), expected)
		}
	}
	return p
}

// validateGrouping checks the administrative tree covers every report exactly
// once, coordinates or not.
func validateGrouping(features []domain.ReportFeature) *phase {
	p := &phase{name: "Phase 4: Administrative Grouping"}

	total := 0
	for _, dg := range cluster.GroupByAdministration(features) {
		if dg.District == "" {
			p.errorf("district group with empty key")
		}
		for _, vg := range dg.Divisions {
			for _, tg := range vg.Types {
				total += len(tg.Reports)
			}
		}
	}
	if total != len(features) {
		p.errorf("grouping covers %d reports, expected %d", total, len(features))
	}
	return p
}

func countIndexed(features []domain.ReportFeature) int {
	n := 0
	for _, f := range features {
		if f.HasCoordinates {
			n++
		}
	}
	return n
}
