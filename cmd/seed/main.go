// Command seed generates a deterministic set of sample disaster reports and
// either publishes them to the report feed topic or writes them to a JSON
// fixture file. It uses the actual domain package so seeded documents match
// what the feed consumer expects.
//
// Usage:
//
//	go run ./cmd/seed -brokers localhost:9092 -topic disaster-reports
//	go run ./cmd/seed -out testdata/reports.json -count 50
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
)

var seedTime = time.Date(2026, time.May, 12, 6, 0, 0, 0, time.UTC)

// site is a sampling location on the island with its administrative lineage.
type site struct {
	district string
	division string
	lat      float64
	lon      float64
}

var sites = []site{
	{district: "Colombo", division: "Kolonnawa", lat: 6.9329, lon: 79.8848},
	{district: "Colombo", division: "Dehiwala", lat: 6.8511, lon: 79.8650},
	{district: "Ratnapura", division: "Elapatha", lat: 6.6288, lon: 80.3964},
	{district: "Ratnapura", division: "Kuruwita", lat: 6.7772, lon: 80.3661},
	{district: "Kandy", division: "Gangawata Korale", lat: 7.2906, lon: 80.6337},
	{district: "Galle", division: "Galle Four Gravets", lat: 6.0535, lon: 80.2210},
	{district: "Jaffna", division: "Nallur", lat: 9.6615, lon: 80.0255},
	{district: "Trincomalee", division: "Town and Gravets", lat: 8.5874, lon: 81.2152},
}

var disasterTypes = []string{"Flood", "Landslide", "Cyclone", "Drought", "Fire"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers to publish to")
	topic := flag.String("topic", "disaster-reports", "report feed topic")
	out := flag.String("out", "", "output path for a JSON fixture instead of publishing")
	count := flag.Int("count", 25, "number of reports to generate")
	flag.Parse()

	if *brokers == "" && *out == "" {
		flag.Usage()
		return fmt.Errorf("need either -brokers or -out")
	}

	// Fixed clock for reproducible timestamps across runs.
	domain.SetClock(clockwork.NewFakeClockAt(seedTime))
	defer domain.SetClock(nil)

	reports := generate(*count)
	log.Printf("generated %d reports", len(reports))

	if *out != "" {
		if err := writeFixture(*out, reports); err != nil {
			return fmt.Errorf("writing fixture: %w", err)
		}
		log.Printf("wrote fixture: %s", *out)
	}

	if *brokers != "" {
		if err := publish(*brokers, *topic, reports); err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		log.Printf("published %d reports to %s", len(reports), *topic)
	}

	printStats(reports)
	return nil
}

// generate produces count reports cycling through the sites and disaster
// types, with small deterministic coordinate offsets so nearby reports still
// cluster together on the map. Every fifth report omits coordinates to
// exercise the Unknown-location path.
func generate(count int) []domain.Report {
	reports := make([]domain.Report, 0, count)
	for i := 0; i < count; i++ {
		s := sites[i%len(sites)]
		r := domain.Report{
			ID:           fmt.Sprintf("seed-%04d", i),
			DisasterType: disasterTypes[i%len(disasterTypes)],
			District:     s.district,
			DSDivision:   s.division,
			Description:  fmt.Sprintf("Seeded %s report near %s", disasterTypes[i%len(disasterTypes)], s.division),
			ReporterName: "Seed Tool",
			Status:       domain.StatusPending,
			HumanEffect: domain.HumanEffect{
				AffectedFamilies: (i % 7) + 1,
				AffectedPeople:   (i%7+1)*4 + i%3,
				Injured:          i % 4,
			},
			Infrastructure: domain.InfrastructureDamage{
				HousesPartiallyDamaged: i % 5,
			},
			CreatedAt: seedTime.Add(-time.Duration(count-i) * time.Minute),
		}
		if i%5 != 4 {
			lat := s.lat + float64(i/len(sites))*0.0007
			lon := s.lon + float64(i/len(sites))*0.0005
			r.Latitude = &lat
			r.Longitude = &lon
		}
		reports = append(reports, r)
	}
	return reports
}

func writeFixture(path string, reports []domain.Report) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func publish(brokers, topic string, reports []domain.Report) error {
	w := &kafkago.Writer{
		Addr:  kafkago.TCP(strings.Split(brokers, ",")...),
		Topic: topic,
	}
	defer w.Close()

	msgs := make([]kafkago.Message, 0, len(reports))
	for _, r := range reports {
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafkago.Message{Key: []byte(r.ID), Value: payload})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return w.WriteMessages(ctx, msgs...)
}

func printStats(reports []domain.Report) {
	byType := map[string]int{}
	byDistrict := map[string]int{}
	withCoords := 0
	for _, r := range reports {
		byType[r.DisasterType]++
		byDistrict[r.District]++
		if r.Latitude != nil && r.Longitude != nil {
			withCoords++
		}
	}
	log.Printf("with coordinates: %d/%d", withCoords, len(reports))
	for _, t := range disasterTypes {
		if byType[t] > 0 {
			log.Printf("  %-10s %d", t, byType[t])
		}
	}
	for d, n := range byDistrict {
		log.Printf("  %-12s %d", d, n)
	}
}
