package reports_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/reports"
)

func pendingReport(id string) domain.Report {
	return domain.Report{
		ID:           id,
		DisasterType: "Flood",
		District:     "Ratnapura",
		Status:       domain.StatusPending,
	}
}

func TestSnapshot_ApplyGetDelete(t *testing.T) {
	s := reports.NewSnapshot()
	assert.False(t, s.Ready())

	s.Apply(pendingReport("r1"))
	assert.True(t, s.Ready())

	got, ok := s.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "Flood", got.DisasterType)

	s.Delete("r1")
	_, ok = s.Get("r1")
	assert.False(t, ok)

	s.Apply(domain.Report{}) // no id, ignored
	assert.Zero(t, s.Len())
}

func TestSnapshot_AllSortedByID(t *testing.T) {
	s := reports.NewSnapshot()
	for _, id := range []string{"r3", "r1", "r2"} {
		s.Apply(pendingReport(id))
	}

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].ID)
	assert.Equal(t, "r2", all[1].ID)
	assert.Equal(t, "r3", all[2].ID)
}

func TestSnapshot_VersionTracksEffectiveMutations(t *testing.T) {
	s := reports.NewSnapshot()
	require.Zero(t, s.Version())

	s.Apply(pendingReport("r1"))
	v := s.Version()
	assert.NotZero(t, v)

	s.Delete("missing")
	assert.Equal(t, v, s.Version(), "deleting an unknown id is not a mutation")

	s.Delete("r1")
	assert.Greater(t, s.Version(), v)
}

func TestSnapshot_ClaimSkipsMissingAndNonPending(t *testing.T) {
	s := reports.NewSnapshot()
	s.Apply(pendingReport("r1"))
	verified := pendingReport("r2")
	verified.Status = domain.StatusVerified
	s.Apply(verified)

	claimed, skipped := s.Claim([]string{"r1", "r2", "ghost"})

	require.Len(t, claimed, 1)
	assert.Equal(t, "r1", claimed[0].ID)
	assert.Equal(t, domain.StatusPending, claimed[0].Status, "claimed copy keeps pre-claim status")
	assert.ElementsMatch(t, []string{"r2", "ghost"}, skipped)

	got, _ := s.Get("r1")
	assert.Equal(t, domain.StatusVerified, got.Status)
}

func TestSnapshot_ClaimIsExclusiveUnderConcurrency(t *testing.T) {
	s := reports.NewSnapshot()
	for i := 0; i < 20; i++ {
		s.Apply(pendingReport(fmt.Sprintf("r%02d", i)))
	}
	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, fmt.Sprintf("r%02d", i))
	}

	var wg sync.WaitGroup
	results := make([][]domain.Report, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			claimed, _ := s.Claim(ids)
			results[w] = claimed
		}(w)
	}
	wg.Wait()

	seen := map[string]int{}
	for _, claimed := range results {
		for _, r := range claimed {
			seen[r.ID]++
		}
	}
	assert.Len(t, seen, 20, "every report claimed exactly once overall")
	for id, n := range seen {
		assert.Equal(t, 1, n, "report %s claimed by more than one caller", id)
	}
}

func TestSnapshot_ReleaseReturnsReportsToPending(t *testing.T) {
	s := reports.NewSnapshot()
	s.Apply(pendingReport("r1"))

	claimed, _ := s.Claim([]string{"r1"})
	require.Len(t, claimed, 1)

	s.Release([]string{"r1", "ghost"})

	got, _ := s.Get("r1")
	assert.Equal(t, domain.StatusPending, got.Status)

	claimed, _ = s.Claim([]string{"r1"})
	assert.Len(t, claimed, 1, "released report is claimable again")
}

func TestSnapshot_MarkVerified(t *testing.T) {
	s := reports.NewSnapshot()
	s.Apply(pendingReport("r1"))
	s.Claim([]string{"r1"})

	s.MarkVerified("r1", "vd-001")

	got, _ := s.Get("r1")
	assert.Equal(t, domain.StatusVerified, got.Status)
	assert.Equal(t, "vd-001", got.VerifiedDisasterID)
}

func TestSnapshot_Features(t *testing.T) {
	s := reports.NewSnapshot()
	lat, lon := 6.71, 79.91
	r := pendingReport("r1")
	r.Latitude = &lat
	r.Longitude = &lon
	s.Apply(r)
	s.Apply(pendingReport("r2")) // no coordinates

	feats := s.Features()
	require.Len(t, feats, 2)
	assert.True(t, feats[0].HasCoordinates)
	assert.False(t, feats[1].HasCoordinates)
}
