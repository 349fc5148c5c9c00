// Package reports holds the live in-memory view of disaster reports fed by
// the report feed consumer. The snapshot is the single source for clustering,
// administrative grouping, and the verification claim step.
package reports

import (
	"sort"
	"sync"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
)

// Snapshot is a mutex-guarded map of report id to report. Every mutation
// bumps a version counter so downstream caches can detect staleness without
// copying the contents.
type Snapshot struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
	version uint64
	applied bool
}

func NewSnapshot() *Snapshot {
	return &Snapshot{reports: map[string]domain.Report{}}
}

// Apply upserts a report from the feed. Reports without an id are rejected
// upstream by the decoder, so an empty id here is ignored.
func (s *Snapshot) Apply(r domain.Report) {
	if r.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	s.version++
	s.applied = true
}

// Delete removes a report, typically on a feed tombstone. Deleting an unknown
// id is a no-op and does not bump the version.
func (s *Snapshot) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return
	}
	delete(s.reports, id)
	s.version++
}

func (s *Snapshot) Get(id string) (domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	return r, ok
}

// All returns every report sorted by id.
func (s *Snapshot) All() []domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Features returns the normalized feature view of every report, in id order.
func (s *Snapshot) Features() []domain.ReportFeature {
	return domain.NormalizeReports(s.All())
}

// Version returns a counter incremented on every effective mutation.
func (s *Snapshot) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len reports the number of reports currently held.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Ready reports whether the feed has applied at least one message.
func (s *Snapshot) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// Claim atomically moves the given reports from pending to verified, in one
// critical section, so two concurrent verifications cannot both claim the
// same report. Ids that are missing or not pending are returned in skipped.
// Claimed reports are returned with their pre-claim pending status so merge
// logic sees the original documents.
func (s *Snapshot) Claim(ids []string) (claimed []domain.Report, skipped []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		r, ok := s.reports[id]
		if !ok || r.Status != domain.StatusPending {
			skipped = append(skipped, id)
			continue
		}
		claimed = append(claimed, r)
		r.Status = domain.StatusVerified
		s.reports[id] = r
	}
	if len(claimed) > 0 {
		s.version++
	}
	return claimed, skipped
}

// Release undoes a claim after a failed persistence attempt, returning the
// ids to pending so a later verification can pick them up.
func (s *Snapshot) Release(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	released := false
	for _, id := range ids {
		r, ok := s.reports[id]
		if !ok || r.Status != domain.StatusVerified {
			continue
		}
		r.Status = domain.StatusPending
		s.reports[id] = r
		released = true
	}
	if released {
		s.version++
	}
}

// MarkVerified records the verified-disaster document id on a claimed report.
func (s *Snapshot) MarkVerified(id, verifiedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return
	}
	r.Status = domain.StatusVerified
	r.VerifiedDisasterID = verifiedID
	s.reports[id] = r
	s.version++
}
