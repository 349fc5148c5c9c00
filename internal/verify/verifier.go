// Package verify implements the verification workflow: an official selects a
// set of pending reports and the verifier merges them into one verified
// disaster document, marking the sources as consumed.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/observability"
)

var (
	// ErrEmptySelection is returned for a verification request with no ids.
	ErrEmptySelection = errors.New("no reports selected for verification")

	// ErrAlreadyVerified is returned when every selected report was already
	// consumed by an earlier verification or does not exist.
	ErrAlreadyVerified = errors.New("selected reports are already verified or unknown")
)

// Claimer is the snapshot side of the workflow: an atomic pending-to-verified
// claim with release and per-report marking.
type Claimer interface {
	Claim(ids []string) (claimed []domain.Report, skipped []string)
	Release(ids []string)
	MarkVerified(id, verifiedID string)
}

// DocumentWriter persists the verified disaster and updates source reports.
type DocumentWriter interface {
	CreateDocument(ctx context.Context, collection string, payload map[string]any) (string, error)
	UpdateDocument(ctx context.Context, collection, id string, partial map[string]any) error
}

// AlertPublisher announces a newly verified disaster to downstream
// dispatchers. Publication is best effort.
type AlertPublisher interface {
	PublishVerified(ctx context.Context, vd domain.VerifiedDisaster) error
}

type Verifier struct {
	snapshot Claimer
	writer   DocumentWriter
	alerts   AlertPublisher
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New builds a verifier. alerts may be nil when no alert channel is
// configured.
func New(snapshot Claimer, writer DocumentWriter, alerts AlertPublisher, logger *slog.Logger, metrics *observability.Metrics) *Verifier {
	return &Verifier{snapshot: snapshot, writer: writer, alerts: alerts, logger: logger, metrics: metrics}
}

// Verify merges the selected reports into one verified disaster document and
// returns its id.
//
// The claim is taken before any remote write so two concurrent verifications
// of overlapping selections cannot both consume the same report. If the
// document create fails the claim is released and the reports stay pending.
// After a successful create each source report is marked verified remotely;
// individual mark failures are logged and skipped rather than failing the
// verification, since re-marking an already consumed report is harmless.
func (v *Verifier) Verify(ctx context.Context, reportIDs []string) (string, error) {
	if len(reportIDs) == 0 {
		return "", ErrEmptySelection
	}

	claimed, skipped := v.snapshot.Claim(reportIDs)
	if len(skipped) > 0 {
		v.metrics.VerificationSkips.Add(float64(len(skipped)))
		v.logger.Warn("verification skipped reports", "skipped", skipped)
	}
	if len(claimed) == 0 {
		return "", ErrAlreadyVerified
	}

	claimedIDs := make([]string, len(claimed))
	for i, r := range claimed {
		claimedIDs[i] = r.ID
	}

	vd := domain.MergeReports(claimed)
	docID, err := v.writer.CreateDocument(ctx, domain.VerifiedCollection, vd.Document())
	if err != nil {
		v.snapshot.Release(claimedIDs)
		return "", fmt.Errorf("create verified disaster: %w", err)
	}
	v.metrics.VerificationsCreated.Inc()
	v.logger.Info("verified disaster created",
		"id", docID, "type", vd.DisasterType, "district", vd.District, "reports", len(claimed))

	for _, id := range claimedIDs {
		partial := map[string]any{
			"status":             domain.StatusVerified,
			"verifiedDisasterId": docID,
		}
		if err := v.writer.UpdateDocument(ctx, domain.ReportsCollection, id, partial); err != nil {
			v.logger.Error("mark report verified failed", "report_id", id, "error", err)
			continue
		}
		v.snapshot.MarkVerified(id, docID)
	}

	if v.alerts != nil {
		vd.ID = docID
		if err := v.alerts.PublishVerified(ctx, vd); err != nil {
			v.logger.Error("alert publish failed", "id", docID, "error", err)
		}
	}
	return docID, nil
}
