package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/adapter/httpapi"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/cluster"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/queue"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/syncer"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/verify"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStore struct {
	reportPayload []byte
	attachmentIDs []int64
	fileName      string
	userID        string
	fileData      []byte
	err           error
}

func (m *mockStore) EnqueueReport(_ context.Context, payload []byte, attachmentIDs []int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.reportPayload = payload
	m.attachmentIDs = attachmentIDs
	return 7, nil
}

func (m *mockStore) EnqueueAttachment(_ context.Context, payload []byte, fileName, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.fileData = payload
	m.fileName = fileName
	m.userID = userID
	return 8, nil
}

func (m *mockStore) ListPendingReports(_ context.Context) ([]queue.PendingReport, error) {
	return nil, nil
}

func (m *mockStore) ListPendingAttachments(_ context.Context) ([]queue.PendingAttachment, error) {
	return nil, nil
}

func (m *mockStore) MarkReportUploaded(_ context.Context, _ int64) error { return nil }
func (m *mockStore) DeleteAttachment(_ context.Context, _ int64) error   { return nil }

type mockSync struct {
	result   syncer.Result
	progress syncer.Progress
	busy     bool
}

func (m *mockSync) Synchronize(_ context.Context) syncer.Result { return m.result }
func (m *mockSync) Progress() syncer.Progress                   { return m.progress }
func (m *mockSync) Busy() bool                                  { return m.busy }

type mockConn struct {
	online bool
}

func (m *mockConn) Online() bool { return m.online }

type mockClusters struct {
	nodes    []cluster.Node
	features []domain.ReportFeature
	groups   []cluster.DistrictGroup

	gotBounds cluster.Bounds
	gotZoom   int
	gotExpand uint64
}

func (m *mockClusters) Clusters(b cluster.Bounds, zoom int) []cluster.Node {
	m.gotBounds = b
	m.gotZoom = zoom
	return m.nodes
}

func (m *mockClusters) Expand(id uint64) []domain.ReportFeature {
	m.gotExpand = id
	return m.features
}

func (m *mockClusters) Groups() []cluster.DistrictGroup { return m.groups }

type mockVerifier struct {
	id     string
	err    error
	gotIDs []string
}

func (m *mockVerifier) Verify(_ context.Context, ids []string) (string, error) {
	m.gotIDs = ids
	return m.id, m.err
}

type deps struct {
	store    *mockStore
	sync     *mockSync
	conn     *mockConn
	clusters *mockClusters
	verifier *mockVerifier
	ready    *mockReadiness
}

func newTestServer(d *deps) *httpapi.Server {
	if d.store == nil {
		d.store = &mockStore{}
	}
	if d.sync == nil {
		d.sync = &mockSync{}
	}
	if d.conn == nil {
		d.conn = &mockConn{}
	}
	if d.clusters == nil {
		d.clusters = &mockClusters{}
	}
	if d.verifier == nil {
		d.verifier = &mockVerifier{}
	}
	if d.ready == nil {
		d.ready = &mockReadiness{}
	}
	return httpapi.NewServer(":0", d.store, d.sync, d.conn, d.clusters, d.verifier, d.ready, slog.Default())
}

func do(srv *httpapi.Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(&deps{}), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&deps{ready: &mockReadiness{err: fmt.Errorf("feed not started")}})
	rec := do(srv, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "feed not started", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(&deps{}), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusReportsConnectivityAndProgress(t *testing.T) {
	srv := newTestServer(&deps{
		conn: &mockConn{online: true},
		sync: &mockSync{busy: true, progress: syncer.Progress{Total: 5, Completed: 3, Errors: 1}},
	})
	rec := do(srv, http.MethodGet, "/api/status", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Online   bool            `json:"online"`
		Syncing  bool            `json:"syncing"`
		Progress syncer.Progress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Online)
	assert.True(t, body.Syncing)
	assert.Equal(t, syncer.Progress{Total: 5, Completed: 3, Errors: 1}, body.Progress)
}

func TestSyncReturnsCoordinatorResult(t *testing.T) {
	srv := newTestServer(&deps{
		sync: &mockSync{result: syncer.Result{Success: false, Message: "Cannot sync while offline"}},
	})
	rec := do(srv, http.MethodPost, "/api/sync", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var res syncer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "Cannot sync while offline", res.Message)
}

func TestEnqueueReportStripsAttachmentIDs(t *testing.T) {
	store := &mockStore{}
	srv := newTestServer(&deps{store: store})

	body := strings.NewReader(`{"disasterType":"Flood","district":"Colombo","attachmentIds":[3,4]}`)
	rec := do(srv, http.MethodPost, "/api/reports", body)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var res struct {
		LocalID int64 `json:"localId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(7), res.LocalID)

	assert.Equal(t, []int64{3, 4}, store.attachmentIDs)
	assert.NotContains(t, string(store.reportPayload), "attachmentIds")
	assert.Contains(t, string(store.reportPayload), `"disasterType":"Flood"`)
}

func TestEnqueueReportRejectsBadJSON(t *testing.T) {
	rec := do(newTestServer(&deps{}), http.MethodPost, "/api/reports", strings.NewReader(`{broken`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueReportStorageUnavailable(t *testing.T) {
	store := &mockStore{err: fmt.Errorf("enqueue report: %w: disk full", queue.ErrStorageUnavailable)}
	srv := newTestServer(&deps{store: store})

	rec := do(srv, http.MethodPost, "/api/reports", strings.NewReader(`{"disasterType":"Flood"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk full")
}

func TestEnqueueAttachmentMultipart(t *testing.T) {
	store := &mockStore{}
	srv := newTestServer(&deps{store: store})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("userId", "user-9"))
	fw, err := mw.CreateFormFile("file", "house.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "house.jpg", store.fileName)
	assert.Equal(t, "user-9", store.userID)
	assert.Equal(t, []byte("jpeg-bytes"), store.fileData)
}

func TestEnqueueAttachmentRequiresUserID(t *testing.T) {
	srv := newTestServer(&deps{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "x.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClustersParsesViewport(t *testing.T) {
	clusters := &mockClusters{nodes: []cluster.Node{{ClusterID: 42, Count: 3, Lat: 6.9, Lon: 79.8}}}
	srv := newTestServer(&deps{clusters: clusters})

	rec := do(srv, http.MethodGet, "/api/clusters?minLat=5.5&minLon=79&maxLat=10&maxLon=82&zoom=7", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cluster.Bounds{MinLat: 5.5, MinLon: 79, MaxLat: 10, MaxLon: 82}, clusters.gotBounds)
	assert.Equal(t, 7, clusters.gotZoom)

	var nodes []cluster.Node
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, uint64(42), nodes[0].ClusterID)
}

func TestClustersRejectsBadZoom(t *testing.T) {
	rec := do(newTestServer(&deps{}), http.MethodGet, "/api/clusters?zoom=high", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClustersEmptyIsJSONArray(t *testing.T) {
	rec := do(newTestServer(&deps{}), http.MethodGet, "/api/clusters", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestExpandParsesClusterID(t *testing.T) {
	clusters := &mockClusters{features: []domain.ReportFeature{{ID: "r1"}}}
	srv := newTestServer(&deps{clusters: clusters})

	rec := do(srv, http.MethodGet, "/api/clusters/9026123456789/reports", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(9026123456789), clusters.gotExpand)

	var features []domain.ReportFeature
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &features))
	require.Len(t, features, 1)
	assert.Equal(t, "r1", features[0].ID)
}

func TestExpandRejectsNonNumericID(t *testing.T) {
	rec := do(newTestServer(&deps{}), http.MethodGet, "/api/clusters/abc/reports", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroups(t *testing.T) {
	clusters := &mockClusters{groups: []cluster.DistrictGroup{{District: "Colombo"}}}
	srv := newTestServer(&deps{clusters: clusters})

	rec := do(srv, http.MethodGet, "/api/groups", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var groups []cluster.DistrictGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Colombo", groups[0].District)
}

func TestVerifyStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"created", nil, http.StatusCreated},
		{"empty selection", verify.ErrEmptySelection, http.StatusBadRequest},
		{"already verified", verify.ErrAlreadyVerified, http.StatusConflict},
		{"backend failure", fmt.Errorf("firestore unavailable"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := &mockVerifier{id: "vd-001", err: tc.err}
			srv := newTestServer(&deps{verifier: verifier})

			rec := do(srv, http.MethodPost, "/api/verify", strings.NewReader(`{"reportIds":["r1","r2"]}`))

			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, []string{"r1", "r2"}, verifier.gotIDs)
			if tc.err == nil {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "vd-001", body["id"])
			}
		})
	}
}

func TestShutdownCompletesQuickly(t *testing.T) {
	srv := newTestServer(&deps{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
