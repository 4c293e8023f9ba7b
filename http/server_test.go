package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/dukerupert/liftcheck/catalog"
	"github.com/dukerupert/liftcheck/engine"
	"github.com/dukerupert/liftcheck/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdfBytes  = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

type testServer struct {
	*Server
	store    *mock.InspectionStore
	storage  *mock.FileStorage
	notifier *mock.Notifier
	ready    error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	templates, err := catalog.Default()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	ts := &testServer{
		store:    mock.NewInspectionStore(),
		storage:  &mock.FileStorage{},
		notifier: &mock.Notifier{},
	}
	eng := engine.New(engine.Config{
		Inspections: ts.store,
		Templates:   templates,
		Storage:     ts.storage,
		Notifier:    ts.notifier,
		Metrics:     engine.NewMetrics(registry),
		Logger:      logger,
		Now:         func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) },
	})
	ts.Server = NewServer(Config{
		Addr:              "127.0.0.1:0",
		Logger:            logger,
		Engine:            eng,
		Templates:         templates,
		Ready:             func(context.Context) error { return ts.ready },
		MetricsRegisterer: registry,
		MetricsGatherer:   registry,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(TechnicianHeader, "tech-7")
	rec := httptest.NewRecorder()
	ts.Echo().ServeHTTP(rec, req)
	return rec
}

type testFile struct {
	name string
	data []byte
}

func (ts *testServer) upload(t *testing.T, path string, fields map[string]string, files ...testFile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(photoField, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.Echo().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) start(t *testing.T, assetID string) *liftcheck.Inspection {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/inspections", map[string]any{
		"templateId": "overhead-crane",
		"assetId":    assetID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*liftcheck.Inspection](t, rec)
}

func itemPath(insp *liftcheck.Inspection, section, item string) string {
	return "/api/inspections/" + insp.ID.String() + "/items/" + section + "/" + item
}

func findItem(t *testing.T, insp *liftcheck.Inspection, section, item string) liftcheck.ItemResult {
	t.Helper()
	r, err := insp.Item(liftcheck.ItemKey{SectionID: section, ItemID: item})
	require.NoError(t, err)
	return r
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.ready = errors.New("database unreachable")
	rec = ts.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListResponse[liftcheck.Template]](t, rec)
	require.NotEmpty(t, list.Data)
	assert.Equal(t, len(list.Data), list.Total)

	rec = ts.do(t, http.MethodGet, "/api/templates/overhead-crane", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tmpl := decode[liftcheck.Template](t, rec)
	assert.Equal(t, "overhead-crane", tmpl.ID)
	assert.NoError(t, tmpl.Validate())

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/templates/overhead-crane/versions/1", http.StatusOK, ""},
		{"/api/templates/overhead-crane/versions/9", http.StatusNotFound, liftcheck.ENOTFOUND},
		{"/api/templates/overhead-crane/versions/abc", http.StatusBadRequest, liftcheck.EINVALID},
		{"/api/templates/tower-crane", http.StatusNotFound, liftcheck.ENOTFOUND},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Error)
			}
		})
	}
}

func TestStartInspection(t *testing.T) {
	ts := newTestServer(t)

	first := ts.start(t, "crane-042")
	assert.Equal(t, "tech-7", first.TechnicianID)
	assert.Equal(t, liftcheck.InspectionStatusInProgress, first.Status)

	// Starting again resumes the active inspection.
	rec := ts.do(t, http.MethodPost, "/api/inspections", map[string]any{
		"templateId": "overhead-crane",
		"assetId":    "crane-042",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[*liftcheck.Inspection](t, rec).ID)

	rec = ts.do(t, http.MethodPost, "/api/inspections", map[string]any{"templateId": "overhead-crane"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, liftcheck.EINVALID, resp.Error)
	assert.Equal(t, "is required", resp.Fields["assetId"])

	rec = ts.do(t, http.MethodPost, "/api/inspections", map[string]any{
		"templateId": "tower-crane",
		"assetId":    "crane-043",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/inspections", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInspections(t *testing.T) {
	ts := newTestServer(t)
	ts.start(t, "crane-1")
	ts.start(t, "crane-2")

	rec := ts.do(t, http.MethodGet, "/api/inspections?asset_id=crane-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListResponse[liftcheck.Inspection]](t, rec)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "crane-1", list.Data[0].AssetID)

	rec = ts.do(t, http.MethodGet, "/api/inspections?status=in_progress&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[ListResponse[liftcheck.Inspection]](t, rec)
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Data, 1)

	for _, query := range []string{"status=draft", "limit=-1", "offset=x"} {
		rec = ts.do(t, http.MethodGet, "/api/inspections?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestItemAnswers(t *testing.T) {
	ts := newTestServer(t)
	insp := ts.start(t, "crane-042")

	rec := ts.do(t, http.MethodPost, itemPath(insp, "hoist", "hook")+"/pass", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[*liftcheck.Inspection](t, rec)
	assert.Equal(t, liftcheck.ResultPass, findItem(t, updated, "hoist", "hook").Result)

	// Checklist-only operations reject other kinds.
	rec = ts.do(t, http.MethodPost, itemPath(insp, "identification", "rated_capacity")+"/pass", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, itemPath(insp, "identification", "rated_capacity")+"/answer", map[string]any{"numericValue": 600})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, itemPath(insp, "identification", "rated_capacity")+"/answer", map[string]any{
		"numericValue": 12.5,
		"comment":      "Per nameplate",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	r := findItem(t, decode[*liftcheck.Inspection](t, rec), "identification", "rated_capacity")
	require.NotNil(t, r.NumericValue)
	assert.Equal(t, 12.5, *r.NumericValue)
	assert.Equal(t, "Per nameplate", r.Comment)

	rec = ts.do(t, http.MethodPut, itemPath(insp, "identification", "last_load_test")+"/answer", map[string]any{"dateValue": "03/02/2026"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "dateValue")

	rec = ts.do(t, http.MethodDelete, itemPath(insp, "hoist", "hook"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, liftcheck.ResultUnanswered, findItem(t, decode[*liftcheck.Inspection](t, rec), "hoist", "hook").Result)

	rec = ts.do(t, http.MethodPost, itemPath(insp, "hoist", "no_such_item")+"/pass", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDefectFlow(t *testing.T) {
	ts := newTestServer(t)
	insp := ts.start(t, "crane-042")
	hook := itemPath(insp, "hoist", "hook")

	// Opening a defect returns a draft without saving it.
	rec := ts.do(t, http.MethodPost, hook+"/defect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	toggle := decode[DefectToggleResponse](t, rec)
	assert.False(t, toggle.Committed)
	assert.Equal(t, liftcheck.ResultDefect, toggle.Item.Result)
	assert.Equal(t, 0, ts.store.Saves())

	details := map[string]any{
		"defectType":             "Mechanical",
		"severity":               "Critical",
		"rectificationTimeframe": "Immediately",
		"notes":                  "Latch spring broken",
	}
	rec = ts.do(t, http.MethodPut, hook+"/defect", details)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, liftcheck.EMISSINGPHOTO, decode[ErrorResponse](t, rec).Error)

	rec = ts.upload(t, "/api/inspections/"+insp.ID.String()+"/photos", nil, testFile{"latch.jpg", jpegBytes})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	staged := decode[engine.PhotoBatch](t, rec)
	require.Len(t, staged.Accepted, 1)
	assert.Equal(t, "image/jpeg", staged.Accepted[0].ContentType)

	details["photos"] = staged.Accepted
	rec = ts.do(t, http.MethodPut, hook+"/defect", details)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[*liftcheck.Inspection](t, rec)
	r := findItem(t, saved, "hoist", "hook")
	require.NotNil(t, r.Defect)
	assert.Equal(t, liftcheck.SeverityCritical, r.Defect.Severity)
	assert.Equal(t, liftcheck.StatusUnsafe, saved.CraneStatus)

	rec = ts.do(t, http.MethodPut, hook+"/quote", map[string]any{"quoteStatus": "Quote Now"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/quotes?asset_id=crane-042", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	quotes := decode[ListResponse[liftcheck.QuoteCandidate]](t, rec)
	require.Len(t, quotes.Data, 1)
	assert.Equal(t, "hook", quotes.Data[0].Key.ItemID)

	// Removing the only photo of a saved defect is refused.
	rec = ts.do(t, http.MethodDelete, hook+"/photos/"+staged.Accepted[0].ID.String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Toggling again clears the defect immediately.
	rec = ts.do(t, http.MethodPost, hook+"/defect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	toggle = decode[DefectToggleResponse](t, rec)
	assert.True(t, toggle.Committed)
	assert.Nil(t, toggle.Item.Defect)
}

func TestPhotoUploads(t *testing.T) {
	ts := newTestServer(t)
	insp := ts.start(t, "crane-042")
	plate := itemPath(insp, "identification", "nameplate")

	// The type is sniffed from the bytes, not taken from the file name.
	rec := ts.upload(t, plate+"/photos", nil,
		testFile{"plate.jpg", pdfBytes},
		testFile{"plate.png", pngBytes},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	batch := decode[engine.PhotoBatch](t, rec)
	require.Len(t, batch.Accepted, 1)
	assert.Equal(t, "image/png", batch.Accepted[0].ContentType)
	require.Len(t, batch.Rejected, 1)
	assert.Equal(t, liftcheck.EPHOTOTYPE, batch.Rejected[0].Code)
	assert.Len(t, findItem(t, batch.Inspection, "identification", "nameplate").Photos, 1)

	rec = ts.upload(t, plate+"/photos?target=elsewhere", nil, testFile{"plate.png", pngBytes})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.upload(t, plate+"/photos", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A defect target needs a saved defect.
	rec = ts.upload(t, itemPath(insp, "hoist", "hook")+"/photos?target=defect", nil, testFile{"hook.jpg", jpegBytes})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, plate+"/photos/"+batch.Accepted[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, findItem(t, decode[*liftcheck.Inspection](t, rec), "identification", "nameplate").Photos)
	assert.Empty(t, ts.storage.Stored())
}

func TestResolveCarryForwardValidation(t *testing.T) {
	ts := newTestServer(t)
	insp := ts.start(t, "crane-042")

	rec := ts.upload(t, itemPath(insp, "hoist", "hook")+"/carry-forward", map[string]string{"status": "maybe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "status")

	// The row has no previous defect to re-check.
	rec = ts.upload(t, itemPath(insp, "hoist", "hook")+"/carry-forward", map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteAndReopen(t *testing.T) {
	ts := newTestServer(t)
	insp := ts.start(t, "crane-042")
	base := "/api/inspections/" + insp.ID.String()

	rec := ts.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, liftcheck.EINCOMPLETE, resp.Error)
	assert.NotEmpty(t, resp.Fields)

	rec = ts.do(t, http.MethodGet, base+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[engine.StatusReport](t, rec)
	assert.Equal(t, len(resp.Fields), len(report.Unanswered))

	rec = ts.do(t, http.MethodPut, base+"/crane-status", map[string]any{"status": "Mostly Fine"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, base+"/crane-status", map[string]any{"status": "Operate with Limitations"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, liftcheck.StatusWithLimitations, decode[*liftcheck.Inspection](t, rec).CraneStatus)

	// A completed inspection can be reopened; reopening twice is invalid.
	stored, ok := ts.store.Get(insp.ID)
	require.True(t, ok)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stored.Status = liftcheck.InspectionStatusCompleted
	stored.CompletedAt = &now
	require.NoError(t, ts.store.SaveInspection(context.Background(), stored))

	rec = ts.do(t, http.MethodPost, base+"/reopen", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, liftcheck.InspectionStatusInProgress, decode[*liftcheck.Inspection](t, rec).Status)

	rec = ts.do(t, http.MethodPost, base+"/reopen", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouting(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/inspections/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, liftcheck.ENOTFOUND, decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/templates", nil)
	ts.do(t, http.MethodGet, "/api/templates/tower-crane", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/templates",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/templates/:id",status="404"} 1`)
}

func TestErrorStatusCode(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{liftcheck.ENOTFOUND, http.StatusNotFound},
		{liftcheck.EINVALID, http.StatusBadRequest},
		{liftcheck.ECONFLICT, http.StatusConflict},
		{liftcheck.EMISSINGPHOTO, http.StatusUnprocessableEntity},
		{liftcheck.EPHOTOLIMIT, http.StatusUnprocessableEntity},
		{liftcheck.EINCOMPLETE, http.StatusUnprocessableEntity},
		{liftcheck.EPHOTOTOOLARGE, http.StatusRequestEntityTooLarge},
		{liftcheck.EPHOTOTYPE, http.StatusUnsupportedMediaType},
		{liftcheck.EINTERNAL, http.StatusInternalServerError},
		{"unknown", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, errorStatusCode(tt.code))
		})
	}
}
