package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmm/internal/core"
	"mmm/internal/ledger"
	"mmm/internal/persist/memory"
	"mmm/internal/scan"
	"mmm/internal/services"
)

type fakeScanner struct {
	result scan.Result
	err    error
}

func (f fakeScanner) Scan(ctx context.Context, image []byte, mimeType string) (scan.Result, error) {
	return f.result, f.err
}

func testNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewLedgerService(ledger.NewStore(), memory.New(), nil)
	scanner := scan.NewService(fakeScanner{result: scan.Result{
		Merchant: "7-Eleven",
		Amount:   120.50,
		Date:     "2024-06-14",
		Category: "Food",
		Items:    []string{"Water"},
	}}, testNow)
	srv := NewServer(":0", svc, scanner, testNow)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date":      "2024-06-14",
		"merchant":  "7-Eleven",
		"amount":    12050,
		"type":      "expense",
		"ownership": "personal",
		"category":  "Food",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "7-Eleven", created.Merchant)

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var listed []core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date":      "2024-06-14",
		"amount":    12050,
		"type":      "expense",
		"ownership": "personal",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date":      "2024-06-14",
		"merchant":  "Cafe",
		"amount":    100,
		"type":      "expense",
		"ownership": "group",
		"groupId":   "missing",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("not json"))
	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusBadRequest, rr2.Code)
}

func TestGroupLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/groups", map[string]any{
		"name":    "Trip to Chiang Mai",
		"budget":  1500000,
		"members": 4,
		"icon":    "✈️",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created core.Group
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	// Duplicate id conflicts.
	rr = doJSON(t, srv, http.MethodPost, "/api/groups", map[string]any{
		"id":     created.ID,
		"name":   "Duplicate",
		"budget": 100,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Update in place.
	rr = doJSON(t, srv, http.MethodPut, "/api/groups/"+created.ID, map[string]any{
		"name":   "Trip to Chiang Mai",
		"budget": 2000000,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, srv, http.MethodGet, "/api/groups/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var fetched core.Group
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fetched))
	assert.Equal(t, int64(2000000), fetched.Budget.Cents)

	// Unknown id.
	rr = doJSON(t, srv, http.MethodPut, "/api/groups/nope", map[string]any{
		"name":   "Ghost",
		"budget": 100,
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListTransactionsFiltered(t *testing.T) {
	srv := newTestServer(t)

	for _, tx := range []map[string]any{
		{"date": "2024-06-10", "merchant": "Old This Month", "amount": 100, "type": "expense", "ownership": "personal"},
		{"date": "2024-06-14", "merchant": "New This Month", "amount": 200, "type": "expense", "ownership": "personal"},
		{"date": "2024-01-02", "merchant": "January", "amount": 300, "type": "expense", "ownership": "personal"},
	} {
		rr := doJSON(t, srv, http.MethodPost, "/api/transactions", tx)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	// Unfiltered keeps raw collection order (newest insert first).
	rr := doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var raw []core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.Len(t, raw, 3)
	assert.Equal(t, "January", raw[0].Merchant)

	// time=month filters and sorts by date descending.
	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?time=month", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var filtered []core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &filtered))
	require.Len(t, filtered, 2)
	assert.Equal(t, "New This Month", filtered[0].Merchant)
	assert.Equal(t, "Old This Month", filtered[1].Merchant)
}

func TestListGroupsIncludesSpend(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/groups", map[string]any{
		"id":     "g1",
		"name":   "Office",
		"budget": 10000,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date":      "2024-06-14",
		"merchant":  "Supplies",
		"amount":    2500,
		"type":      "expense",
		"ownership": "group",
		"groupId":   "g1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/groups", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var rows []struct {
		core.Group
		Spend core.Money `json:"spend"`
		Ratio float64    `json:"ratio"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2500), rows[0].Spend.Cents)
	assert.InDelta(t, 0.25, rows[0].Ratio, 1e-9)
}

func TestDashboardEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/groups", map[string]any{
		"id":     "g1",
		"name":   "Office",
		"budget": 10000,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date":      "2024-06-14",
		"merchant":  "Supplies",
		"amount":    9000,
		"type":      "expense",
		"ownership": "group",
		"groupId":   "g1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var dash core.DashboardModel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	require.Len(t, dash.Alerts, 1)
	assert.Equal(t, core.AlertWarning, dash.Alerts[0].Level)
}

func TestReportFilters(t *testing.T) {
	srv := newTestServer(t)

	for _, tx := range []map[string]any{
		{"date": "2024-06-14", "merchant": "This Month", "amount": 100, "type": "expense", "ownership": "personal"},
		{"date": "2024-01-02", "merchant": "January", "amount": 200, "type": "expense", "ownership": "personal"},
	} {
		rr := doJSON(t, srv, http.MethodPost, "/api/transactions", tx)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/report?time=month", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var report core.ReportModel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Len(t, report.Transactions, 1)
	assert.Equal(t, "This Month", report.Transactions[0].Merchant)
}

func TestScanEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "slip.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result scan.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "7-Eleven", result.Merchant)
}

func TestScanEndpointRejectsOversizedImage(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "huge.jpg")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xff}, maxScanImageBytes+1))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestScanEndpointMissingImage(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScanEndpointNotConfigured(t *testing.T) {
	svc := services.NewLedgerService(ledger.NewStore(), memory.New(), nil)
	srv := NewServer(":0", svc, nil, testNow)
	t.Cleanup(func() { srv.rateLimiter.stop() })

	rr := doJSON(t, srv, http.MethodPost, "/api/scan", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestExportCSVEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date":      "2024-06-14",
		"merchant":  "7-Eleven",
		"amount":    12050,
		"type":      "expense",
		"ownership": "personal",
		"category":  "Food",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/export.csv", nil)
	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, req)
	require.Equal(t, http.StatusOK, rr2.Code)

	assert.Equal(t, "text/csv; charset=utf-8", rr2.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="mmm_report_2024-06-15.csv"`, rr2.Header().Get("Content-Disposition"))
	assert.Contains(t, rr2.Body.String(), "2024-06-14,7-Eleven,120.50,expense,Food,personal,-")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodDelete, "/api/dashboard", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/scan", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
