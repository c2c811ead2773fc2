package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"mmm/internal/core"
	"mmm/internal/export"
	applog "mmm/internal/log"
	"mmm/internal/scan"
)

// maxScanImageBytes bounds receipt uploads.
const maxScanImageBytes = 10 << 20

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, core.BuildDashboard(snap.Transactions, snap.Groups))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	gf, tf := parseFilters(r)
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, core.BuildReport(snap.Transactions, gf, tf, s.now()))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := s.ledger.Snapshot()
		// Without filters the raw collection order is preserved; with
		// filters the view is date-sorted.
		if r.URL.Query().Get("group") == "" && r.URL.Query().Get("time") == "" {
			writeJSON(w, http.StatusOK, snap.Transactions)
			return
		}
		gf, tf := parseFilters(r)
		writeJSON(w, http.StatusOK, core.FilterView(snap.Transactions, gf, tf, s.now()))

	case http.MethodPost:
		var tx core.Transaction
		if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		tx.Merchant = sanitizeInput(tx.Merchant)
		tx.Note = sanitizeInput(tx.Note)

		saved, err := s.ledger.SaveTransaction(r.Context(), tx)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)

	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// groupWithSpend is the group listing row: the group plus its running
// expense total and budget consumption.
type groupWithSpend struct {
	core.Group
	Spend core.Money `json:"spend"`
	Ratio float64    `json:"ratio"`
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := s.ledger.Snapshot()
		rows := make([]groupWithSpend, 0, len(snap.Groups))
		for _, g := range snap.Groups {
			spend := core.GroupSpend(snap.Transactions, g.ID)
			rows = append(rows, groupWithSpend{
				Group: g,
				Spend: spend,
				Ratio: core.BudgetRatio(spend, g.Budget),
			})
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPost:
		var g core.Group
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g.Name = sanitizeInput(g.Name)

		created, err := s.ledger.CreateGroup(r.Context(), g)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodPut:
		var g core.Group
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if g.ID == "" {
			writeError(w, http.StatusBadRequest, "group id is required")
			return
		}
		g.Name = sanitizeInput(g.Name)

		updated, err := s.ledger.UpdateGroup(r.Context(), g)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		w.Header().Set("Allow", "GET, POST, PUT")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGroupByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/groups/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		snap := s.ledger.Snapshot()
		for _, g := range snap.Groups {
			if g.ID == id {
				writeJSON(w, http.StatusOK, g)
				return
			}
		}
		writeError(w, http.StatusNotFound, "group not found")

	case http.MethodPut:
		var g core.Group
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g.ID = id
		g.Name = sanitizeInput(g.Name)

		updated, err := s.ledger.UpdateGroup(r.Context(), g)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		w.Header().Set("Allow", "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "slip scanning is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxScanImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxScanImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(image) > maxScanImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 10MB limit")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	result, err := s.scanner.Scan(r.Context(), image, mimeType)
	if errors.Is(err, scan.ErrStale) {
		writeError(w, http.StatusConflict, "superseded by a newer scan")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Scan failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	gf, tf := parseFilters(r)
	snap := s.ledger.Snapshot()
	now := s.now()
	filtered := core.FilterView(snap.Transactions, gf, tf, now)

	payload, err := export.WriteCSV(filtered, snap.Groups)
	if err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(now)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// parseFilters reads the report filters; anything unrecognized in the
// group parameter is treated as a group id.
func parseFilters(r *http.Request) (core.GroupFilter, core.TimeFilter) {
	gf := core.GroupFilterAll
	if v := strings.TrimSpace(r.URL.Query().Get("group")); v != "" {
		gf = core.GroupFilter(v)
	}

	tf := core.TimeFilterAll
	if strings.TrimSpace(r.URL.Query().Get("time")) == string(core.TimeFilterMonth) {
		tf = core.TimeFilterMonth
	}

	return gf, tf
}

// writeLedgerError maps store errors onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidTransaction),
		errors.Is(err, core.ErrInvalidGroup),
		errors.Is(err, core.ErrUnknownGroup):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Ledger operation failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
