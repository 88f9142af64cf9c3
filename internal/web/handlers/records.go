package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/library-kiosk/internal/circulation"
	"github.com/kozaktomas/library-kiosk/internal/constants"
	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/kozaktomas/library-kiosk/internal/report"
	"github.com/rs/zerolog/hlog"
)

// RecordsHandler serves the staff views: records, history and roster audit.
type RecordsHandler struct {
	kiosk *circulation.Kiosk
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(k *circulation.Kiosk) *RecordsHandler {
	return &RecordsHandler{kiosk: k}
}

// recordView is a record without its embedding.
type recordView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	LoanState string    `json:"loan_state"`
	LoanItem  string    `json:"loan_item,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type pairView struct {
	AID      int64   `json:"a_id"`
	AName    string  `json:"a_name"`
	BID      int64   `json:"b_id"`
	BName    string  `json:"b_name"`
	Distance float64 `json:"distance"`
}

type auditResponse struct {
	Checked   int        `json:"checked"`
	Tolerance float64    `json:"tolerance"`
	Pairs     []pairView `json:"pairs"`
}

// List returns all records as JSON, or as CSV with ?format=csv.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.kiosk.ListRecords(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == string(report.FormatCSV) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="records.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := report.Render(w, records, report.FormatCSV); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("render records csv")
		}
		return
	}

	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toRecordView(rec))
	}
	respondJSON(w, http.StatusOK, views)
}

// Events returns the newest circulation events of one identity.
func (h *RecordsHandler) Events(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	limit := database.DefaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, constants.MaxHistoryLimit)
	}

	history, err := h.kiosk.History(r.Context(), name, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	hlog.FromRequest(r).Debug().Str("name", sanitizeForLog(name)).Int("events", len(history)).Msg("history served")
	if history == nil {
		history = []database.CirculationEvent{}
	}
	respondJSON(w, http.StatusOK, history)
}

// Audit lists enrolled identities that are closer than the dedup tolerance.
func (h *RecordsHandler) Audit(w http.ResponseWriter, r *http.Request) {
	result, err := h.kiosk.AuditRoster(r.Context(), nil)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := auditResponse{
		Checked:   result.Checked,
		Tolerance: result.Tolerance,
		Pairs:     make([]pairView, 0, len(result.Pairs)),
	}
	for _, p := range result.Pairs {
		resp.Pairs = append(resp.Pairs, pairView{
			AID:      p.A.ID,
			AName:    p.A.Name,
			BID:      p.B.ID,
			BName:    p.B.Name,
			Distance: p.Distance,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func toRecordView(rec database.IdentityRecord) recordView {
	return recordView{
		ID:        rec.ID,
		Name:      rec.Name,
		LoanState: string(rec.Loan.State),
		LoanItem:  rec.Loan.Item,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
