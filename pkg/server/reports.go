package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/storage"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// reportSummary is a list entry of /api/reports.
type reportSummary struct {
	ID            string                   `json:"id"`
	Created       time.Time                `json:"created"`
	FileName      string                   `json:"fileName"`
	Configuration types.SavedConfiguration `json:"configuration"`
	PVArraySizeKW float64                  `json:"pvArraySizeKw"`
	Payback       types.Payback            `json:"paybackYears"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := s.reportListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, s.reportListLimit)
	}

	reports, err := s.storage.ListReports(ctx, s.getUser(r).ID, limit)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list reports", slog.Any("error", err))
		writeJSONError(w, "failed to list reports", http.StatusInternalServerError)
		return
	}

	out := make([]reportSummary, len(reports))
	for i, rep := range reports {
		out[i] = reportSummary{
			ID:            rep.ID,
			Created:       rep.Created,
			FileName:      rep.FileName,
			Configuration: rep.Configuration,
			PVArraySizeKW: rep.Sizing.PVArraySizeKW,
			Payback:       rep.Sizing.Payback,
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, out)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	rep, err := s.storage.GetReport(ctx, s.getUser(r).ID, id)
	if err != nil {
		if errors.Is(err, storage.ErrReportNotFound) {
			writeJSONError(w, "report not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get report", slog.String("reportID", id), slog.Any("error", err))
		writeJSONError(w, "failed to get report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, rep)
}

// handleCreateReport analyzes an upload like /api/analyze and saves the
// result.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := s.parseUpload(w, r)
	if err != nil {
		writeUploadError(w, r, err)
		return
	}
	rep, err := s.builder.Build(ctx, up.req)
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	if err := s.storage.InsertReport(ctx, rep); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save report", slog.Any("error", err))
		writeJSONError(w, "failed to save report", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "saved report", slog.String("reportID", rep.ID), slog.String("fileName", rep.FileName))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, rep)
}
