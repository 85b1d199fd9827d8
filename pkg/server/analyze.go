package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pvsizer/pvsizer/pkg/analysis"
	"github.com/pvsizer/pvsizer/pkg/ingest"
	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/metrics"
	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/report"
	"github.com/pvsizer/pvsizer/pkg/sizing"
	"github.com/pvsizer/pvsizer/pkg/types"
)

const (
	msgInsufficientData     = "insufficient data"
	msgInvalidConfiguration = "invalid configuration"
	msgInvalidStatistics    = "invalid statistics"
)

// writeReportError maps a pipeline error to a response.
func writeReportError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, analysis.ErrEmptyInput),
		errors.Is(err, ingest.ErrNoValidData),
		errors.Is(err, ingest.ErrMissingColumns),
		errors.Is(err, report.ErrNoData),
		errors.Is(err, sizing.ErrEmptyStats):
		log.Ctx(ctx).InfoContext(ctx, "insufficient data", slog.Any("error", err))
		writeJSONError(w, msgInsufficientData, http.StatusUnprocessableEntity)
	case errors.Is(err, types.ErrInvalidConfiguration),
		errors.Is(err, preset.ErrUnknownPreset):
		log.Ctx(ctx).InfoContext(ctx, "invalid configuration", slog.Any("error", err))
		writeJSONError(w, fmt.Sprintf("%s: %v", msgInvalidConfiguration, err), http.StatusUnprocessableEntity)
	case errors.Is(err, sizing.ErrInvalidStats),
		errors.Is(err, sizing.ErrOutOfRange):
		log.Ctx(ctx).InfoContext(ctx, "invalid statistics", slog.Any("error", err))
		writeJSONError(w, fmt.Sprintf("%s: %v", msgInvalidStatistics, err), http.StatusUnprocessableEntity)
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, analysis.ErrInvalidReading):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Ctx(ctx).ErrorContext(ctx, "failed to build report", slog.Any("error", err))
		writeJSONError(w, "failed to build report", http.StatusInternalServerError)
	}
}

// upload is a parsed multipart analysis request.
type upload struct {
	req     report.Request
	dropped int
	sheet   string
}

// parseUpload reads the multipart form of /api/analyze and /api/reports.
// Without presets, overrides or price fields the user's saved configuration
// is used.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return upload{}, fmt.Errorf("invalid form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, fmt.Errorf("missing file: %w", err)
	}
	defer file.Close()

	res, err := ingest.Parse(header.Filename, file, ingest.Options{
		Now:       time.Now(),
		SheetName: r.FormValue("sheet"),
	})
	if err != nil {
		return upload{}, err
	}
	metrics.ReadingsIngestedTotal.Add(float64(len(res.Readings)))
	metrics.ReadingsDroppedTotal.Add(float64(res.Dropped))

	cfg, custom, err := formConfiguration(r)
	if err != nil {
		return upload{}, err
	}
	user := s.getUser(r)
	if !custom && user.ID != "" && s.storage != nil {
		saved, err := s.getConfigurationWithMigration(ctx, user.ID)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to load saved configuration", slog.Any("error", err))
		} else {
			cfg = saved.SavedConfiguration
		}
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"parsed upload",
		slog.String("fileName", header.Filename),
		slog.Int("readings", len(res.Readings)),
		slog.Int("dropped", res.Dropped),
	)

	return upload{
		req: report.Request{
			UserID:        user.ID,
			FileName:      header.Filename,
			Readings:      res.Readings,
			Configuration: cfg,
		},
		dropped: res.Dropped,
		sheet:   res.Sheet,
	}, nil
}

// formConfiguration reads the presets, overrides and price form fields. The
// boolean is false when none of them were given.
func formConfiguration(r *http.Request) (types.SavedConfiguration, bool, error) {
	var cfg types.SavedConfiguration
	var custom bool
	for _, v := range r.MultipartForm.Value["presets"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Presets = append(cfg.Presets, name)
				custom = true
			}
		}
	}
	if v := r.FormValue("overrides"); v != "" {
		if err := json.Unmarshal([]byte(v), &cfg.Overrides); err != nil {
			return cfg, false, fmt.Errorf("%w: overrides: %w", types.ErrInvalidConfiguration, err)
		}
		custom = true
	}
	if v := r.FormValue("price"); v != "" {
		p, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			return cfg, false, fmt.Errorf("%w: price: %q", types.ErrInvalidConfiguration, v)
		}
		cfg.ElectricityPricePerKWH = &p
		custom = true
	}
	return cfg, custom, nil
}

type analyzeResponse struct {
	Stats      types.ConsumptionStats `json:"stats"`
	Sizing     types.SizingResult     `json:"sizing"`
	Validation types.Validation       `json:"validation"`
	Dropped    int                    `json:"dropped"`
	Sheet      string                 `json:"sheet,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	up, err := s.parseUpload(w, r)
	if err != nil {
		writeUploadError(w, r, err)
		return
	}
	rep, err := s.builder.Build(r.Context(), up.req)
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, analyzeResponse{
		Stats:      rep.Stats,
		Sizing:     rep.Sizing,
		Validation: rep.Validation,
		Dropped:    up.dropped,
		Sheet:      up.sheet,
	})
}

// writeUploadError reports form problems as bad requests and everything else
// like a pipeline error.
func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeJSONError(w, "file too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		writeJSONError(w, "missing file", http.StatusBadRequest)
	case errors.Is(err, types.ErrInvalidConfiguration),
		errors.Is(err, analysis.ErrEmptyInput),
		errors.Is(err, ingest.ErrNoValidData),
		errors.Is(err, ingest.ErrMissingColumns),
		errors.Is(err, ingest.ErrUnsupportedFormat):
		writeReportError(w, r, err)
	default:
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to read upload", slog.Any("error", err))
		writeJSONError(w, "failed to read file", http.StatusBadRequest)
	}
}

type sizeRequest struct {
	Stats     types.ConsumptionStats       `json:"stats"`
	Presets   []string                     `json:"presets"`
	Overrides types.ConfigurationOverrides `json:"overrides"`
	Price     *float64                     `json:"price"`
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	var req sizeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}
	rep, err := s.builder.Build(r.Context(), report.Request{
		UserID: s.getUser(r).ID,
		Stats:  &req.Stats,
		Configuration: types.SavedConfiguration{
			Presets:                req.Presets,
			Overrides:              req.Overrides,
			ElectricityPricePerKWH: req.Price,
		},
	})
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	writeJSON(w, rep.Sizing)
}

type validateRequest struct {
	Presets   []string                     `json:"presets"`
	Overrides types.ConfigurationOverrides `json:"overrides"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}
	cfg, err := s.builder.Configuration(types.SavedConfiguration{
		Presets:   req.Presets,
		Overrides: req.Overrides,
	})
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	writeJSON(w, sizing.Validate(cfg))
}

type presetSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	list := s.presets.List()
	out := make([]presetSummary, len(list))
	for i, p := range list {
		out[i] = presetSummary{Name: p.Name, Description: p.Description}
	}
	writeJSON(w, out)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.builder.Price(ctx, types.SavedConfiguration{})
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get price", slog.Any("error", err))
		writeJSONError(w, "failed to get price", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, p)
}
