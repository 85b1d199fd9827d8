package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/types"
)

type configurationWithVersion struct {
	types.SavedConfiguration
	version int
}

func (s *Server) getConfigurationWithMigration(ctx context.Context, userID string) (configurationWithVersion, error) {
	cfg, version, err := s.storage.GetConfiguration(ctx, userID)
	if err != nil {
		return configurationWithVersion{}, err
	}
	cv := configurationWithVersion{
		SavedConfiguration: cfg,
		version:            version,
	}

	// a version of 0 means nothing was stored yet
	if version > 0 && version < types.CurrentConfigurationVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating configuration", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentConfigurationVersion))
		migrated, changed, err := types.MigrateConfiguration(cfg, version)
		if err != nil {
			// Log error but return the configuration as is (best effort)
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate configuration", slog.Int("currentVersion", version), slog.Any("error", err))
		} else if changed {
			cv.SavedConfiguration = migrated
			cv.version = types.CurrentConfigurationVersion
			if err := s.storage.SetConfiguration(ctx, userID, migrated, types.CurrentConfigurationVersion); err != nil {
				// the migrated configuration still serves the current request
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated configuration", slog.Any("error", err))
			} else {
				log.Ctx(ctx).InfoContext(ctx, "saved migrated configuration", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentConfigurationVersion))
			}
		}
	}

	return cv, nil
}

func (s *Server) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	cfg, err := s.getConfigurationWithMigration(ctx, user.ID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get configuration", slog.Any("error", err))
		writeJSONError(w, "failed to get configuration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, cfg.SavedConfiguration)
}

func (s *Server) handleUpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)

	var cfg types.SavedConfiguration
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode configuration", slog.Any("error", err))
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}

	// accept every name a stored configuration could hold
	cfg, _, err := types.MigrateConfiguration(cfg, 1)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to normalize configuration", slog.Any("error", err))
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if _, err := s.builder.Configuration(cfg); err != nil {
		writeReportError(w, r, err)
		return
	}
	if p := cfg.ElectricityPricePerKWH; p != nil && *p < 0 {
		writeReportError(w, r, fmt.Errorf("%w: electricityPricePerKwh must be non-negative: %v", types.ErrInvalidConfiguration, *p))
		return
	}

	if err := s.storage.SetConfiguration(ctx, user.ID, cfg, types.CurrentConfigurationVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save configuration", slog.Any("error", err))
		writeJSONError(w, "failed to save configuration", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "saved configuration", slog.Any("presets", cfg.Presets))

	writeJSON(w, cfg)
}
