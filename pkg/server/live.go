package server

import (
	"log/slog"
	"net/http"

	"github.com/pvsizer/pvsizer/pkg/live"
	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// liveHandler serves /api/live. Logged in users start from their saved
// configuration.
func (s *Server) liveHandler() http.Handler {
	h := live.NewHandler(s.hub, s.builder)
	h.MaxMessageBytes = s.maxUploadBytes
	h.Initial = func(r *http.Request) types.SavedConfiguration {
		ctx := r.Context()
		user := s.getUser(r)
		if user.ID == "" || s.storage == nil {
			return types.SavedConfiguration{}
		}
		cfg, err := s.getConfigurationWithMigration(ctx, user.ID)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to load saved configuration", slog.Any("error", err))
			return types.SavedConfiguration{}
		}
		return cfg.SavedConfiguration
	}
	return h
}
