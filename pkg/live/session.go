package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pvsizer/pvsizer/pkg/report"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// Session holds the inputs of one live connection. Every applied message
// replaces one input and triggers a full recompute.
type Session struct {
	builder *report.Builder

	fileName string
	readings []types.Reading
	stats    *types.ConsumptionStats
	cfg      types.SavedConfiguration
}

// NewSession returns a session starting from cfg.
func NewSession(builder *report.Builder, cfg types.SavedConfiguration) *Session {
	return &Session{builder: builder, cfg: cfg}
}

// Apply decodes env into the session inputs.
func (s *Session) Apply(env Envelope) error {
	switch env.Type {
	case TypeReadings:
		var p ReadingsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		s.fileName = p.FileName
		s.readings = p.Readings
		s.stats = nil
		if len(p.Readings) == 0 {
			s.stats = p.Stats
		}
	case TypeConfiguration:
		var p ConfigurationPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		s.cfg.Presets = p.Presets
		s.cfg.Overrides = p.Overrides
	case TypePrice:
		var p PricePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		s.cfg.ElectricityPricePerKWH = p.PricePerKWH
	default:
		return fmt.Errorf("unknown message type: %q", env.Type)
	}
	return nil
}

// HasData reports whether the session has readings or statistics yet.
func (s *Session) HasData() bool {
	return len(s.readings) > 0 || s.stats != nil
}

// Recompute runs the estimate on the current inputs.
func (s *Session) Recompute(ctx context.Context) (ResultPayload, error) {
	r, err := s.builder.Build(ctx, report.Request{
		FileName:      s.fileName,
		Readings:      s.readings,
		Stats:         s.stats,
		Configuration: s.cfg,
	})
	if err != nil {
		return ResultPayload{}, err
	}
	return ResultPayload{Stats: r.Stats, Sizing: r.Sizing, Validation: r.Validation}, nil
}
