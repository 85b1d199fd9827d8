package live

import (
	"encoding/json"

	"github.com/pvsizer/pvsizer/pkg/types"
)

// Envelope wraps all websocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server
const (
	TypeReadings      = "readings"
	TypeConfiguration = "configuration"
	TypePrice         = "price"
)

// Server -> Client
const (
	TypeResult = "result"
	TypeError  = "error"
)

// ReadingsPayload replaces the data of the session. Stats is used when
// Readings is empty.
type ReadingsPayload struct {
	FileName string                  `json:"fileName,omitempty"`
	Readings []types.Reading         `json:"readings,omitempty"`
	Stats    *types.ConsumptionStats `json:"stats,omitempty"`
}

// ConfigurationPayload replaces the presets and overrides of the session.
type ConfigurationPayload struct {
	Presets   []string                     `json:"presets"`
	Overrides types.ConfigurationOverrides `json:"overrides"`
}

// PricePayload pins the electricity price. A null price goes back to the
// configured provider.
type PricePayload struct {
	PricePerKWH *float64 `json:"pricePerKwh"`
}

// ResultPayload is sent after every successful recompute.
type ResultPayload struct {
	Stats      types.ConsumptionStats `json:"stats"`
	Sizing     types.SizingResult     `json:"sizing"`
	Validation types.Validation       `json:"validation"`
}

// ErrorPayload is sent when a message cannot be applied or the recompute
// fails.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewEnvelope marshals payload into an envelope of type t.
func NewEnvelope(t string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}
