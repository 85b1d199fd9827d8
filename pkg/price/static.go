package price

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pvsizer/pvsizer/pkg/types"
)

const ProviderStatic = "static"

// Static always returns the same price.
type Static struct {
	price types.Price
}

// NewStatic returns a provider with a fixed price per kWh.
func NewStatic(perKWH float64, currency string) (*Static, error) {
	if math.IsNaN(perKWH) || math.IsInf(perKWH, 0) || perKWH < 0 {
		return nil, fmt.Errorf("price must be a non-negative number: %v", perKWH)
	}
	return &Static{price: types.Price{
		Provider: ProviderStatic,
		PerKWH:   perKWH,
		Currency: currency,
	}}, nil
}

// GetCurrentPrice implements Provider.
func (s *Static) GetCurrentPrice(ctx context.Context) (types.Price, error) {
	p := s.price
	p.FetchedAt = time.Now()
	return p, nil
}
