// Package price provides the grid electricity price used to value savings.
package price

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/pvsizer/pvsizer/pkg/types"
)

// ErrUnknownProvider is returned when a provider name is not registered.
var ErrUnknownProvider = errors.New("unknown price provider")

// Provider returns the current electricity price.
type Provider interface {
	GetCurrentPrice(ctx context.Context) (types.Price, error)
}

// Configured sets up the price providers from flags and returns a Map.
func Configured() *Map {
	m := NewMap()
	name := lflag.String("price-provider", "static", "Default electricity price provider (available: static, feed)")
	staticPrice := lflag.String("price-static", strconv.FormatFloat(types.DefaultConfiguration().Financial.ElectricityPricePerKWH, 'f', -1, 64), "Static electricity price per kWh")
	currency := lflag.String("price-currency", "RON", "Currency of the static price")
	feed := configuredFeed()

	lflag.Do(func() {
		v, err := strconv.ParseFloat(*staticPrice, 64)
		if err != nil {
			panic(fmt.Sprintf("invalid price-static: %v", err))
		}
		s, err := NewStatic(v, *currency)
		if err != nil {
			panic(fmt.Sprintf("invalid price-static: %v", err))
		}
		m.Register(ProviderStatic, s)

		if feed.url != "" {
			m.Register(ProviderFeed, feed)
		}
		if err := m.SetDefault(*name); err != nil {
			panic(err.Error())
		}
	})

	return m
}

// Map holds price providers by name.
type Map struct {
	mu        sync.Mutex
	providers map[string]Provider
	def       string
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{
		providers: make(map[string]Provider),
	}
}

// Register adds or replaces a provider. The first registered provider
// becomes the default.
func (m *Map) Register(name string, p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
	if m.def == "" {
		m.def = name
	}
}

// SetDefault selects the provider Default returns.
func (m *Map) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	m.def = name
	return nil
}

// Get returns the named provider.
func (m *Map) Get(name string) (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Default returns the default provider.
func (m *Map) Default() (Provider, error) {
	m.mu.Lock()
	name := m.def
	m.mu.Unlock()
	return m.Get(name)
}

// Names returns the registered provider names, sorted.
func (m *Map) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type scheduled interface {
	Start(ctx context.Context) error
	Stop()
}

// Start starts every provider that refreshes on a schedule.
func (m *Map) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, p := range m.providers {
		if s, ok := p.(scheduled); ok {
			if err := s.Start(ctx); err != nil {
				return fmt.Errorf("failed to start %s: %w", name, err)
			}
		}
	}
	return nil
}

// Stop stops every scheduled provider.
func (m *Map) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if s, ok := p.(scheduled); ok {
			s.Stop()
		}
	}
}

// Resolve picks the price used for a sizing run: an explicit price wins,
// then a price pinned by the configuration, then the provider's.
func Resolve(ctx context.Context, explicit, pinned *float64, p Provider) (types.Price, error) {
	now := time.Now()
	if explicit != nil {
		return types.Price{Provider: "request", PerKWH: *explicit, FetchedAt: now}, nil
	}
	if pinned != nil {
		return types.Price{Provider: "configuration", PerKWH: *pinned, FetchedAt: now}, nil
	}
	if p == nil {
		return types.Price{}, fmt.Errorf("%w: none configured", ErrUnknownProvider)
	}
	return p.GetCurrentPrice(ctx)
}
