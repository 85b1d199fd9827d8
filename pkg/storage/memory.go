package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pvsizer/pvsizer/pkg/types"
)

type memoryConfiguration struct {
	cfg     types.SavedConfiguration
	version int
}

// Memory implements Database in process memory. It is meant for local
// development and tests.
type Memory struct {
	mu             sync.RWMutex
	users          map[string]types.User
	configurations map[string]memoryConfiguration
	reports        map[string]map[string]types.Report
}

// NewMemory returns an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{
		users:          make(map[string]types.User),
		configurations: make(map[string]memoryConfiguration),
		reports:        make(map[string]map[string]types.Report),
	}
}

// GetConfiguration implements Database.
func (m *Memory) GetConfiguration(ctx context.Context, userID string) (types.SavedConfiguration, int, error) {
	if err := checkUserID(userID); err != nil {
		return types.SavedConfiguration{}, 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.configurations[userID]
	return c.cfg, c.version, nil
}

// SetConfiguration implements Database.
func (m *Memory) SetConfiguration(ctx context.Context, userID string, cfg types.SavedConfiguration, version int) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configurations[userID] = memoryConfiguration{cfg: cfg, version: version}
	return nil
}

// InsertReport implements Database.
func (m *Memory) InsertReport(ctx context.Context, report types.Report) error {
	if err := checkUserID(report.UserID); err != nil {
		return err
	}
	if report.ID == "" {
		return fmt.Errorf("report id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reports, ok := m.reports[report.UserID]
	if !ok {
		reports = make(map[string]types.Report)
		m.reports[report.UserID] = reports
	}
	if _, ok := reports[report.ID]; ok {
		return fmt.Errorf("report %s already exists", report.ID)
	}
	reports[report.ID] = report
	return nil
}

// GetReport implements Database.
func (m *Memory) GetReport(ctx context.Context, userID, reportID string) (types.Report, error) {
	if err := checkUserID(userID); err != nil {
		return types.Report{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[userID][reportID]
	if !ok {
		return types.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return r, nil
}

// ListReports implements Database.
func (m *Memory) ListReports(ctx context.Context, userID string, limit int) ([]types.Report, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	reports := make([]types.Report, 0, len(m.reports[userID]))
	for _, r := range m.reports[userID] {
		reports = append(reports, r)
	}
	m.mu.RUnlock()

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Created.After(reports[j].Created)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// GetUser implements Database.
func (m *Memory) GetUser(ctx context.Context, userID string) (types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return types.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return u, nil
}

// CreateUser implements Database.
func (m *Memory) CreateUser(ctx context.Context, user types.User) error {
	if err := checkUserID(user.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	m.users[user.ID] = user
	return nil
}

// Close implements Database.
func (m *Memory) Close() error {
	return nil
}
