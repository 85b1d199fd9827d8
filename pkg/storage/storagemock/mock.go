package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pvsizer/pvsizer/pkg/storage"
	"github.com/pvsizer/pvsizer/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetConfiguration(ctx context.Context, userID string) (types.SavedConfiguration, int, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.SavedConfiguration), args.Int(1), args.Error(2)
}

func (m *MockDatabase) SetConfiguration(ctx context.Context, userID string, cfg types.SavedConfiguration, version int) error {
	args := m.Called(ctx, userID, cfg, version)
	return args.Error(0)
}

func (m *MockDatabase) InsertReport(ctx context.Context, report types.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockDatabase) GetReport(ctx context.Context, userID, reportID string) (types.Report, error) {
	args := m.Called(ctx, userID, reportID)
	return args.Get(0).(types.Report), args.Error(1)
}

func (m *MockDatabase) ListReports(ctx context.Context, userID string, limit int) ([]types.Report, error) {
	args := m.Called(ctx, userID, limit)
	if r := args.Get(0); r != nil {
		return r.([]types.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) GetUser(ctx context.Context, userID string) (types.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockDatabase) CreateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
