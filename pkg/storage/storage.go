package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/pvsizer/pvsizer/pkg/types"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrReportNotFound = errors.New("report not found")
)

// Database defines the interface for persisting users, their saved
// configuration and their saved reports.
type Database interface {
	// GetConfiguration returns the saved configuration and the version it
	// was stored with. A user without one gets a zero value and version 0.
	GetConfiguration(ctx context.Context, userID string) (types.SavedConfiguration, int, error)
	SetConfiguration(ctx context.Context, userID string, cfg types.SavedConfiguration, version int) error

	// Reports
	InsertReport(ctx context.Context, report types.Report) error
	GetReport(ctx context.Context, userID, reportID string) (types.Report, error)
	// ListReports returns up to limit reports, newest first.
	ListReports(ctx context.Context, userID string, limit int) ([]types.Report, error)

	// Users
	GetUser(ctx context.Context, userID string) (types.User, error)
	CreateUser(ctx context.Context, user types.User) error

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "sqlite", "Storage provider to use (available: firestore, sqlite, postgres, memory)")

	var p struct{ Database }

	fs := configuredFirestore()
	sql := configuredGorm()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			p.Database = fs
		case "sqlite", "postgres":
			sql.driver = *provider
			if err := sql.Validate(); err != nil {
				panic(fmt.Sprintf("%s validation failed: %v", *provider, err))
			}
			if err := sql.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("%s init failed: %v", *provider, err))
			}
			p.Database = sql
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

func checkUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	return nil
}
