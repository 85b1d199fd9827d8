package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/levenlabs/go-lflag"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/pvsizer/pvsizer/pkg/types"
)

// GormProvider implements Database on a SQL database through GORM. Values
// are stored as JSON next to the columns needed to query them.
type GormProvider struct {
	driver string
	dsn    string
	db     *gorm.DB
}

type userRow struct {
	ID        string    `gorm:"primaryKey;column:id"`
	JSON      string    `gorm:"column:json"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (userRow) TableName() string { return "users" }

type configurationRow struct {
	UserID    string    `gorm:"primaryKey;column:user_id"`
	JSON      string    `gorm:"column:json"`
	Version   int       `gorm:"column:version"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (configurationRow) TableName() string { return "configurations" }

type reportRow struct {
	ID      string    `gorm:"primaryKey;column:id"`
	UserID  string    `gorm:"column:user_id;index:idx_reports_user_created,priority:1"`
	Created time.Time `gorm:"column:created;index:idx_reports_user_created,priority:2"`
	Version int       `gorm:"column:version"`
	JSON    string    `gorm:"column:json"`
}

func (reportRow) TableName() string { return "reports" }

// configuredGorm sets up the SQL provider. The driver is picked by the
// storage-provider flag.
func configuredGorm() *GormProvider {
	dsn := lflag.String("sql-dsn", "pvsizer.db", "DSN for the sqlite or postgres storage provider")

	g := &GormProvider{}

	lflag.Do(func() {
		g.dsn = *dsn
	})

	return g
}

// NewGorm returns an initialized provider for driver ("sqlite" or
// "postgres") and dsn.
func NewGorm(ctx context.Context, driver, dsn string) (*GormProvider, error) {
	g := &GormProvider{driver: driver, dsn: dsn}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := g.Init(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks if the provider is properly configured.
func (g *GormProvider) Validate() error {
	if g.dsn == "" {
		return fmt.Errorf("sql-dsn is required")
	}
	switch g.driver {
	case "sqlite", "postgres":
		return nil
	default:
		return fmt.Errorf("unsupported driver: %s", g.driver)
	}
}

// Init opens the database and migrates the schema.
func (g *GormProvider) Init(ctx context.Context) error {
	var dialector gorm.Dialector
	if g.driver == "postgres" {
		dialector = postgres.Open(g.dsn)
	} else {
		dialector = sqlite.Open(g.dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", g.driver, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&userRow{}, &configurationRow{}, &reportRow{}); err != nil {
		return fmt.Errorf("failed to migrate %s database: %w", g.driver, err)
	}
	g.db = db
	return nil
}

// Close closes the underlying connection pool.
func (g *GormProvider) Close() error {
	if g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetConfiguration implements Database.
func (g *GormProvider) GetConfiguration(ctx context.Context, userID string) (types.SavedConfiguration, int, error) {
	if err := checkUserID(userID); err != nil {
		return types.SavedConfiguration{}, 0, err
	}
	var row configurationRow
	if err := g.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.SavedConfiguration{}, 0, nil
		}
		return types.SavedConfiguration{}, 0, fmt.Errorf("failed to fetch configuration: %w", err)
	}
	var c types.SavedConfiguration
	if err := json.Unmarshal([]byte(row.JSON), &c); err != nil {
		return types.SavedConfiguration{}, 0, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return c, row.Version, nil
}

// SetConfiguration implements Database.
func (g *GormProvider) SetConfiguration(ctx context.Context, userID string, cfg types.SavedConfiguration, version int) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	row := configurationRow{UserID: userID, JSON: string(jsonBytes), Version: version}
	err = g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// InsertReport implements Database.
func (g *GormProvider) InsertReport(ctx context.Context, report types.Report) error {
	if err := checkUserID(report.UserID); err != nil {
		return err
	}
	if report.ID == "" {
		return fmt.Errorf("report id cannot be empty")
	}
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	row := reportRow{
		ID:      report.ID,
		UserID:  report.UserID,
		Created: report.Created.UTC(),
		Version: types.CurrentReportVersion,
		JSON:    string(jsonBytes),
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.ID, err)
	}
	return nil
}

// GetReport implements Database.
func (g *GormProvider) GetReport(ctx context.Context, userID, reportID string) (types.Report, error) {
	if err := checkUserID(userID); err != nil {
		return types.Report{}, err
	}
	var row reportRow
	if err := g.db.WithContext(ctx).First(&row, "id = ? AND user_id = ?", reportID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
		}
		return types.Report{}, fmt.Errorf("failed to get report %s: %w", reportID, err)
	}
	return decodeReport(row)
}

// ListReports implements Database.
func (g *GormProvider) ListReports(ctx context.Context, userID string, limit int) ([]types.Report, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	q := g.db.WithContext(ctx).Where("user_id = ?", userID).Order("created desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []reportRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	reports := make([]types.Report, 0, len(rows))
	for _, row := range rows {
		r, err := decodeReport(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func decodeReport(row reportRow) (types.Report, error) {
	var r types.Report
	if err := json.Unmarshal([]byte(row.JSON), &r); err != nil {
		return types.Report{}, fmt.Errorf("failed to unmarshal report %s: %w", row.ID, err)
	}
	return r, nil
}

// GetUser implements Database.
func (g *GormProvider) GetUser(ctx context.Context, userID string) (types.User, error) {
	if err := checkUserID(userID); err != nil {
		return types.User{}, err
	}
	var row userRow
	if err := g.db.WithContext(ctx).First(&row, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return types.User{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	var user types.User
	if err := json.Unmarshal([]byte(row.JSON), &user); err != nil {
		return types.User{}, fmt.Errorf("failed to unmarshal user %s: %w", userID, err)
	}
	return user, nil
}

// CreateUser implements Database. Creating an existing user fails.
func (g *GormProvider) CreateUser(ctx context.Context, user types.User) error {
	if err := checkUserID(user.ID); err != nil {
		return err
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	if err := g.db.WithContext(ctx).Create(&userRow{ID: user.ID, JSON: string(userJSON)}).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}
