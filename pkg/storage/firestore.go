package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// FirestoreProvider implements Database using Google Cloud Firestore. Every
// document stores its value as a JSON string in the "json" field.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project id is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) userCollection(userID, name string) (*firestore.CollectionRef, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	return f.client.Collection("users").Doc(userID).Collection(name), nil
}

// decodeJSON reads the "json" field of a document into v.
func decodeJSON(ctx context.Context, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc json", slog.String("path", doc.Ref.Path), slog.Any("error", err))
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}

// GetConfiguration retrieves the "config/configuration" document of a user.
func (f *FirestoreProvider) GetConfiguration(ctx context.Context, userID string) (types.SavedConfiguration, int, error) {
	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return types.SavedConfiguration{}, 0, err
	}
	doc, err := coll.Doc("configuration").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.SavedConfiguration{}, 0, nil
		}
		return types.SavedConfiguration{}, 0, fmt.Errorf("failed to fetch configuration doc: %w", err)
	}

	// documents written before versioning have none
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	var c types.SavedConfiguration
	if err := decodeJSON(ctx, doc, &c); err != nil {
		return types.SavedConfiguration{}, 0, err
	}
	return c, version, nil
}

// SetConfiguration saves the "config/configuration" document of a user.
func (f *FirestoreProvider) SetConfiguration(ctx context.Context, userID string, cfg types.SavedConfiguration, version int) error {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	coll, err := f.userCollection(userID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("configuration").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// InsertReport adds a report to the user's "reports" collection. The
// created field is stored separately so listing can order by it.
func (f *FirestoreProvider) InsertReport(ctx context.Context, report types.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report id cannot be empty")
	}
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	coll, err := f.userCollection(report.UserID, "reports")
	if err != nil {
		return err
	}
	_, err = coll.Doc(report.ID).Create(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"created": report.Created,
		"version": types.CurrentReportVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.ID, err)
	}
	return nil
}

// GetReport retrieves a single report of a user.
func (f *FirestoreProvider) GetReport(ctx context.Context, userID, reportID string) (types.Report, error) {
	coll, err := f.userCollection(userID, "reports")
	if err != nil {
		return types.Report{}, err
	}
	doc, err := coll.Doc(reportID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
		}
		return types.Report{}, fmt.Errorf("failed to get report %s: %w", reportID, err)
	}
	var r types.Report
	if err := decodeJSON(ctx, doc, &r); err != nil {
		return types.Report{}, err
	}
	return r, nil
}

// ListReports retrieves the newest reports of a user.
func (f *FirestoreProvider) ListReports(ctx context.Context, userID string, limit int) ([]types.Report, error) {
	coll, err := f.userCollection(userID, "reports")
	if err != nil {
		return nil, err
	}
	q := coll.OrderBy("created", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var reports []types.Report
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating reports: %w", err)
		}
		var r types.Report
		if err := decodeJSON(ctx, doc, &r); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// GetUser retrieves a user from the "users" collection.
func (f *FirestoreProvider) GetUser(ctx context.Context, userID string) (types.User, error) {
	if err := checkUserID(userID); err != nil {
		return types.User{}, err
	}
	doc, err := f.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return types.User{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	var user types.User
	if err := decodeJSON(ctx, doc, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// CreateUser creates a new user document in the "users" collection.
func (f *FirestoreProvider) CreateUser(ctx context.Context, user types.User) error {
	if err := checkUserID(user.ID); err != nil {
		return err
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Create(ctx, map[string]interface{}{
		"json": string(userJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}
