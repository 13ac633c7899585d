// Package remote persists the tracker document to a per-account
// Firestore document. The service-account credential is the
// authentication gate: no credential, no remote backend.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"coffeecounter/internal/core"
	"coffeecounter/internal/store"

	gfs "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
)

type Client struct {
	svc       *gfs.Service
	projectID string
	accountID string
}

// Ensure interface conformance
var _ store.Store = (*Client)(nil)

// NewFromEnv creates a Firestore-backed store using environment
// variables.
// Required: FIRESTORE_PROJECT_ID, ACCOUNT_ID.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	projectID := strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	if projectID == "" {
		return nil, errors.New("missing FIRESTORE_PROJECT_ID")
	}
	accountID := strings.TrimSpace(os.Getenv("ACCOUNT_ID"))
	if accountID == "" {
		return nil, errors.New("missing ACCOUNT_ID")
	}

	svc, err := newFirestoreService(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore service: %w", err)
	}

	return &Client{svc: svc, projectID: projectID, accountID: accountID}, nil
}

// newFirestoreService initializes the Firestore service using Service
// Account credentials from the environment.
func newFirestoreService(ctx context.Context) (*gfs.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Firestore service with Service Account",
		"credentials_size", len(credentialsJSON))

	service, err := gfs.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gfs.DatastoreScope))
	if err != nil {
		return nil, fmt.Errorf("create firestore service: %w", err)
	}

	return service, nil
}

// documentName is the per-account document path. One account, one
// document: the whole state is a single last-writer-wins payload.
func (c *Client) documentName() string {
	return fmt.Sprintf("projects/%s/databases/(default)/documents/trackers/%s",
		c.projectID, c.accountID)
}

// Load fetches and decodes the account document. A missing document maps
// to store.ErrNotFound; a corrupt payload degrades to defaults via
// Normalize rather than failing.
func (c *Client) Load(ctx context.Context) (core.AppState, error) {
	doc, err := c.svc.Projects.Databases.Documents.Get(c.documentName()).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 404 {
			return core.AppState{}, store.ErrNotFound
		}
		return core.AppState{}, fmt.Errorf("get document: %w", err)
	}

	payload := doc.Fields["state"].StringValue
	if payload == "" {
		return core.AppState{}, store.ErrNotFound
	}

	var state core.AppState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		slog.WarnContext(ctx, "Malformed remote document, starting from defaults",
			"account", c.accountID, "error", err)
		return core.NewAppState(), nil
	}
	return state.Normalize(), nil
}

// Save writes the whole document, replacing whatever is there. Last
// writer wins; there is no merge and no conflict resolution.
func (c *Client) Save(ctx context.Context, state core.AppState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	doc := &gfs.Document{
		Fields: map[string]gfs.Value{
			"state":     {StringValue: string(payload)},
			"updatedAt": {TimestampValue: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	}

	_, err = c.svc.Projects.Databases.Documents.Patch(c.documentName(), doc).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("patch document: %w", err)
	}

	slog.InfoContext(ctx, "Saved state to Firestore",
		"account", c.accountID,
		"payload_bytes", len(payload))
	return nil
}
