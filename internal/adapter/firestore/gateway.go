// Package firestore adapts the remote Firebase backend (Firestore documents
// plus Cloud Storage attachments) to the gateway interface the sync and
// verification layers depend on.
package firestore

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	cstorage "cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"

	fsclient "cloud.google.com/go/firestore"
)

// Config selects the Firebase project and its attachment bucket.
// CredentialsB64 is a base64-encoded service account JSON; when empty the
// client falls back to application default credentials.
type Config struct {
	ProjectID      string
	Bucket         string
	CredentialsB64 string
}

// Gateway implements syncer.Gateway and verify.DocumentWriter against a
// Firebase project.
type Gateway struct {
	firestore *fsclient.Client
	bucket    *cstorage.BucketHandle
	logger    *slog.Logger
}

// New initializes the Firebase app and opens Firestore and Storage handles.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	var opts []option.ClientOption
	if cfg.CredentialsB64 != "" {
		creds, err := base64.StdEncoding.DecodeString(cfg.CredentialsB64)
		if err != nil {
			return nil, fmt.Errorf("decode firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.Bucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firestore client: %w", err)
	}

	st, err := app.Storage(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("open storage client: %w", err)
	}
	bucket, err := st.DefaultBucket()
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("open storage bucket: %w", err)
	}

	logger.Info("firebase gateway ready", "project", cfg.ProjectID, "bucket", cfg.Bucket)
	return &Gateway{firestore: fs, bucket: bucket, logger: logger}, nil
}

func (g *Gateway) Close() error {
	return g.firestore.Close()
}

// PutAttachment writes the binary under the given object path and returns the
// path as its locator.
func (g *Gateway) PutAttachment(ctx context.Context, path string, data []byte) (string, error) {
	w := g.bucket.Object(path).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write attachment %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize attachment %s: %w", path, err)
	}
	g.logger.Debug("attachment stored", "path", path, "bytes", len(data))
	return path, nil
}

// LocatorURL resolves an object path to its direct download URL.
func (g *Gateway) LocatorURL(ctx context.Context, locator string) (string, error) {
	attrs, err := g.bucket.Object(locator).Attrs(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve attachment %s: %w", locator, err)
	}
	return attrs.MediaLink, nil
}

// CreateDocument adds a document with a generated id and returns the id.
func (g *Gateway) CreateDocument(ctx context.Context, collection string, payload map[string]any) (string, error) {
	ref, _, err := g.firestore.Collection(collection).Add(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("create document in %s: %w", collection, err)
	}
	g.logger.Debug("document created", "collection", collection, "id", ref.ID)
	return ref.ID, nil
}

// UpdateDocument merges the partial fields into an existing document.
func (g *Gateway) UpdateDocument(ctx context.Context, collection, id string, partial map[string]any) error {
	if _, err := g.firestore.Collection(collection).Doc(id).Set(ctx, partial, fsclient.MergeAll); err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	return nil
}
