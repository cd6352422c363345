// Package firebase backs the tree with a Firebase Realtime Database, the
// hosted store this application's data model is shaped after. Paths map
// directly to database references.
package firebase

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"timelog/internal/store"
)

type Store struct {
	client *db.Client
}

type Options struct {
	DatabaseURL     string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Store, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: opts.DatabaseURL}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize realtime database client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Read(ctx context.Context, path string) (store.Snapshot, error) {
	if err := store.ValidatePath(path); err != nil {
		return store.Snapshot{}, err
	}
	var raw json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &raw); err != nil {
		return store.Snapshot{}, fmt.Errorf("read node %s: %w", path, err)
	}
	return store.NewSnapshot(raw), nil
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	if err := s.client.NewRef(path).Set(ctx, value); err != nil {
		return fmt.Errorf("write node %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	if err := s.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("delete node %s: %w", path, err)
	}
	return nil
}
