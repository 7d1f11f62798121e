package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"

	"github.com/lexicard/lexicard-api/internal/ciutil"
)

var (
	setupOnce sync.Once
	sharedURL string
	setupErr  error
)

// Open returns a connection to the shared test database, preparing it on
// first use. The connection is closed when t finishes. Tests are skipped in
// short mode.
func Open(t *testing.T, migrations fs.FS) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	setupOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		sharedURL, setupErr = prepare(ctx, migrations)
	})
	if setupErr != nil {
		t.Fatalf("failed to set up test database: %v", setupErr)
	}

	db, err := connect(context.Background(), sharedURL)
	if err != nil {
		t.Fatalf("failed to connect to test database %s: %v", ciutil.MaskDatabaseURL(sharedURL), err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// prepare resolves the database URL and applies migrations.
func prepare(ctx context.Context, migrations fs.FS) (string, error) {
	dbURL := ciutil.TestDatabaseURL(slog.Default())
	if dbURL == "" {
		var err error
		if dbURL, err = startContainer(ctx); err != nil {
			return "", err
		}
	}

	db, err := connect(ctx, dbURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	if err := ApplyMigrations(ctx, db, migrations); err != nil {
		return "", err
	}
	return dbURL, nil
}

func connect(ctx context.Context, dbURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// ApplyMigrations applies every pending migration found in migrations.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrations fs.FS) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
