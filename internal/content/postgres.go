package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// PostgresSource stores one JSON document per scene in the scenes table.
type PostgresSource struct {
	db *sql.DB
}

var _ Source = (*PostgresSource)(nil)

// NewPostgresSource connects to dsn and creates the scenes table if needed.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	p := &PostgresSource{db: db}
	if err := p.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create scenes table: %w", err)
	}
	return p, nil
}

func (p *PostgresSource) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS scenes (
			scene_name TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			document   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *PostgresSource) Fetch(ctx context.Context, id string) (scene.Scene, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT document FROM scenes WHERE scene_name = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scene: %w", err)
	}
	return scene.Parse(doc)
}

// Put inserts or replaces the document for id.
func (p *PostgresSource) Put(ctx context.Context, id string, s scene.Scene) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}
	query := `
		INSERT INTO scenes (scene_name, type, document, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (scene_name) DO UPDATE
		SET type = EXCLUDED.type, document = EXCLUDED.document, updated_at = now()
	`
	if _, err := p.db.ExecContext(ctx, query, id, string(s.Type()), doc); err != nil {
		return fmt.Errorf("failed to upsert scene %s: %w", id, err)
	}
	return nil
}

// Delete removes id. Deleting a missing scene is not an error.
func (p *PostgresSource) Delete(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM scenes WHERE scene_name = $1`, id); err != nil {
		return fmt.Errorf("failed to delete scene %s: %w", id, err)
	}
	return nil
}

func (p *PostgresSource) Close() error {
	return p.db.Close()
}
