package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"refunds/internal/parameter/models"
	"refunds/pkg/platform/sentinel"
	txcontext "refunds/pkg/platform/tx"
)

// Schema creates the parameters table. Times are epoch milliseconds so the
// same statements run on PostgreSQL and SQLite.
const Schema = `
CREATE TABLE IF NOT EXISTS parameters (
	name            TEXT    NOT NULL,
	entity_type     TEXT    NOT NULL,
	entity_id       TEXT    NOT NULL DEFAULT '',
	version         INTEGER NOT NULL,
	data_type       TEXT    NOT NULL,
	value           TEXT    NOT NULL,
	effective_at    BIGINT  NOT NULL,
	expires_at      BIGINT  NULL,
	overridable     BOOLEAN NOT NULL DEFAULT TRUE,
	description     TEXT    NOT NULL DEFAULT '',
	created_by      TEXT    NOT NULL DEFAULT '',
	created_at      BIGINT  NOT NULL,
	updated_at      BIGINT  NOT NULL,
	PRIMARY KEY (name, entity_type, entity_id, version)
);
CREATE INDEX IF NOT EXISTS parameters_lookup_idx
	ON parameters (name, entity_type, entity_id, effective_at);
`

const selectColumns = `name, entity_type, entity_id, version, data_type, value,
	effective_at, expires_at, overridable, description, created_by, created_at, updated_at`

// SQLStore reads and appends parameter versions through database/sql.
type SQLStore struct {
	db *sql.DB
}

// NewSQL constructs a SQL-backed parameter store.
func NewSQL(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate applies Schema.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate parameters: %w", err)
	}
	return nil
}

func (s *SQLStore) FindActiveParameter(ctx context.Context, name string, entityType models.EntityType, entityID string, asOf time.Time) (*models.Parameter, error) {
	if entityType == models.EntitySystem {
		entityID = ""
	}
	at := asOf.UnixMilli()
	query := `SELECT ` + selectColumns + `
		FROM parameters
		WHERE name = $1 AND entity_type = $2 AND entity_id = $3
		  AND effective_at <= $4
		  AND (expires_at IS NULL OR expires_at > $5)
		ORDER BY version DESC
		LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, name, string(entityType), entityID, at, at)
	p, err := scanParameter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active parameter %s: %w", name, err)
	}
	return p, nil
}

// Insert appends a new version. A zero Version becomes max(version)+1. It
// joins a transaction carried by ctx.
func (s *SQLStore) Insert(ctx context.Context, p *models.Parameter) error {
	if err := validateForInsert(p); err != nil {
		return err
	}
	entityID := p.EntityID
	if p.EntityType == models.EntitySystem {
		entityID = ""
	}

	var version int
	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var latest int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) FROM parameters WHERE name = $1 AND entity_type = $2 AND entity_id = $3`,
			p.Name, string(p.EntityType), entityID,
		).Scan(&latest)
		if err != nil {
			return fmt.Errorf("read latest parameter version: %w", err)
		}
		version = p.Version
		if version == 0 {
			version = latest + 1
		}
		if version <= latest {
			return fmt.Errorf("parameter %s version %d is not greater than %d", p.Name, version, latest)
		}

		now := time.Now()
		createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
		var expiresAt sql.NullInt64
		if p.ExpirationDate != nil {
			expiresAt = sql.NullInt64{Int64: p.ExpirationDate.UnixMilli(), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO parameters (`+selectColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			p.Name, string(p.EntityType), entityID, version, string(p.DataType), string(p.Value),
			p.EffectiveDate.UnixMilli(), expiresAt, p.Overridable, p.Description, p.CreatedBy,
			createdAt.UnixMilli(), updatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert parameter %s: %w", p.Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.Version = version
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParameter(row rowScanner) (*models.Parameter, error) {
	var (
		p                    models.Parameter
		entityType, dataType string
		value                string
		effectiveAt          int64
		expiresAt            sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.Name, &entityType, &p.EntityID, &p.Version, &dataType, &value,
		&effectiveAt, &expiresAt, &p.Overridable, &p.Description, &p.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	et, err := models.ParseEntityType(entityType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrCorrupt, err)
	}
	p.EntityType = et
	p.DataType = models.DataType(dataType)
	p.Value = []byte(value)
	p.EffectiveDate = time.UnixMilli(effectiveAt).UTC()
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64).UTC()
		p.ExpirationDate = &t
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}
