package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"refunds/internal/compliance/models"
	txcontext "refunds/pkg/platform/tx"
)

// Schema creates the compliance_rules table. Times are epoch milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS compliance_rules (
	rule_id           TEXT    NOT NULL,
	version           INTEGER NOT NULL,
	rule_type         TEXT    NOT NULL,
	provider_type     TEXT    NOT NULL,
	entity_type       TEXT    NOT NULL,
	entity_id         TEXT    NOT NULL,
	evaluation        TEXT    NOT NULL,
	condition_logic   TEXT    NULL,
	violation_code    TEXT    NOT NULL,
	violation_message TEXT    NOT NULL DEFAULT '',
	severity          TEXT    NOT NULL,
	remediation       TEXT    NOT NULL DEFAULT '',
	description       TEXT    NOT NULL DEFAULT '',
	effective_at      BIGINT  NOT NULL,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	PRIMARY KEY (rule_id, version)
);
CREATE INDEX IF NOT EXISTS compliance_rules_scope_idx
	ON compliance_rules (provider_type, entity_type, entity_id);
`

const ruleColumns = `rule_id, version, rule_type, provider_type, entity_type, entity_id,
	evaluation, condition_logic, violation_code, violation_message, severity,
	remediation, description, effective_at, active`

// SQLStore reads and appends rule versions through database/sql.
type SQLStore struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate compliance rules: %w", err)
	}
	return nil
}

// FindActiveRules selects, per rule id, the greatest version in effect at
// asOf and keeps it only when that version is active.
func (s *SQLStore) FindActiveRules(ctx context.Context, providerType models.ProviderType, entityType models.EntityType, entityID string, asOf time.Time) ([]*models.Rule, error) {
	at := asOf.UnixMilli()
	query := `SELECT ` + ruleColumns + `
		FROM compliance_rules r
		WHERE r.provider_type = $1
		  AND r.entity_type = $2
		  AND UPPER(r.entity_id) = UPPER($3)
		  AND r.effective_at <= $4
		  AND r.version = (
			SELECT MAX(v.version) FROM compliance_rules v
			WHERE v.rule_id = r.rule_id AND v.effective_at <= $5
		  )
		  AND r.active = TRUE
		ORDER BY r.rule_id`
	rows, err := s.db.QueryContext(ctx, query, string(providerType), string(entityType), entityID, at, at)
	if err != nil {
		return nil, fmt.Errorf("find active rules for %s/%s: %w", entityType, entityID, err)
	}
	defer rows.Close()

	var out []*models.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// Insert appends a new version of r. A zero Version becomes max(version)+1.
// It joins a transaction carried by ctx.
func (s *SQLStore) Insert(ctx context.Context, r *models.Rule) error {
	if err := validateForInsert(r); err != nil {
		return err
	}

	var version int
	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var latest int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) FROM compliance_rules WHERE rule_id = $1`, r.RuleID,
		).Scan(&latest); err != nil {
			return fmt.Errorf("read latest rule version: %w", err)
		}
		version = r.Version
		if version == 0 {
			version = latest + 1
		}
		if version <= latest {
			return fmt.Errorf("rule %s version %d is not greater than %d", r.RuleID, version, latest)
		}

		var condition sql.NullString
		if c := strings.TrimSpace(string(r.Condition)); c != "" {
			condition = sql.NullString{String: c, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO compliance_rules (`+ruleColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			r.RuleID, version, string(r.RuleType), string(r.ProviderType), string(r.EntityType), r.EntityID,
			string(r.Evaluation), condition, r.ViolationCode, r.ViolationMessage, string(r.Severity),
			r.Remediation, r.Description, r.EffectiveDate.UnixMilli(), r.Active,
		)
		if err != nil {
			return fmt.Errorf("insert rule %s: %w", r.RuleID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.Version = version
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var (
		r                                  models.Rule
		ruleType, providerType, entityType string
		evaluation, severity               string
		condition                          sql.NullString
		effectiveAt                        int64
	)
	err := row.Scan(&r.RuleID, &r.Version, &ruleType, &providerType, &entityType, &r.EntityID,
		&evaluation, &condition, &r.ViolationCode, &r.ViolationMessage, &severity,
		&r.Remediation, &r.Description, &effectiveAt, &r.Active)
	if err != nil {
		return nil, err
	}
	r.RuleType = models.RuleType(ruleType)
	r.ProviderType = models.ProviderType(providerType)
	r.EntityType = models.EntityType(entityType)
	r.Evaluation = []byte(evaluation)
	if condition.Valid {
		r.Condition = []byte(condition.String)
	}
	r.Severity = models.Severity(severity)
	r.EffectiveDate = time.UnixMilli(effectiveAt).UTC()
	return &r, nil
}
