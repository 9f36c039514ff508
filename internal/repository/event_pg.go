package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PostgresEventRepo is the durable append-only risk event log.
type PostgresEventRepo struct {
	db *sqlx.DB
}

func NewPostgresEventRepo(db *sqlx.DB) *PostgresEventRepo {
	repo := &PostgresEventRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresEventRepo) Insert(ctx context.Context, ev *model.RiskEvent) error {
	if ev == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO risk_events (
			id, "user", market, gate_type, attempted_amount, current_limit,
			ts, is_violation
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.User, ev.Market, ev.Gate.String(), ev.AttemptedAmount.String(),
		ev.CurrentLimit.String(), ev.Timestamp, ev.IsViolation)
	return err
}

func (r *PostgresEventRepo) GetByID(ctx context.Context, id string) (*model.RiskEvent, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, "user", market, gate_type, attempted_amount, current_limit, ts, is_violation
		FROM risk_events WHERE id = $1
	`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ev, err
}

func (r *PostgresEventRepo) List(ctx context.Context, user, market string, limit int) ([]*model.RiskEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT id, "user", market, gate_type, attempted_amount, current_limit, ts, is_violation FROM risk_events`
	clauses := []string{}
	args := []interface{}{}
	idx := 1

	if user != "" {
		clauses = append(clauses, fmt.Sprintf(`"user" = $%d`, idx))
		args = append(args, user)
		idx++
	}
	if market != "" {
		clauses = append(clauses, fmt.Sprintf("market = $%d", idx))
		args = append(args, market)
		idx++
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY ts DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.RiskEvent, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*model.RiskEvent, error) {
	var ev model.RiskEvent
	var gate, amount, limit string
	if err := row.Scan(&ev.ID, &ev.User, &ev.Market, &gate, &amount, &limit, &ev.Timestamp, &ev.IsViolation); err != nil {
		return nil, err
	}
	parsed, err := model.ParseGateType(gate)
	if err != nil {
		return nil, err
	}
	ev.Gate = parsed
	if ev.AttemptedAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if ev.CurrentLimit, err = decimal.NewFromString(limit); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *PostgresEventRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_events (
			id TEXT PRIMARY KEY,
			"user" TEXT NOT NULL,
			market TEXT NOT NULL,
			gate_type TEXT NOT NULL,
			attempted_amount NUMERIC NOT NULL,
			current_limit NUMERIC NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			is_violation BOOLEAN NOT NULL DEFAULT TRUE
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_risk_events_user ON risk_events("user", ts DESC)`)
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_risk_events_market ON risk_events(market, ts DESC)`)
	return nil
}

func (r *PostgresEventRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := r.db.ExecContext(ctx, `DELETE FROM risk_events WHERE ts < $1`, cutoff)
	return err
}
