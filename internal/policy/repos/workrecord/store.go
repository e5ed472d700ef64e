// Package workrecord is the authoritative write path. Submitting a work
// record re-runs the eligibility decision inside the same database
// transaction that inserts the record, with the server clock and the
// server's copy of the rules, so the check and the act cannot straddle a
// rule change and client-supplied "allowed" flags are never trusted.
//
// Expected schema:
//
//	send_list   (id TEXT PRIMARY KEY, timezone TEXT NOT NULL)
//	policy_rule (id UUID, list_id TEXT, name TEXT, kind TEXT, enabled BOOL,
//	             deleted_at TIMESTAMPTZ, days INT[], start_at TEXT, end_at TEXT,
//	             rule_date TEXT, pattern TEXT, wildcard BOOL, memo TEXT)
//	work_record (id UUID PRIMARY KEY, list_id TEXT, target TEXT,
//	             payload TEXT, created_at TIMESTAMPTZ)
package workrecord

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fieldreach/sendgate/internal/policy/common/clock"
	"github.com/fieldreach/sendgate/internal/policy/common/log"
	"github.com/fieldreach/sendgate/internal/policy/common/utils"
	"github.com/fieldreach/sendgate/internal/policy/domain"
	"github.com/fieldreach/sendgate/internal/policy/repos/snapshot"
	"github.com/fieldreach/sendgate/internal/policy/services/engine"
)

// ErrListNotFound reports a submission against an unknown list.
var ErrListNotFound = errors.New("send list not found")

// BlockedError reports a submission rejected by the policy gate. The
// decision carries the reasons and, when the block is temporal, the next
// eligible instant.
type BlockedError struct {
	Decision domain.Decision
}

func (e *BlockedError) Error() string {
	if len(e.Decision.Reasons) > 0 {
		return fmt.Sprintf("sending is currently restricted: %s", e.Decision.Reasons[0].Text)
	}
	return "sending is currently restricted"
}

// WorkRecord is a persisted send task.
type WorkRecord struct {
	ID        uuid.UUID
	ListID    string
	Target    string
	Payload   string
	CreatedAt time.Time
}

// Store reads rules and writes work records against Postgres.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

func NewStore(db *sql.DB, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Store{db: db, clock: clk}
}

const ruleColumns = `id, name, kind, enabled, deleted_at, days, start_at, end_at, rule_date, pattern, wildcard, memo`

// Submit gates and persists one work record. The rule load, the decision
// and the insert run in a single transaction; a blocked decision rolls the
// transaction back and returns a *BlockedError.
func (s *Store) Submit(ctx context.Context, listID, target, payload string) (WorkRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WorkRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	zone, err := listZone(ctx, tx, listID)
	if err != nil {
		return WorkRecord{}, err
	}
	rules, err := activeRules(ctx, tx, listID)
	if err != nil {
		return WorkRecord{}, err
	}

	now := s.clock.Now()
	decision := engine.Decide(rules.Temporal, rules.Domains, target, now, locationFor(zone))
	if decision.Blocked {
		log.Info(map[string]any{
			"list":    listID,
			"reasons": len(decision.Reasons),
		}, "work record rejected by policy gate")
		return WorkRecord{}, &BlockedError{Decision: decision}
	}

	rec := WorkRecord{
		ID:        uuid.New(),
		ListID:    listID,
		Target:    target,
		Payload:   payload,
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO work_record (id, list_id, target, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.ListID, rec.Target, rec.Payload, rec.CreatedAt,
	); err != nil {
		return WorkRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return WorkRecord{}, err
	}
	log.Debug(map[string]any{"list": listID, "record": rec.ID.String()}, "work record stored")

	return rec, nil
}

// ActiveRules loads the list's enabled, non-deleted rules outside any
// transaction. The advisory read path uses it and mirrors the result into
// the local snapshot store.
func (s *Store) ActiveRules(ctx context.Context, listID string) (snapshot.RuleSnapshot, error) {
	zone, err := listZone(ctx, s.db, listID)
	if err != nil {
		return snapshot.RuleSnapshot{}, err
	}
	rules, err := activeRules(ctx, s.db, listID)
	if err != nil {
		return snapshot.RuleSnapshot{}, err
	}
	rules.Zone = zone
	rules.UpdatedAt = s.clock.Now()
	return rules, nil
}

// querier abstracts *sql.DB and *sql.Tx for the read helpers.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listZone(ctx context.Context, q querier, listID string) (string, error) {
	var zone string
	err := q.QueryRowContext(ctx, `SELECT timezone FROM send_list WHERE id = $1`, listID).Scan(&zone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrListNotFound
	}
	return zone, err
}

func activeRules(ctx context.Context, q querier, listID string) (snapshot.RuleSnapshot, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM policy_rule WHERE list_id = $1 AND enabled AND deleted_at IS NULL`,
		listID)
	if err != nil {
		return snapshot.RuleSnapshot{}, err
	}
	defer func() { _ = rows.Close() }()

	var out snapshot.RuleSnapshot
	for rows.Next() {
		sr, err := scanRule(rows)
		if err != nil {
			return snapshot.RuleSnapshot{}, err
		}
		if sr.Kind == domain.KindDomainBlock.String() {
			dr, err := snapshot.DecodeDomainRule(sr)
			if err != nil {
				return snapshot.RuleSnapshot{}, fmt.Errorf("list %s: %w", listID, err)
			}
			out.Domains = append(out.Domains, dr)
			continue
		}
		tr, err := snapshot.DecodeTemporal(sr)
		if err != nil {
			return snapshot.RuleSnapshot{}, fmt.Errorf("list %s: %w", listID, err)
		}
		out.Temporal = append(out.Temporal, tr)
	}
	return out, rows.Err()
}

func scanRule(rows *sql.Rows) (snapshot.StoredRule, error) {
	var (
		sr        snapshot.StoredRule
		deletedAt sql.NullTime
		days      pq.Int64Array
		start     sql.NullString
		end       sql.NullString
		date      sql.NullString
		pattern   sql.NullString
		wildcard  sql.NullBool
		memo      sql.NullString
	)
	if err := rows.Scan(&sr.ID, &sr.Name, &sr.Kind, &sr.Enabled, &deletedAt,
		&days, &start, &end, &date, &pattern, &wildcard, &memo); err != nil {
		return snapshot.StoredRule{}, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		sr.DeletedAt = &t
	}
	for _, d := range days {
		sr.Days = append(sr.Days, int(d))
	}
	sr.Start = start.String
	sr.End = end.String
	sr.Date = date.String
	sr.Pattern = pattern.String
	sr.Wildcard = wildcard.Bool
	sr.Memo = memo.String
	return sr, nil
}

// locationFor resolves a list's configured zone name, warning once per call
// when the name is unknown.
func locationFor(zone string) *time.Location {
	loc := utils.LocationOrUTC(zone)
	if zone != "" && loc == time.UTC && zone != "UTC" {
		log.Warn(map[string]any{"zone": zone}, "unknown list timezone, evaluating in UTC")
	}
	return loc
}
