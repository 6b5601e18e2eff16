package transition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fimbul-io/sporing/pkg/sqlbase"
)

// PostgresRepository implements Repository on PostgreSQL. All writes for one
// event run inside a single transaction and rely on unique constraints plus
// ON CONFLICT resolution for idempotence; no application-level locking.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository runs migrations and returns the store. The caller
// owns the *sql.DB and is expected to have verified connectivity already.
func NewPostgresRepository(ctx context.Context, logger *slog.Logger, db *sql.DB) (*PostgresRepository, error) {
	migrationManager := sqlbase.NewMigrationManager(logger, db, migrations())

	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run transition store migrations: %w", err)
	}

	return &PostgresRepository{
		db:     db,
		logger: logger.With("component", "transition_postgres_repository"),
	}, nil
}

const insertCauseQuery = `
	INSERT INTO arsak (melding_id, navn, opprettet)
	VALUES ($1, $2, $3)
	ON CONFLICT (melding_id)
	DO UPDATE SET navn = EXCLUDED.navn
	RETURNING id
`

// The WHERE clause keeps siste_gang from moving backward when events arrive
// out of order; in that case no row is returned and the whole event is
// treated as already known.
const insertEdgeQuery = `
	INSERT INTO tilstandsendring (fra_tilstand, til_tilstand, fordi, forste_gang, siste_gang)
	VALUES ($1, $2, $3, $4, $4)
	ON CONFLICT (fra_tilstand, til_tilstand, fordi)
	DO UPDATE SET siste_gang = EXCLUDED.siste_gang
		WHERE EXCLUDED.siste_gang >= tilstandsendring.siste_gang
	RETURNING id
`

// melding_id is the deduplication anchor: redelivery hits the conflict path,
// which only backfills a cause reference the original delivery lacked.
const insertLinkQuery = `
	INSERT INTO vedtaksperiode_tilstandsendring (melding_id, vedtaksperiode_id, tilstandsendring_id, arsak_id, naar)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (melding_id)
	DO UPDATE SET arsak_id = EXCLUDED.arsak_id
		WHERE vedtaksperiode_tilstandsendring.arsak_id IS NULL
`

func (r *PostgresRepository) Record(ctx context.Context, rec Record) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	var causeID int64

	err = transaction.QueryRowContext(ctx, insertCauseQuery,
		rec.Cause.ID, rec.Cause.Name, rec.Cause.CreatedAt,
	).Scan(&causeID)
	if err != nil {
		return fmt.Errorf("failed to upsert cause: %w", err)
	}

	var edgeID int64

	err = transaction.QueryRowContext(ctx, insertEdgeQuery,
		rec.FromState, rec.ToState, rec.Reason, rec.OccurredAt,
	).Scan(&edgeID)
	if errors.Is(err, sql.ErrNoRows) {
		// Out-of-order delivery of an already-known edge: nothing new to
		// record, but the cause label correction still lands.
		r.logger.InfoContext(ctx, "Skipping stale transition",
			"melding_id", rec.MessageID,
			"vedtaksperiode_id", rec.VedtaksperiodeID,
			"fra_tilstand", rec.FromState,
			"til_tilstand", rec.ToState)

		return commit(transaction)
	}

	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}

	_, err = transaction.ExecContext(ctx, insertLinkQuery,
		rec.MessageID, rec.VedtaksperiodeID, edgeID, causeID, rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}

	return commit(transaction)
}

func commit(transaction *sql.Tx) error {
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const selectTransitionsQuery = `
	SELECT t.fra_tilstand, t.til_tilstand, t.fordi, t.forste_gang, t.siste_gang, count(1) AS antall
	FROM tilstandsendring t
	INNER JOIN vedtaksperiode_tilstandsendring vt ON t.id = vt.tilstandsendring_id
	GROUP BY t.id
	ORDER BY t.forste_gang ASC, t.id ASC
`

func (r *PostgresRepository) Transitions(ctx context.Context, filter Filter) ([]Transition, error) {
	rows, err := r.db.QueryContext(ctx, selectTransitionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition

	for rows.Next() {
		var t Transition

		err := rows.Scan(&t.FromState, &t.ToState, &t.Reason, &t.FirstSeen, &t.LastSeen, &t.Count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}

	return filter.Apply(transitions), nil
}

const selectHistoryQuery = `
	SELECT t.fra_tilstand, t.til_tilstand, t.fordi, vt.naar
	FROM vedtaksperiode_tilstandsendring vt
	INNER JOIN tilstandsendring t ON vt.tilstandsendring_id = t.id
	WHERE vt.vedtaksperiode_id = $1
	ORDER BY vt.naar ASC, vt.id ASC
`

func (r *PostgresRepository) History(ctx context.Context, vedtaksperiodeID uuid.UUID) ([]Transition, error) {
	rows, err := r.db.QueryContext(ctx, selectHistoryQuery, vedtaksperiodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var transitions []Transition

	for rows.Next() {
		var (
			t    Transition
			naar time.Time
		)

		err := rows.Scan(&t.FromState, &t.ToState, &t.Reason, &naar)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		t.FirstSeen = naar
		t.LastSeen = naar
		t.Count = 1

		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return transitions, nil
}

const selectPersonHistoryQuery = `
	SELECT vt.vedtaksperiode_id, t.fra_tilstand, t.til_tilstand, t.fordi, vt.naar,
		a.melding_id, a.navn, a.opprettet
	FROM vedtaksperiode_tilstandsendring vt
	INNER JOIN tilstandsendring t ON vt.tilstandsendring_id = t.id
	LEFT JOIN arsak a ON vt.arsak_id = a.id
	WHERE vt.vedtaksperiode_id = ANY($1)
	ORDER BY vt.naar ASC, vt.id ASC
`

func (r *PostgresRepository) HistoryForVedtaksperioder(ctx context.Context, vedtaksperiodeIDs []uuid.UUID) ([]PersonTransition, error) {
	ids := make([]string, len(vedtaksperiodeIDs))
	for i, id := range vedtaksperiodeIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, selectPersonHistoryQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query person history: %w", err)
	}
	defer rows.Close()

	var transitions []PersonTransition

	for rows.Next() {
		var (
			t         PersonTransition
			causeID   uuid.NullUUID
			causeName sql.NullString
			createdAt sql.NullTime
		)

		err := rows.Scan(&t.VedtaksperiodeID, &t.FromState, &t.ToState, &t.Reason, &t.OccurredAt,
			&causeID, &causeName, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person history row: %w", err)
		}

		if causeID.Valid {
			t.Cause = &Cause{
				ID:        causeID.UUID,
				Name:      causeName.String,
				CreatedAt: createdAt.Time,
			}
		}

		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read person history: %w", err)
	}

	return transitions, nil
}
