package postgres

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapdesk/internal/model"
	"swapdesk/internal/storage"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schema = `
CREATE TABLE IF NOT EXISTS hub_pools (
	hub_address      TEXT        NOT NULL,
	pool_id          NUMERIC     NOT NULL,
	token_a          TEXT        NOT NULL,
	token_b          TEXT        NOT NULL,
	reserve_a        NUMERIC     NOT NULL,
	reserve_b        NUMERIC     NOT NULL,
	total_liquidity  NUMERIC     NOT NULL,
	total_volume     NUMERIC     NOT NULL,
	total_fees       NUMERIC     NOT NULL,
	is_active        BOOLEAN     NOT NULL,
	created_at       BIGINT      NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (hub_address, pool_id)
);
CREATE TABLE IF NOT EXISTS actions (
	id           TEXT        PRIMARY KEY,
	kind         TEXT        NOT NULL,
	account      TEXT        NOT NULL,
	state        TEXT        NOT NULL,
	message      TEXT        NOT NULL DEFAULT '',
	failure      TEXT        NOT NULL DEFAULT '',
	failed_step  TEXT        NOT NULL DEFAULT '',
	pool_id      TEXT        NOT NULL DEFAULT '',
	tx_hashes    TEXT[]      NOT NULL DEFAULT '{}',
	started_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS actions_account_updated_idx ON actions (account, updated_at DESC);
`

// Store provides Postgres persistence for pool snapshots and the action journal.
type Store struct {
	pool *pgxpool.Pool
	hub  string
}

var (
	_ storage.Journal      = (*Store)(nil)
	_ storage.ActionLister = (*Store)(nil)
	_ storage.PoolSink     = (*Store)(nil)
)

// NewStore connects to dsn. Pool snapshots are keyed by hub address.
func NewStore(ctx context.Context, dsn, hubAddress string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, hub: strings.ToLower(hubAddress)}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO hub_pools (
				hub_address, pool_id, token_a, token_b, reserve_a, reserve_b,
				total_liquidity, total_volume, total_fees, is_active, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
			ON CONFLICT (hub_address, pool_id)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_liquidity = EXCLUDED.total_liquidity,
				total_volume = EXCLUDED.total_volume,
				total_fees = EXCLUDED.total_fees,
				is_active = EXCLUDED.is_active,
				updated_at = now()
		`,
			s.hub,
			numeric(pool.ID),
			strings.ToLower(pool.TokenA.Hex()),
			strings.ToLower(pool.TokenB.Hex()),
			numeric(pool.ReserveA),
			numeric(pool.ReserveB),
			numeric(pool.TotalLiquidity),
			numeric(pool.TotalVolume),
			numeric(pool.TotalFees),
			pool.Active,
			int64(pool.CreatedAt),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecordAction upserts a finished action by id.
func (s *Store) RecordAction(ctx context.Context, action model.ActionSnapshot) error {
	hashes := action.TxHashes
	if hashes == nil {
		hashes = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO actions (
			id, kind, account, state, message, failure, failed_step, pool_id, tx_hashes, started_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			message = EXCLUDED.message,
			failure = EXCLUDED.failure,
			failed_step = EXCLUDED.failed_step,
			pool_id = EXCLUDED.pool_id,
			tx_hashes = EXCLUDED.tx_hashes,
			updated_at = EXCLUDED.updated_at
	`,
		action.ID,
		string(action.Kind),
		strings.ToLower(action.Account),
		string(action.State),
		action.Message,
		string(action.Failure),
		string(action.FailedStep),
		action.PoolID,
		hashes,
		action.StartedAt,
		action.UpdatedAt,
	)
	return err
}

// ListActions returns journaled actions, newest first.
func (s *Store) ListActions(ctx context.Context, filter storage.ActionFilter) ([]model.ActionSnapshot, error) {
	sqlText, args, err := listActionsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActionSnapshot
	for rows.Next() {
		var (
			action                           model.ActionSnapshot
			kind, state, failure, failedStep string
		)
		if err := rows.Scan(
			&action.ID, &kind, &action.Account, &state, &action.Message,
			&failure, &failedStep, &action.PoolID, &action.TxHashes,
			&action.StartedAt, &action.UpdatedAt,
		); err != nil {
			return nil, err
		}
		action.Kind = model.ActionKind(kind)
		action.State = model.ActionState(state)
		action.Failure = model.FailureKind(failure)
		action.FailedStep = model.ActionState(failedStep)
		out = append(out, action)
	}
	return out, rows.Err()
}

func listActionsQuery(filter storage.ActionFilter) sq.SelectBuilder {
	query := psql.
		Select(
			"id", "kind", "account", "state", "message",
			"failure", "failed_step", "pool_id", "tx_hashes",
			"started_at", "updated_at",
		).
		From("actions").
		OrderBy("updated_at DESC")

	if filter.Account != "" {
		query = query.Where(sq.Eq{"account": strings.ToLower(filter.Account)})
	}
	if filter.Kind != "" {
		query = query.Where(sq.Eq{"kind": string(filter.Kind)})
	}
	if !filter.Since.IsZero() {
		query = query.Where(sq.GtOrEq{"updated_at": filter.Since})
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return query.Limit(uint64(limit))
}

func numeric(v *big.Int) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{Int: new(big.Int), Valid: true}
	}
	return pgtype.Numeric{Int: new(big.Int).Set(v), Valid: true}
}
