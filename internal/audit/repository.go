package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const timelineQuery = `SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::text IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR entity_id = $5)
  AND ($6::text IS NULL OR action = $6)
ORDER BY occurred_at DESC, id DESC`

// PGRepository reads audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TimelineWindow returns params.Limit rows starting at params.Offset.
func (r *PGRepository) TimelineWindow(ctx context.Context, params QueryParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery+` OFFSET $7 LIMIT $8`, filterArgs(params, params.Offset, params.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline window: %w", err)
	}
	return collectRows(rows)
}

// TimelineAll returns every matching row.
func (r *PGRepository) TimelineAll(ctx context.Context, params QueryParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery, filterArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline export: %w", err)
	}
	return collectRows(rows)
}

func filterArgs(params QueryParams, extra ...any) []any {
	args := []any{params.FromAt, params.ToAt, params.Actor, params.Entity, params.EntityID, params.Action}
	return append(args, extra...)
}

func collectRows(rows pgx.Rows) ([]TimelineRow, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			at   pgtype.Timestamptz
			meta []byte
		)
		if err := row.Scan(&at, &out.ActorID, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return out, err
		}
		if at.Valid {
			out.At = at.Time
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return out, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		return out, nil
	})
}

var _ Repository = (*PGRepository)(nil)
