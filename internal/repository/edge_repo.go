package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"videotube/internal/domain"
)

// EdgeRepository define el Edge Store. FlipEdge es la única escritura y es atómica.
type EdgeRepository interface {
	FindEdge(ctx context.Context, key domain.EdgeKey) (domain.Edge, bool, error)
	FlipEdge(ctx context.Context, key domain.EdgeKey) (domain.FlipResult, error)
	CountEdges(ctx context.Context, filter domain.EdgeFilter) (int64, error)
	// ListTargetIDs lista los objetivos de un sujeto, más recientes primero.
	ListTargetIDs(ctx context.Context, subjectID string, kind domain.EdgeKind, targetType domain.TargetType, skip, limit int) ([]string, int64, error)
}

// PgEdgeRepository implementa EdgeRepository usando pgxpool.
type PgEdgeRepository struct {
	pool *pgxpool.Pool
}

func NewPgEdgeRepository(pool *pgxpool.Pool) *PgEdgeRepository {
	return &PgEdgeRepository{pool: pool}
}

func (r *PgEdgeRepository) FindEdge(ctx context.Context, key domain.EdgeKey) (domain.Edge, bool, error) {
	const query = `
		SELECT created_at
		FROM edges
		WHERE subject_id = $1 AND kind = $2 AND target_type = $3 AND target_id = $4
	`
	edge := domain.Edge{EdgeKey: key}
	err := r.pool.QueryRow(ctx, query, key.SubjectID, string(key.Kind), string(key.TargetType), key.TargetID).Scan(&edge.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Edge{}, false, nil
	}
	if err != nil {
		return domain.Edge{}, false, err
	}
	return edge, true, nil
}

// flipEdgeQuery borra la arista si existe y si no la inserta, en una sola sentencia.
// Dos inserciones concurrentes chocan con la clave primaria: una recibe 23505.
const flipEdgeQuery = `
	WITH removed AS (
		DELETE FROM edges
		WHERE subject_id = $1 AND kind = $2 AND target_type = $3 AND target_id = $4
		RETURNING 1
	), added AS (
		INSERT INTO edges (subject_id, kind, target_type, target_id, created_at)
		SELECT $1::text, $2::text, $3::text, $4::text, now()
		WHERE NOT EXISTS (SELECT 1 FROM removed)
		RETURNING 1
	)
	SELECT EXISTS (SELECT 1 FROM added)
`

func (r *PgEdgeRepository) FlipEdge(ctx context.Context, key domain.EdgeKey) (domain.FlipResult, error) {
	var created bool
	err := r.pool.QueryRow(ctx, flipEdgeQuery,
		key.SubjectID,
		string(key.Kind),
		string(key.TargetType),
		key.TargetID,
	).Scan(&created)
	if err != nil {
		switch {
		case isPgCode(err, pgUniqueViolation):
			return 0, ErrEdgeConflict
		case isPgCode(err, pgCheckViolation):
			return 0, domain.ErrInvalidOperation.With(err)
		}
		return 0, err
	}
	if created {
		return domain.FlipCreated, nil
	}
	return domain.FlipDeleted, nil
}

func (r *PgEdgeRepository) CountEdges(ctx context.Context, filter domain.EdgeFilter) (int64, error) {
	if filter.TargetIDs != nil && len(filter.TargetIDs) == 0 {
		return 0, nil
	}
	query := "SELECT count(*) FROM edges"
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.SubjectID != "" {
		add("subject_id = $%d", filter.SubjectID)
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.TargetType != "" {
		add("target_type = $%d", string(filter.TargetType))
	}
	if filter.TargetID != "" {
		add("target_id = $%d", filter.TargetID)
	}
	if len(filter.TargetIDs) > 0 {
		add("target_id = ANY($%d)", filter.TargetIDs)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	return n, nil
}

func (r *PgEdgeRepository) ListTargetIDs(ctx context.Context, subjectID string, kind domain.EdgeKind, targetType domain.TargetType, skip, limit int) ([]string, int64, error) {
	const countQuery = `
		SELECT count(*)
		FROM edges
		WHERE subject_id = $1 AND kind = $2 AND target_type = $3
	`
	const listQuery = `
		SELECT target_id
		FROM edges
		WHERE subject_id = $1 AND kind = $2 AND target_type = $3
		ORDER BY created_at DESC, target_id DESC
		LIMIT $4 OFFSET $5
	`
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	if err := tx.QueryRow(ctx, countQuery, subjectID, string(kind), string(targetType)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count targets: %w", err)
	}
	rows, err := tx.Query(ctx, listQuery, subjectID, string(kind), string(targetType), limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list targets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, 0, err
	}
	return ids, total, tx.Commit(ctx)
}

var _ EdgeRepository = (*PgEdgeRepository)(nil)
