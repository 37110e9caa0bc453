package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"videotube/internal/domain"
)

// EntityRepository define las lecturas del Entity Store que usa el núcleo.
type EntityRepository interface {
	FindByID(ctx context.Context, entityType domain.EntityType, id string) (domain.Entity, error)
	FindByIDs(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error)
	ExistsByID(ctx context.Context, entityType domain.EntityType, id string) (bool, error)
	FindPage(ctx context.Context, entityType domain.EntityType, filter domain.ListFilter, sort domain.Sort, skip, limit int) ([]domain.Entity, int64, error)
	VideoTotals(ctx context.Context, ownerID string, publishedOnly bool) (VideoTotals, error)
	VideoIDsByOwner(ctx context.Context, ownerID string, publishedOnly bool) ([]string, error)
}

// VideoTotals son los agregados de los videos de un dueño.
type VideoTotals struct {
	Count int64
	Views int64
}

type tableSpec struct {
	table    string
	columns  string
	sortable map[string]struct{}
	search   string
	owned    bool
	scan     func(row pgx.Row) (domain.Entity, error)
}

var tables = map[domain.EntityType]tableSpec{
	domain.EntityUser: {
		table:    "users",
		columns:  "id, username, email, full_name, avatar_url, cover_url, created_at",
		sortable: keys("created_at", "username"),
		search:   "username",
		scan: func(row pgx.Row) (domain.Entity, error) {
			var u domain.User
			err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.AvatarURL, &u.CoverURL, &u.CreatedAt)
			return u, err
		},
	},
	domain.EntityVideo: {
		table:    "videos",
		columns:  "id, owner_id, title, description, video_url, thumbnail_url, media_id, duration, views, is_published, created_at",
		sortable: keys("created_at", "views", "duration", "title"),
		search:   "title",
		owned:    true,
		scan: func(row pgx.Row) (domain.Entity, error) {
			var v domain.Video
			err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.Thumbnail,
				&v.MediaID, &v.Duration, &v.Views, &v.Published, &v.CreatedAt)
			return v, err
		},
	},
	domain.EntityComment: {
		table:    "comments",
		columns:  "id, video_id, owner_id, content, created_at",
		sortable: keys("created_at"),
		search:   "content",
		owned:    true,
		scan: func(row pgx.Row) (domain.Entity, error) {
			var c domain.Comment
			err := row.Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt)
			return c, err
		},
	},
	domain.EntityTweet: {
		table:    "tweets",
		columns:  "id, owner_id, content, created_at",
		sortable: keys("created_at"),
		search:   "content",
		owned:    true,
		scan: func(row pgx.Row) (domain.Entity, error) {
			var t domain.Tweet
			err := row.Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt)
			return t, err
		},
	},
	domain.EntityPlaylist: {
		table:    "playlists",
		columns:  "id, owner_id, name, description, video_ids, created_at",
		sortable: keys("created_at", "name"),
		search:   "name",
		owned:    true,
		scan: func(row pgx.Row) (domain.Entity, error) {
			var p domain.Playlist
			err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.VideoIDs, &p.CreatedAt)
			return p, err
		},
	},
}

func keys(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// SortKeys devuelve las claves de orden admitidas para un tipo.
func SortKeys(entityType domain.EntityType) []string {
	spec, ok := tables[entityType]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(spec.sortable))
	for k := range spec.sortable {
		out = append(out, k)
	}
	return out
}

// SortKeyAllowed reporta si key es una clave de orden válida para el tipo.
func SortKeyAllowed(entityType domain.EntityType, key string) bool {
	spec, ok := tables[entityType]
	if !ok {
		return false
	}
	_, ok = spec.sortable[key]
	return ok
}

// PgEntityRepository implementa EntityRepository usando pgxpool.
type PgEntityRepository struct {
	pool *pgxpool.Pool
}

func NewPgEntityRepository(pool *pgxpool.Pool) *PgEntityRepository {
	return &PgEntityRepository{pool: pool}
}

func (r *PgEntityRepository) FindByID(ctx context.Context, entityType domain.EntityType, id string) (domain.Entity, error) {
	spec, ok := tables[entityType]
	if !ok {
		return nil, ErrUnknownEntity
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", spec.columns, spec.table)
	entity, err := spec.scan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return entity, nil
}

func (r *PgEntityRepository) FindByIDs(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error) {
	spec, ok := tables[entityType]
	if !ok {
		return nil, ErrUnknownEntity
	}
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1)", spec.columns, spec.table)
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("find %s by ids: %w", spec.table, err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Entity, len(ids))
	for rows.Next() {
		entity, err := spec.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", spec.table, err)
		}
		byID[entity.EntityID()] = entity
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Conserva el orden pedido; los ids borrados se omiten.
	out := make([]domain.Entity, 0, len(byID))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *PgEntityRepository) ExistsByID(ctx context.Context, entityType domain.EntityType, id string) (bool, error) {
	spec, ok := tables[entityType]
	if !ok {
		return false, ErrUnknownEntity
	}
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", spec.table)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindPage ejecuta conteo y página dentro de la misma transacción de solo lectura,
// así total e items salen del mismo snapshot.
func (r *PgEntityRepository) FindPage(ctx context.Context, entityType domain.EntityType, filter domain.ListFilter, sort domain.Sort, skip, limit int) ([]domain.Entity, int64, error) {
	spec, ok := tables[entityType]
	if !ok {
		return nil, 0, ErrUnknownEntity
	}
	if _, ok := spec.sortable[sort.Key]; !ok {
		return nil, 0, ErrUnknownSortKey
	}
	dir := "ASC"
	if sort.Dir == domain.SortDesc {
		dir = "DESC"
	}

	where, args := buildWhere(spec, filter)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("begin page tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	countQuery := fmt.Sprintf("SELECT count(*) FROM %s%s", spec.table, where)
	if err := tx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", spec.table, err)
	}
	if total == 0 || skip >= int(total) {
		return []domain.Entity{}, total, tx.Commit(ctx)
	}

	pageQuery := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		spec.columns, spec.table, where, sort.Key, dir, dir, len(args)+1, len(args)+2)
	rows, err := tx.Query(ctx, pageQuery, append(args, limit, skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("page %s: %w", spec.table, err)
	}
	items := make([]domain.Entity, 0, limit)
	for rows.Next() {
		entity, err := spec.scan(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan %s: %w", spec.table, err)
		}
		items = append(items, entity)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, tx.Commit(ctx)
}

func buildWhere(spec tableSpec, filter domain.ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.OwnerID != "" && spec.owned {
		add("owner_id = $%d", filter.OwnerID)
	}
	if filter.VideoID != "" && spec.table == "comments" {
		add("video_id = $%d", filter.VideoID)
	}
	if filter.PublishedOnly && spec.table == "videos" {
		clauses = append(clauses, "is_published")
	}
	if q := strings.TrimSpace(filter.Query); q != "" && spec.search != "" {
		add(spec.search+" ILIKE $%d", "%"+escapeLike(q)+"%")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// VideoTotals cuenta videos y vistas del dueño; publishedOnly excluye los borradores.
func (r *PgEntityRepository) VideoTotals(ctx context.Context, ownerID string, publishedOnly bool) (VideoTotals, error) {
	const query = `
		SELECT count(*), COALESCE(sum(views), 0)
		FROM videos
		WHERE owner_id = $1 AND (is_published OR NOT $2)
	`
	var totals VideoTotals
	if err := r.pool.QueryRow(ctx, query, ownerID, publishedOnly).Scan(&totals.Count, &totals.Views); err != nil {
		return VideoTotals{}, err
	}
	return totals, nil
}

func (r *PgEntityRepository) VideoIDsByOwner(ctx context.Context, ownerID string, publishedOnly bool) ([]string, error) {
	const query = `
		SELECT id
		FROM videos
		WHERE owner_id = $1 AND (is_published OR NOT $2)
	`
	rows, err := r.pool.Query(ctx, query, ownerID, publishedOnly)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

var _ EntityRepository = (*PgEntityRepository)(nil)
