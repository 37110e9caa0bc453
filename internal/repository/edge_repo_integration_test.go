//go:build integration

package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"videotube/internal/db"
	"videotube/internal/domain"
)

// Ejecutar con: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func newIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := db.MigrateUp(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPgEdgeRepository_ConcurrentFlipsKeepAtMostOneRow(t *testing.T) {
	pool := newIntegrationPool(t)
	repo := NewPgEdgeRepository(pool)
	ctx := context.Background()

	key := domain.NewEdgeKey("it-"+uuid.NewString(), domain.EdgeLike, domain.TargetVideo, "it-"+uuid.NewString())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(),
			`DELETE FROM edges WHERE subject_id = $1 AND target_id = $2`, key.SubjectID, key.TargetID)
	})

	const workers = 32
	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		created, deleted int
		conflicts        int
		unexpected       []error
		start            = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := repo.FlipEdge(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrEdgeConflict):
				conflicts++
			case err != nil:
				unexpected = append(unexpected, err)
			case res == domain.FlipCreated:
				created++
			case res == domain.FlipDeleted:
				deleted++
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("unexpected flip errors: %v", unexpected)
	}
	if created+deleted+conflicts != workers {
		t.Fatalf("lost results: created=%d deleted=%d conflicts=%d", created, deleted, conflicts)
	}

	var rows int
	if err := pool.QueryRow(ctx,
		`SELECT count(*) FROM edges WHERE subject_id = $1 AND kind = $2 AND target_type = $3 AND target_id = $4`,
		key.SubjectID, string(key.Kind), string(key.TargetType), key.TargetID,
	).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows > 1 {
		t.Fatalf("expected at most one edge row, got %d", rows)
	}
	// Cada flip exitoso alterna el estado: la fila final es creadas menos borradas.
	if rows != created-deleted {
		t.Fatalf("row count %d does not match created=%d deleted=%d", rows, created, deleted)
	}

	_, found, err := repo.FindEdge(ctx, key)
	if err != nil {
		t.Fatalf("find edge: %v", err)
	}
	if found != (rows == 1) {
		t.Fatalf("FindEdge found=%v but %d rows", found, rows)
	}
}
