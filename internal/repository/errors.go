package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indica que el registro no existe.
	ErrNotFound = errors.New("record not found")
	// ErrEdgeConflict indica que otra escritura concurrente ganó la restricción única.
	ErrEdgeConflict = errors.New("edge write conflict")
	// ErrUnknownSortKey indica una clave de orden fuera de la lista blanca.
	ErrUnknownSortKey = errors.New("unknown sort key")
	// ErrUnknownEntity indica un tipo de entidad sin tabla.
	ErrUnknownEntity = errors.New("unknown entity type")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
