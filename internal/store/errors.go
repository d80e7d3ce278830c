package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors repositories return for conditions the dispatch layer
// maps onto specific wire error codes, rather than a generic db_error.
var (
	ErrUsernameTaken  = errors.New("store: username already taken")
	ErrGameIDTaken    = errors.New("store: gameId already taken")
	ErrVersionTaken   = errors.New("store: version already exists for game")
	ErrNotFound       = errors.New("store: not found")
	ErrRoomNotEmpty   = errors.New("store: room still has members")
)

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), mirroring the teacher's use of pgx error inspection.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
