package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/eswan18/passwordreset/pkg/db"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type Store struct {
	DB *sql.DB
	Q  *db.Queries
}

func New(databaseURL string) (*Store, error) {
	dbConn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	// Set sane defaults
	dbConn.SetMaxOpenConns(20)
	dbConn.SetMaxIdleConns(5)
	dbConn.SetConnMaxLifetime(30 * time.Minute)

	// Ensure connection works
	if err := dbConn.Ping(); err != nil {
		dbConn.Close()
		return nil, err
	}

	return &Store{
		DB: dbConn,
		Q:  db.New(dbConn),
	}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
