package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/loja", migrateURL("postgres://u:p@localhost:5432/loja"))
	require.Equal(t, "pgx5://u:p@localhost/loja?sslmode=disable", migrateURL("postgresql://u:p@localhost/loja?sslmode=disable"))
	require.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestErrorHelpers(t *testing.T) {
	require.True(t, IsNotFound(fmt.Errorf("get sale: %w", pgx.ErrNoRows)))
	require.False(t, IsNotFound(errors.New("boom")))

	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
