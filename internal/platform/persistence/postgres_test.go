package persistence

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDB_PoolAccessor(t *testing.T) {
	var pool *pgxpool.Pool
	db := &PostgresDB{pool: pool, logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}

	assert.Equal(t, pool, db.Pool())
}
