package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://etl:secret@db:5432/tomorrow",
		toPgx5URL("postgres://etl:secret@db:5432/tomorrow"))
	assert.Equal(t, "pgx5://etl:secret@db:5432/tomorrow",
		toPgx5URL("postgresql://etl:secret@db:5432/tomorrow"))
	assert.Equal(t, "pgx5://already", toPgx5URL("pgx5://already"))
}
