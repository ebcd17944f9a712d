package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
)

func TestSetupTestDB_MatchesDefaultSchema(t *testing.T) {
	p := SetupTestDB(t)
	ctx := context.Background()
	conn, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Close()

	count := func(q string, args ...any) int64 {
		n, err := conn.QueryInt(ctx, q, args...)
		require.NoError(t, err)
		return n
	}

	for _, op := range db.DefaultSchema() {
		table := op.Table()
		assert.EqualValues(t, 1, count("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table), "%s", op)
		for _, col := range op.Columns() {
			assert.EqualValues(t, 1, count("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, col), "%s: column %s", op, col)
		}
		if op.Index() != "" {
			assert.EqualValues(t, 1, count("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ? AND tbl_name = ?", op.Index(), table), "%s", op)
		}
	}
}
