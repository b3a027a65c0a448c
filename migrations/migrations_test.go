package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripts(t *testing.T) {
	up, err := Scripts(Up)
	require.NoError(t, err)
	require.NotEmpty(t, up)
	assert.Contains(t, up[0], "CREATE TABLE IF NOT EXISTS indicator_observations")

	down, err := Scripts(Down)
	require.NoError(t, err)
	require.NotEmpty(t, down)
	assert.Contains(t, down[0], "DROP TABLE")

	_, err = Scripts("sideways")
	assert.Error(t, err)
}

func TestStatements(t *testing.T) {
	stmts := Statements("CREATE TABLE a (x INT);\n\n  CREATE INDEX i ON a (x);\n")
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE INDEX"))
	assert.Empty(t, Statements("  ;  ; "))
}
