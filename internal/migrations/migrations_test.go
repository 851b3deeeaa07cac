package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingExecer keeps committed statements in queries. Statements run
// inside InTx are buffered and dropped when the transaction fails.
type recordingExecer struct {
	applied  map[int]bool
	queries  []string
	failOn   string
	pending  *[]string
	rollback int
}

func (r *recordingExecer) Exec(ctx context.Context, query string, args ...any) error {
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return errors.New("boom")
	}
	if r.pending != nil {
		*r.pending = append(*r.pending, query)
		return nil
	}
	r.queries = append(r.queries, query)
	return nil
}

func (r *recordingExecer) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	return r.applied, nil
}

func (r *recordingExecer) InTx(ctx context.Context, fn func(tx Execer) error) error {
	var buf []string
	r.pending = &buf
	err := fn(r)
	r.pending = nil
	if err != nil {
		r.rollback++
		return err
	}
	r.queries = append(r.queries, buf...)
	return nil
}

func TestLoad_SortedAndVersioned(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "versions are contiguous")
		assert.NotEmpty(t, m.SQL)
	}
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS appointments")
}

func TestApply_SkipsAppliedVersions(t *testing.T) {
	exec := &recordingExecer{applied: map[int]bool{1: true}}

	err := Apply(context.Background(), exec, zap.NewNop())
	require.NoError(t, err)

	joined := strings.Join(exec.queries, "\n")
	assert.NotContains(t, joined, "CREATE TABLE IF NOT EXISTS appointments", "version 1 was already applied")
	assert.Contains(t, joined, "WHO5")
}

func TestApply_StopsOnFailure(t *testing.T) {
	exec := &recordingExecer{applied: map[int]bool{}, failOn: "assessment_tests (code, name"}

	err := Apply(context.Background(), exec, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_seed_assessments")
}

func TestApply_FailedRecordRollsBackMigration(t *testing.T) {
	exec := &recordingExecer{applied: map[int]bool{1: true}, failOn: "INSERT INTO schema_migrations"}

	err := Apply(context.Background(), exec, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record migration 000002_seed_assessments")
	assert.Equal(t, 1, exec.rollback)

	joined := strings.Join(exec.queries, "\n")
	assert.NotContains(t, joined, "WHO5", "schema change is discarded with its version record")
}

func TestApply_EachMigrationInOwnTransaction(t *testing.T) {
	exec := &recordingExecer{applied: map[int]bool{}}

	require.NoError(t, Apply(context.Background(), exec, zap.NewNop()))

	migrations, err := Load()
	require.NoError(t, err)
	// version table, then one migration plus its record per transaction
	require.Len(t, exec.queries, 1+2*len(migrations))
	for i, m := range migrations {
		assert.Equal(t, m.SQL, exec.queries[1+2*i])
		assert.Contains(t, exec.queries[2+2*i], "INSERT INTO schema_migrations")
	}
	assert.Zero(t, exec.rollback)
}
