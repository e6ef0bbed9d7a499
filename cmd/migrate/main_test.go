package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  []int
	version uint
	verErr  error
}

func (f *fakeMigrator) Up() error                    { return f.upErr }
func (f *fakeMigrator) Steps(n int) error            { f.steps = append(f.steps, n); return nil }
func (f *fakeMigrator) Force(v int) error            { f.forced = append(f.forced, v); return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.verErr }

func TestRunCommands(t *testing.T) {
	t.Run("up defaults", func(t *testing.T) {
		require.NoError(t, run(&fakeMigrator{}, nil))
	})
	t.Run("up with no change", func(t *testing.T) {
		require.NoError(t, run(&fakeMigrator{upErr: migrate.ErrNoChange}, []string{"up"}))
	})
	t.Run("up failure", func(t *testing.T) {
		assert.Error(t, run(&fakeMigrator{upErr: errors.New("boom")}, []string{"up"}))
	})
	t.Run("down defaults to one step", func(t *testing.T) {
		m := &fakeMigrator{}
		require.NoError(t, run(m, []string{"down"}))
		assert.Equal(t, []int{-1}, m.steps)
	})
	t.Run("down n", func(t *testing.T) {
		m := &fakeMigrator{}
		require.NoError(t, run(m, []string{"down", "3"}))
		assert.Equal(t, []int{-3}, m.steps)
	})
	t.Run("force requires version", func(t *testing.T) {
		assert.Error(t, run(&fakeMigrator{}, []string{"force"}))
	})
	t.Run("force", func(t *testing.T) {
		m := &fakeMigrator{}
		require.NoError(t, run(m, []string{"force", "1"}))
		assert.Equal(t, []int{1}, m.forced)
	})
	t.Run("version on empty database", func(t *testing.T) {
		require.NoError(t, run(&fakeMigrator{verErr: migrate.ErrNilVersion}, []string{"version"}))
	})
	t.Run("bad number", func(t *testing.T) {
		assert.Error(t, run(&fakeMigrator{}, []string{"down", "x"}))
	})
	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, run(&fakeMigrator{}, []string{"sideways"}))
	})
}
