package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance_Transitions(t *testing.T) {
	inst := NewInstance("squad", "1")
	assert.Equal(t, StatusUninitialized, inst.Status())

	assert.ErrorIs(t, inst.SetStatus(StatusReady), ErrInvalidTransition)
	require.NoError(t, inst.SetStatus(StatusLoading))
	require.NoError(t, inst.SetStatus(StatusReady))

	assert.ErrorIs(t, inst.SetStatus(StatusLoading), ErrInvalidTransition, "ready is terminal")
	assert.ErrorIs(t, inst.Fail(errors.New("late")), ErrInvalidTransition)

	snap := inst.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.NotNil(t, snap.LoadedAt)
	assert.Empty(t, snap.Error)
}

func TestInstance_Fail(t *testing.T) {
	inst := NewInstance("", "")
	require.NoError(t, inst.SetStatus(StatusLoading))
	require.NoError(t, inst.Fail(errors.New("bad weights")))

	assert.Equal(t, StatusFailed, inst.Status())
	assert.EqualError(t, inst.Err(), "bad weights")
	assert.ErrorIs(t, inst.SetStatus(StatusLoading), ErrInvalidTransition, "failed is terminal")
	assert.Nil(t, inst.Snapshot().LoadedAt)
}

func TestManager_Load(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "squad")
	writeModel(t, dir)

	m := NewManager(root, "squad", "2")

	var gotPath string
	inst, err := m.Load(context.Background(), func(_ context.Context, path string) (*Artifacts, error) {
		gotPath = path
		return Inspect(path)
	})
	require.NoError(t, err)

	assert.Equal(t, dir, gotPath)
	assert.Equal(t, StatusReady, inst.Status())
	assert.Equal(t, dir, inst.Path())
	assert.Equal(t, "distilbert", inst.Snapshot().Artifacts.ModelType)

	_, err = m.Load(context.Background(), func(context.Context, string) (*Artifacts, error) {
		t.Fatal("second load must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
}

func TestManager_LoadFailures(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		m := NewManager(t.TempDir(), "", "")
		called := false

		inst, err := m.Load(context.Background(), func(context.Context, string) (*Artifacts, error) {
			called = true
			return nil, nil
		})
		assert.ErrorIs(t, err, ErrNoModelFound)
		assert.False(t, called)
		assert.Equal(t, StatusFailed, inst.Status())
	})

	t.Run("ambiguous", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "a", "b")

		inst, err := NewManager(root, "", "").Load(context.Background(), func(context.Context, string) (*Artifacts, error) {
			return nil, nil
		})
		assert.ErrorIs(t, err, ErrAmbiguousModel)
		assert.Equal(t, StatusFailed, inst.Status())
	})

	t.Run("load error", func(t *testing.T) {
		root := t.TempDir()
		mkdirs(t, root, "squad")
		boom := errors.New("corrupt weights")

		inst, err := NewManager(root, "", "").Load(context.Background(), func(context.Context, string) (*Artifacts, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, StatusFailed, inst.Status())
		assert.ErrorIs(t, inst.Err(), boom)
	})
}

func TestManager_ResolveAtCallTime(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, "", "")

	_, err := m.Resolve()
	assert.ErrorIs(t, err, ErrNoModelFound)

	mkdirs(t, root, "squad")
	path, err := m.Resolve()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "squad"), path)
}

func TestDrifted(t *testing.T) {
	assert.False(t, Drifted("/models/a", []string{"/models/a"}))
	assert.True(t, Drifted("/models/a", nil))
	assert.True(t, Drifted("/models/a", []string{"/models/b"}))
	assert.True(t, Drifted("/models/a", []string{"/models/a", "/models/b"}))
}

func TestWatcher_ReportsDrift(t *testing.T) {
	root := t.TempDir()
	loaded := filepath.Join(root, "squad")
	mkdirs(t, root, "squad")

	var drifted atomic.Bool
	w, err := NewWatcher(root, loaded, func(_ []string, d bool) {
		drifted.Store(d)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, []string{loaded}, w.Candidates())

	require.NoError(t, os.Mkdir(filepath.Join(root, "newer"), 0o755))

	assert.Eventually(t, func() bool {
		return drifted.Load() && len(w.Candidates()) == 2
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, w.ChangeCount(), uint32(1))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
