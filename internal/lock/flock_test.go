package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusiveAndNamesHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "membria-core.lock")

	held, err := Acquire(path, nil)
	require.NoError(t, err)
	defer held.Release()

	// A second open file description on the same path conflicts.
	_, err = Acquire(path, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), fmt.Sprintf("pid %d", os.Getpid()))
}

func TestReleaseRemovesFileAndAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "membria-core.lock")

	held, err := Acquire(path, nil)
	require.NoError(t, err)

	held.Release()
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Double release is a no-op; the lock is free to take again.
	held.Release()
	again, err := Acquire(path, nil)
	require.NoError(t, err)
	again.Release()
}
