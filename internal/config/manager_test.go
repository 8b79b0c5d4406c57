package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRWMutexManagerGetSet(t *testing.T) {
	initial := &Config{General: General{LogLevel: "info"}}
	mgr := NewRWMutexManager(initial)

	got := mgr.Get()
	require.NotNil(t, got)
	require.NotSame(t, initial, got)
	require.Equal(t, "info", got.General.LogLevel)

	next := &Config{General: General{LogLevel: "debug"}}
	mgr.Set(next)
	next.General.LogLevel = "error"

	updated := mgr.Get()
	require.NotSame(t, next, updated)
	require.Equal(t, "debug", updated.General.LogLevel)
}

func TestRWMutexManagerReload(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)
	mgr := NewRWMutexManager(nil)

	require.NoError(t, mgr.Reload(path))

	cfg := mgr.Get()
	require.NotNil(t, cfg)
	require.Equal(t, "debug", cfg.General.LogLevel)
}

func TestRWMutexManagerReloadRequiresPath(t *testing.T) {
	mgr := NewRWMutexManager(&Config{})
	require.Error(t, mgr.Reload(""))
}

func TestRWMutexManagerNilSafeMethods(t *testing.T) {
	var mgr *RWMutexManager

	require.Nil(t, mgr.Get())
	require.Error(t, mgr.Reload("/tmp/does-not-matter.toml"))

	mgr.Set(&Config{General: General{LogLevel: "info"}})
	require.Nil(t, mgr.Get())
}

func TestRWMutexManagerConcurrentReadWithWrites(t *testing.T) {
	mgr := NewRWMutexManager(&Config{General: General{LogLevel: "info"}})

	const readers = 32
	const readsPerReader = 1000
	const writes = 100

	var wg sync.WaitGroup
	wg.Add(readers + 1)

	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < readsPerReader; j++ {
				cfg := mgr.Get()
				if cfg == nil {
					t.Error("got nil config during concurrent read")
					return
				}
				_ = cfg.General.LogLevel
			}
		}()
	}

	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			mgr.Set(&Config{General: General{LogLevel: "debug"}})
		}
	}()

	wg.Wait()
	require.NotNil(t, mgr.Get())
}

func TestRWMutexManagerReloadUsesWriterLock(t *testing.T) {
	mgr := NewRWMutexManager(&Config{})
	path := writeTestConfig(t, minimalConfig)

	mgr.mu.RLock()
	done := make(chan struct{})
	go func() {
		if err := mgr.Reload(path); err != nil {
			t.Error(err)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("reload completed while reader lock held; expected blocking")
	case <-time.After(20 * time.Millisecond):
	}

	mgr.mu.RUnlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reload did not complete after releasing reader lock")
	}
}

func TestRWMutexManagerSetUsesExclusiveLock(t *testing.T) {
	mgr := NewRWMutexManager(&Config{})
	mgr.mu.RLock()

	done := make(chan struct{})
	go func() {
		mgr.Set(&Config{General: General{LogLevel: "debug"}})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("writer completed while reader lock held; expected blocking")
	case <-time.After(20 * time.Millisecond):
	}

	mgr.mu.RUnlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not complete after releasing reader lock")
	}
}

func TestRWMutexManagerGetUsesReadLock(t *testing.T) {
	mgr := NewRWMutexManager(&Config{General: General{LogLevel: "info"}})
	mgr.mu.Lock()

	done := make(chan struct{})
	go func() {
		_ = mgr.Get()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("reader completed while writer lock held; expected blocking")
	case <-time.After(20 * time.Millisecond):
	}

	mgr.mu.Unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader did not complete after releasing writer lock")
	}
}

func BenchmarkRWMutexManagerGet(b *testing.B) {
	mgr := NewRWMutexManager(&Config{General: General{LogLevel: "info"}})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cfg := mgr.Get()
			if cfg == nil {
				b.Fatal("nil config")
			}
		}
	})
}
