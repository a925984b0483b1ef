package bazelengine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean7218/bazel-sourcekit-bsp/server/procrunner"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetbuilder"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetcache"
)

func docWithFlag(flag string) string {
	return `{"artifacts":[],"depSetOfFiles":[],"pathFragments":[],"actions":[{"targetId":1,"arguments":["-D` + flag + `"],"environmentVariables":[{"key":"APPLE_SDK_PLATFORM","value":"MacOSX"}],"inputDepSetIds":[]}],"targets":[{"id":1,"label":"//app:Lib"}]}`
}

func stubRunner(stdout string, exitCode int) Runner {
	return func(executable, cwd string, args []string) (*procrunner.Result, error) {
		return &procrunner.Result{Stdout: []byte(stdout), ExitCode: exitCode}, nil
	}
}

func stubRunnerFromFlag(flag string) Runner {
	return stubRunner(docWithFlag(flag), 0)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cache, err := targetcache.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return New(cache, nil)
}

func TestExecute_CacheMissRunsSynchronously(t *testing.T) {
	eng := newTestEngine(t)
	eng.Run = stubRunnerFromFlag("A")

	var calls int
	var got []targetbuilder.BazelTarget
	err := eng.Execute([]string{"//app:Lib"}, "/root", "/exec", nil, func(targets []targetbuilder.BazelTarget) {
		calls++
		got = targets
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, got, 1)
	assert.Equal(t, "//app:Lib", got[0].Label)
}

func TestExecute_EmptyAqueryOutputIsFatal(t *testing.T) {
	eng := newTestEngine(t)
	eng.Run = stubRunner("", 0)

	err := eng.Execute([]string{"//app:Lib"}, "/root", "/exec", nil, func(targets []targetbuilder.BazelTarget) {})
	require.Error(t, err)

	// The cache must not have been touched by the failed synchronous pipeline.
	_, ok := eng.Cache.Load(targetcache.Key([]string{"//app:Lib"}))
	assert.False(t, ok)
}

func TestExecute_CacheHitThenUnchangedRefresh(t *testing.T) {
	eng := newTestEngine(t)
	eng.Run = stubRunnerFromFlag("SAME")

	var mu sync.Mutex
	var calls int
	completion := func(targets []targetbuilder.BazelTarget) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	require.NoError(t, eng.Execute([]string{"//app:Lib"}, "/root", "/exec", nil, completion))
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	// Second call: cache hit, background refresh yields the same targets
	// (identical stub output), so completion must fire exactly once more.
	require.NoError(t, eng.Execute([]string{"//app:Lib"}, "/root", "/exec", nil, completion))
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestExecute_CacheHitThenChangedRefresh(t *testing.T) {
	eng := newTestEngine(t)
	eng.Run = stubRunnerFromFlag("FIRST")

	var mu sync.Mutex
	var calls int
	completion := func(targets []targetbuilder.BazelTarget) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	require.NoError(t, eng.Execute([]string{"//app:Lib"}, "/root", "/exec", nil, completion))

	eng.Run = stubRunnerFromFlag("SECOND")
	require.NoError(t, eng.Execute([]string{"//app:Lib"}, "/root", "/exec", nil, completion))
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls) // 1 (first miss) + 1 (second cache hit) + 1 (changed refresh)
}
