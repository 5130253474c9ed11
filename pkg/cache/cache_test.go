package cache

import (
	"io/ioutil"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
)

func newTestCache(t *testing.T) *Cache {
	dir, err := ioutil.TempDir("", "forge-cache-test")
	assert.ExpectError(t, false, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	c, err := Open(dir, 0)
	assert.ExpectError(t, false, err)
	return c
}

func TestGetOrBuildSingleFlight(t *testing.T) {
	c := newTestCache(t)
	key := Key{TemplateFingerprint: "abc", TargetTriple: "x86_64-unknown-linux-gnu", OptimizationProfile: "release"}

	var calls int32
	build := func() ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("compiled-bytes"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := c.GetOrBuild(key, build)
			assert.ExpectError(t, false, err)
			results[i] = data
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected exactly one build invocation, got %d", calls)
	}
	for _, r := range results {
		assert.StringEqual(t, "compiled-bytes", string(r))
	}
}

func TestGetOrBuildCacheHitSkipsRebuild(t *testing.T) {
	c := newTestCache(t)
	key := Key{TemplateFingerprint: "def", TargetTriple: "aarch64-apple-darwin", OptimizationProfile: "release"}

	var calls int32
	build := func() ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("v1"), nil
	}
	_, err := c.GetOrBuild(key, build)
	assert.ExpectError(t, false, err)

	_, err = c.GetOrBuild(key, build)
	assert.ExpectError(t, false, err)

	if calls != 1 {
		t.Errorf("expected cache hit to skip rebuild, got %d calls", calls)
	}
}

func TestGetOrBuildPropagatesError(t *testing.T) {
	c := newTestCache(t)
	key := Key{TemplateFingerprint: "err", TargetTriple: "x86_64-unknown-linux-gnu", OptimizationProfile: "debug"}
	wantErr := errTest("boom")
	_, err := c.GetOrBuild(key, func() ([]byte, error) { return nil, wantErr })
	assert.ExpectError(t, true, err)
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestKeyStringIsStable(t *testing.T) {
	k1 := Key{TemplateFingerprint: "a", TargetTriple: "b", OptimizationProfile: "c"}
	k2 := Key{TemplateFingerprint: "a", TargetTriple: "b", OptimizationProfile: "c"}
	assert.StringEqual(t, k1.String(), k2.String())
}
