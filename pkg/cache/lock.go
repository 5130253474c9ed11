package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// acquireCrossProcessLock obtains mutual exclusion for key across cache
// directories shared by multiple processes (§4.7 "Cross-process"), using
// exclusive file creation under the cache's locks/ subdirectory. Same-
// process callers are already serialized by the singleflight.Group in
// GetOrBuild; this additionally protects against a second forge process
// racing to build the same key against a shared cache directory.
func (c *Cache) acquireCrossProcessLock(k string, timeout time.Duration) (release func(), err error) {
	path := filepath.Join(c.dir, "locks", k+".lock")
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "cache: failed to create lock file")
		}
		if time.Now().After(deadline) {
			return nil, errors.Errorf("cache: timed out waiting for cross-process lock on key %s", k)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
