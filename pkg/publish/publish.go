// Package publish writes a compiled binary to its final destination,
// trying a chain of strategies (cache-backed write, synthesized-project
// directory write, in-memory bytes) and falling through on failure with an
// augmented error chain (C8, Output Publisher).
package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/forgedeploy/forge/pkg/cache"
)

// Strategy is one attempt in the publish chain.
type Strategy string

const (
	StrategyCache      Strategy = "cache"
	StrategyProjectDir Strategy = "project-dir"
	StrategyInMemory   Strategy = "in-memory"
)

// Request describes the binary to publish and where it should land.
type Request struct {
	Key        cache.Key
	Data       []byte
	DestDir    string
	BaseName   string // without platform suffix; Windows gets ".exe" appended
	TargetOS   string // "linux" | "darwin" | "windows"; "" uses runtime.GOOS
	Cache      *cache.Cache // optional; nil skips the cache strategy
}

// Result reports which strategy succeeded and the final path.
type Result struct {
	Path     string
	Strategy Strategy
	Size     int64
	Checksum string
}

// PublishError wraps every attempted strategy's failure so a caller can
// see the full fallthrough chain (§7 "exhaustion" behavior).
type PublishError struct {
	Attempts []error
}

func (e *PublishError) Error() string {
	s := "publish: all strategies exhausted:"
	for _, a := range e.Attempts {
		s += "\n  - " + a.Error()
	}
	return s
}

// Publish runs the strategy chain for req, stopping at the first success.
func Publish(req Request) (*Result, error) {
	if len(req.Data) == 0 {
		return nil, errors.New("publish: request has no data to publish")
	}
	if req.DestDir == "" {
		return nil, errors.New("publish: request has no destination directory")
	}

	destPath := filepath.Join(req.DestDir, outputName(req.BaseName, req.TargetOS))

	var attempts []error

	if req.Cache != nil {
		if path, err := publishViaCache(req, destPath); err == nil {
			return finish(path, StrategyCache, req.Data)
		} else {
			attempts = append(attempts, errors.Wrap(err, "cache strategy failed"))
		}
	}

	if path, err := publishViaProjectDir(req, destPath); err == nil {
		return finish(path, StrategyProjectDir, req.Data)
	} else {
		attempts = append(attempts, errors.Wrap(err, "project-dir strategy failed"))
	}

	if path, err := publishInMemory(req, destPath); err == nil {
		return finish(path, StrategyInMemory, req.Data)
	} else {
		attempts = append(attempts, errors.Wrap(err, "in-memory strategy failed"))
	}

	return nil, &PublishError{Attempts: attempts}
}

func finish(path string, strat Strategy, data []byte) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "publish: failed to stat published artifact")
	}
	sum := sha256.Sum256(data)
	return &Result{Path: path, Strategy: strat, Size: info.Size(), Checksum: hex.EncodeToString(sum[:])}, nil
}

// publishViaCache registers req.Data under req.Key (if not already
// present) and writes the cache's bytes for that key to destPath with
// atomicWrite. It writes a copy; it does not hard-link the cache's entry
// file.
func publishViaCache(req Request, destPath string) (string, error) {
	entryData, err := req.Cache.GetOrBuild(req.Key, func() ([]byte, error) { return req.Data, nil })
	if err != nil {
		return "", err
	}
	if err := atomicWrite(destPath, entryData); err != nil {
		return "", err
	}
	return destPath, nil
}

// publishViaProjectDir writes req.Data directly to destPath via an
// atomic temp-name-then-rename publish.
func publishViaProjectDir(req Request, destPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create destination directory")
	}
	if err := atomicWrite(destPath, req.Data); err != nil {
		return "", err
	}
	return destPath, nil
}

// publishInMemory is the last-resort strategy: it still writes to disk
// (a caller always wants a path back) but skips any attempt at reusing
// cache storage or pre-existing directories, recreating DestDir itself.
func publishInMemory(req Request, destPath string) (string, error) {
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to recreate destination directory")
	}
	if err := atomicWrite(destPath, req.Data); err != nil {
		return "", err
	}
	return destPath, nil
}

func atomicWrite(destPath string, data []byte) error {
	tmp := destPath + fmt.Sprintf(".tmp-%d", os.Getpid())
	mode := os.FileMode(0o644)
	if runtime.GOOS != "windows" {
		mode = 0o755
	}
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return errors.Wrap(err, "failed to write temp file")
	}
	verify, err := os.ReadFile(tmp)
	if err != nil || len(verify) != len(data) {
		os.Remove(tmp)
		return errors.New("size verification failed after write")
	}
	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to rename into place")
	}
	return nil
}

func outputName(base, targetOS string) string {
	if targetOS == "" {
		targetOS = runtime.GOOS
	}
	if targetOS == "windows" {
		return base + ".exe"
	}
	return base
}
