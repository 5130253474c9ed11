package publish

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgedeploy/forge/pkg/cache"
	"github.com/forgedeploy/forge/pkg/internal/assert"
)

func TestPublishViaCache(t *testing.T) {
	dir, err := ioutil.TempDir("", "forge-publish-cache")
	assert.ExpectError(t, false, err)
	defer os.RemoveAll(dir)
	cdir, err := ioutil.TempDir("", "forge-publish-cachedir")
	assert.ExpectError(t, false, err)
	defer os.RemoveAll(cdir)
	c, err := cache.Open(cdir, 0)
	assert.ExpectError(t, false, err)

	res, err := Publish(Request{
		Key:      cache.Key{TemplateFingerprint: "fp1", TargetTriple: "x86_64-unknown-linux-gnu", OptimizationProfile: "release"},
		Data:     []byte("binary-bytes"),
		DestDir:  dir,
		BaseName: "forge-agent",
		TargetOS: "linux",
		Cache:    c,
	})
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, string(StrategyCache), string(res.Strategy))
	data, err := ioutil.ReadFile(res.Path)
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, "binary-bytes", string(data))
}

func TestPublishWindowsSuffix(t *testing.T) {
	dir, err := ioutil.TempDir("", "forge-publish-win")
	assert.ExpectError(t, false, err)
	defer os.RemoveAll(dir)

	res, err := Publish(Request{
		Data:     []byte("win-bytes"),
		DestDir:  dir,
		BaseName: "forge-agent",
		TargetOS: "windows",
	})
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, filepath.Join(dir, "forge-agent.exe"), res.Path)
}

func TestPublishRejectsEmptyData(t *testing.T) {
	_, err := Publish(Request{DestDir: "/tmp/whatever", BaseName: "x"})
	assert.ExpectError(t, true, err)
}
