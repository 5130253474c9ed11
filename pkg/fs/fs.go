/*
Copyright 2020 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package fs contains small filesystem helpers shared by the scratch
// workspace materializer and the synthesized-project writer.
package fs

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// TempDir is like ioutil.TempDir but defaults dir to os.TempDir() when dir
// is empty, matching the convenience ioutil.TempDir itself drops.
func TempDir(dir, prefix string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	name, err := ioutil.TempDir(dir, prefix)
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp dir")
	}
	return name, nil
}

// IsAbs reports whether path is an absolute filesystem path. Unlike
// filepath.IsAbs, a "~/"-prefixed path is never absolute: it requires a
// shell or user-lookup to expand, which this package does not do.
func IsAbs(path string) bool {
	if strings.HasPrefix(path, "~") {
		return false
	}
	return filepath.IsAbs(path)
}

// Copy copies src to dst. If src is a directory, its contents are copied
// recursively into dst; if src is a regular file, it is copied via
// CopyFile. Both src and dst must be non-empty.
func Copy(src, dst string) error {
	if src == "" {
		return errors.New("copy: src must not be empty")
	}
	if dst == "" {
		return errors.New("copy: dst must not be empty")
	}
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "copy: failed to stat %s", src)
	}
	if info.IsDir() {
		return copyDir(src, dst, info)
	}
	return CopyFile(src, dst)
}

func copyDir(src, dst string, info os.FileInfo) error {
	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return errors.Wrapf(err, "copy: failed to create dir %s", dst)
	}
	entries, err := ioutil.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "copy: failed to read dir %s", src)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath, entry); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies the regular file src to dst, overwriting dst if it
// already exists. src must be a regular file and dst must not be an
// existing directory.
func CopyFile(src, dst string) error {
	if src == "" {
		return errors.New("copyfile: src must not be empty")
	}
	if dst == "" {
		return errors.New("copyfile: dst must not be empty")
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "copyfile: failed to stat %s", src)
	}
	if srcInfo.IsDir() {
		return errors.Errorf("copyfile: src %s is a directory", src)
	}
	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.IsDir() {
		return errors.Errorf("copyfile: dst %s is a directory", dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "copyfile: failed to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return errors.Wrapf(err, "copyfile: failed to create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "copyfile: failed to copy %s to %s", src, dst)
	}
	return out.Close()
}
