/*
Copyright 2019 The Kubernetes Authors.

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

package log

// NoopLogger discards everything written to it. It implements Logger so
// that packages needing a default before SetLogger is called, or a
// quiet-mode logger, don't need a nil check.
type NoopLogger struct{}

var _ Logger = NoopLogger{}

func (NoopLogger) Warn(message string)                          {}
func (NoopLogger) Warnf(format string, args ...interface{})     {}
func (NoopLogger) Error(message string)                         {}
func (NoopLogger) Errorf(format string, args ...interface{})    {}
func (NoopLogger) V(Level) InfoLogger                            { return noopInfoLogger{} }

type noopInfoLogger struct{}

var _ InfoLogger = noopInfoLogger{}

func (noopInfoLogger) Enabled() bool                         { return false }
func (noopInfoLogger) Info(message string)                   {}
func (noopInfoLogger) Infof(format string, args ...interface{}) {}
