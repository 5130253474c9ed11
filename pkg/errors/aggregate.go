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

package errors

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/forgedeploy/forge/pkg/util"
)

// NewAggregate flattens a list of errors collected concurrently, e.g. by
// several BinaryGroups building at once, into a single util.Errors wrapped
// with a stack trace. Returns nil if errlist is empty or contains only nils.
func NewAggregate(errlist []error) error {
	raw := make([]error, 0, len(errlist))
	for _, err := range errlist {
		if err != nil {
			raw = append(raw, err)
		}
	}
	flat := util.Flatten(util.NewErrors(raw))
	if len(flat) == 0 {
		return nil
	}
	return pkgerrors.WithStack(flat)
}

// Errors returns the deepest util.Errors in a Cause chain
func Errors(err error) []error {
	var errs util.Errors
	for {
		if v, ok := err.(util.Errors); ok {
			errs = v
		}
		if causerErr, ok := err.(Causer); ok {
			err = causerErr.Cause()
		} else {
			break
		}
	}
	if errs != nil {
		return errs.Errors()
	}
	return nil
}
