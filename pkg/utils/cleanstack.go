/*
Copyright © 2024 - 2026 Firmware Tools Authors

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

package utils

import (
	"github.com/hashicorp/go-multierror"
)

type CleanFunc func() error

// NewCleanStack returns a new stack.
func NewCleanStack() *CleanStack {
	return &CleanStack{}
}

// CleanStack is a basic LIFO stack of release jobs. Jobs run exactly once
// regardless of how the owning operation exits.
type CleanStack struct {
	jobs []CleanFunc
}

// Push adds a job to the stack
func (clean *CleanStack) Push(cFunc CleanFunc) {
	clean.jobs = append(clean.jobs, cFunc)
}

// Cleanup runs the whole stack in last to first order. All jobs run even
// after failures; the given error, if any, comes first in the aggregate.
func (clean *CleanStack) Cleanup(err error) error {
	var errs error
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for i := len(clean.jobs) - 1; i >= 0; i-- {
		if jobErr := clean.jobs[i](); jobErr != nil {
			errs = multierror.Append(errs, jobErr)
		}
	}
	clean.jobs = nil
	return errs
}
