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

package error

import (
	"errors"
	"fmt"
)

// Kind classifies a ContextError so callers can decide whether a failure
// is tolerable during enumeration or must abort the whole operation.
type Kind int

const (
	// KindNotSupported means policy forbids the operation, the
	// architecture has no mapping or a capability is missing
	KindNotSupported Kind = iota + 1
	// KindNotFound means no such volume, file or matching entry
	KindNotFound
	// KindInvalidFile means a structural parse failure
	KindInvalidFile
	// KindBrokenSystem means the system state is unusable, e.g.
	// insufficient NVRAM free space
	KindBrokenSystem
	// KindInternal means a precondition was violated by the caller
	KindInternal
)

// ContextError is our custom error carrying a Kind and a CLI exit code.
type ContextError struct {
	kind Kind
	err  string
}

func (e *ContextError) Error() string {
	return e.err
}

func (e *ContextError) Kind() Kind {
	return e.kind
}

// ExitCode maps the error kind to a stable process exit code.
func (e *ContextError) ExitCode() int {
	switch e.kind {
	case KindNotSupported:
		return 10
	case KindNotFound:
		return 11
	case KindInvalidFile:
		return 12
	case KindBrokenSystem:
		return 13
	case KindInternal:
		return 14
	}
	return 1
}

// New generates a ContextError of the given kind from a string
func New(kind Kind, err string) error {
	return &ContextError{kind: kind, err: err}
}

// NewFromError wraps an existing error keeping its message
func NewFromError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ContextError{kind: kind, err: err.Error()}
}

func NotSupported(format string, args ...interface{}) error {
	return &ContextError{kind: KindNotSupported, err: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &ContextError{kind: KindNotFound, err: fmt.Sprintf(format, args...)}
}

func InvalidFile(format string, args ...interface{}) error {
	return &ContextError{kind: KindInvalidFile, err: fmt.Sprintf(format, args...)}
}

func BrokenSystem(format string, args ...interface{}) error {
	return &ContextError{kind: KindBrokenSystem, err: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...interface{}) error {
	return &ContextError{kind: KindInternal, err: fmt.Sprintf(format, args...)}
}

func isKind(err error, kind Kind) bool {
	var cerr *ContextError
	if errors.As(err, &cerr) {
		return cerr.kind == kind
	}
	return false
}

func IsNotSupported(err error) bool {
	return isKind(err, KindNotSupported)
}

func IsNotFound(err error) bool {
	return isKind(err, KindNotFound)
}

func IsInvalidFile(err error) bool {
	return isKind(err, KindInvalidFile)
}

func IsBrokenSystem(err error) bool {
	return isKind(err, KindBrokenSystem)
}

func IsInternal(err error) bool {
	return isKind(err, KindInternal)
}
