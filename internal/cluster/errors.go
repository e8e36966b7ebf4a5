/*
Copyright 2025 The KBase authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cluster

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a malformed or out-of-bounds cluster spec. It is
// raised before any Kubernetes state is touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// AlreadyExistsError reports a create call for an identity that already owns
// a live cluster. Kubernetes object existence is the mutual-exclusion
// primitive; there is no separate lock.
type AlreadyExistsError struct {
	User      string
	ClusterID string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("a Spark cluster already exists for user %q (cluster id %s)", e.User, e.ClusterID)
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var e *AlreadyExistsError
	return errors.As(err, &e)
}

// NameCollisionError reports that name normalization mapped two distinct
// usernames onto the same resource names. The create fails instead of
// silently overwriting another user's cluster.
type NameCollisionError struct {
	User  string
	Owner string
	Name  string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("resource name %q computed for user %q is already owned by user %q", e.Name, e.User, e.Owner)
}

// IsNameCollision reports whether err is a NameCollisionError.
func IsNameCollision(err error) bool {
	var e *NameCollisionError
	return errors.As(err, &e)
}

// MissingParameterError reports a rendering precondition violation: a
// required template parameter has no value. It is an internal defect and is
// never silently defaulted.
type MissingParameterError struct {
	Kind      string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("template parameter %q required by %s has no value", e.Parameter, e.Kind)
}

// IsMissingParameter reports whether err is a MissingParameterError.
func IsMissingParameter(err error) bool {
	var e *MissingParameterError
	return errors.As(err, &e)
}

// PartialApplyError reports a create that failed mid-sequence and whose
// compensating rollback also failed, leaving residual objects behind under
// the user's label set.
type PartialApplyError struct {
	Residual []string
	Err      error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("cluster creation failed and rollback left residual objects [%s]: %v",
		strings.Join(e.Residual, ", "), e.Err)
}

func (e *PartialApplyError) Unwrap() error {
	return e.Err
}

// IsPartialApply reports whether err is a PartialApplyError.
func IsPartialApply(err error) bool {
	var e *PartialApplyError
	return errors.As(err, &e)
}
