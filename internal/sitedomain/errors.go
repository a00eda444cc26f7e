// Copyright © 2022 PageForge
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sitedomain

import (
	"emperror.dev/errors"
)

// ErrStateConflict signals that the setup state was modified concurrently,
// usually by the same user in another tab. The caller has to reload and
// retry.
type ErrStateConflict struct{}

func (ErrStateConflict) Error() string {
	return "domain setup state was modified concurrently"
}
func (ErrStateConflict) Conflict() bool { return true }

// IsStateConflict returns true when a state save lost an optimistic
// concurrency race.
func IsStateConflict(err error) bool {
	var e interface{ Conflict() bool }

	return errors.As(err, &e) && e.Conflict()
}

type errInvalidInput struct {
	message string
}

func (e errInvalidInput) Error() string    { return e.message }
func (errInvalidInput) Validation() bool   { return true }
func (errInvalidInput) ClientError() bool  { return true }
func (errInvalidInput) ServiceError() bool { return true }

// NewInvalidInputError returns a validation error for a missing or malformed
// request parameter.
func NewInvalidInputError(message string) error {
	return errInvalidInput{message: message}
}

// IsInvalidInput returns true for request validation failures.
func IsInvalidInput(err error) bool {
	var e interface{ Validation() bool }

	return errors.As(err, &e) && e.Validation()
}
