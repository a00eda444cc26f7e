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

package site

import (
	"emperror.dev/errors"
)

// NotFoundError is returned when a site doesn't exist (or isn't owned by the
// requesting user).
type NotFoundError struct {
	SiteID string
}

func (e NotFoundError) Error() string {
	return "site not found: " + e.SiteID
}
func (NotFoundError) NotFound() bool     { return true }
func (NotFoundError) ServiceError() bool { return true }

// IsNotFound returns true when a site lookup found nothing.
func IsNotFound(err error) bool {
	var e interface{ NotFound() bool }

	return errors.As(err, &e) && e.NotFound()
}
