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

package errorhandler

import (
	"io"

	"emperror.dev/emperror"
)

// Handlers collects a number of error handlers into a single one.
type Handlers []emperror.Handler

// Handle handles an error with every underlying handler.
func (h Handlers) Handle(err error) {
	for _, handler := range h {
		handler.Handle(err)
	}
}

// Close closes every underlying handler that implements io.Closer.
func (h Handlers) Close() error {
	for _, handler := range h {
		if closer, ok := handler.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	return nil
}
