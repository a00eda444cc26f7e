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
	"emperror.dev/errors"
	logurhandler "emperror.dev/handler/logur"
	"logur.dev/logur"
)

// Config holds information for configuring an error handler.
type Config struct {
	ServiceName    string
	ServiceVersion string
}

func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("error handler service name cannot be empty")
	}

	return nil
}

// New returns a new error handler.
func New(config Config, logger logur.Logger) (Handlers, error) {
	logHandler := logurhandler.WithStackInfo(logurhandler.New(logger))

	return Handlers{logHandler}, nil
}
