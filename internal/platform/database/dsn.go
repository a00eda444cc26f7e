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

package database

import (
	"fmt"

	"github.com/pkg/errors"
)

// GetDSN returns a DSN string from a config.
func GetDSN(c Config) (string, error) {
	var dsn string

	switch c.Dialect {
	case "mysql":
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", c.User, c.Pass, c.Host, c.Port, c.Name)

	case "postgres":
		dsn = fmt.Sprintf("postgresql://%s:%s@%s:%d/%s", c.User, c.Pass, c.Host, c.Port, c.Name)

	default:
		return "", errors.Errorf("unsupported db dialect: %s", c.Dialect)
	}

	var params string

	if len(c.Params) > 0 {
		var query string

		for key, value := range c.Params {
			if query != "" {
				query += "&"
			}

			query += key + "=" + value
		}

		params = "?" + query
	}

	dsn = dsn + params

	return dsn, nil
}
