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

package sitedomainadapter

import (
	"testing"

	"emperror.dev/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateEntry(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		duplicate bool
	}{
		{
			name:      "duplicate key violation",
			err:       &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'user-site' for key 'idx_setup_state_user_site'"},
			duplicate: true,
		},
		{
			name:      "wrapped duplicate key violation",
			err:       errors.WrapIf(&mysql.MySQLError{Number: 1062}, "creating record failed"),
			duplicate: true,
		},
		{
			name:      "access denied",
			err:       &mysql.MySQLError{Number: 1045, Message: "Access denied"},
			duplicate: false,
		},
		{
			name:      "plain error",
			err:       errors.New("connection refused"),
			duplicate: false,
		},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.duplicate, isDuplicateEntry(test.err))
		})
	}
}
