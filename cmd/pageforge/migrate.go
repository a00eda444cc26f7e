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

package main

import (
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"github.com/pageforge/pageforge/internal/site/siteadapter"
	"github.com/pageforge/pageforge/internal/sitedomain/sitedomainadapter"
)

// Migrate runs the schema migrations of every module.
func Migrate(db *gorm.DB, logger logrus.FieldLogger) error {
	if err := siteadapter.Migrate(db, logger); err != nil {
		return err
	}

	if err := sitedomainadapter.Migrate(db, logger); err != nil {
		return err
	}

	return nil
}
