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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"github.com/pageforge/pageforge/internal/sitedomain"
)

// setupStateModel is the database representation of a domain setup state.
// The state itself is stored as a JSON blob, the surrounding columns exist
// for keying and optimistic concurrency only.
type setupStateModel struct {
	ID        uint `gorm:"primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID string `gorm:"unique_index:idx_setup_state_user_site"`
	SiteID string `gorm:"unique_index:idx_setup_state_user_site"`

	Version int

	State string `gorm:"type:text"`
}

// TableName changes the default table name.
func (setupStateModel) TableName() string {
	return "domain_setup_states"
}

// GormStore persists domain setup states in a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Find returns the persisted state for the given user and site, or a zero
// state with version 0 when there is none.
func (s *GormStore) Find(ctx context.Context, userID string, siteID string) (sitedomain.SetupState, int, error) {
	var model setupStateModel

	err := s.db.Where(setupStateModel{UserID: userID, SiteID: siteID}).First(&model).Error
	if gorm.IsRecordNotFoundError(err) {
		return sitedomain.SetupState{}, 0, nil
	}

	if err != nil {
		return sitedomain.SetupState{}, 0, errors.WrapIfWithDetails(err, "fetching domain setup state failed", "userId", userID, "siteId", siteID)
	}

	var state sitedomain.SetupState

	err = json.Unmarshal([]byte(model.State), &state)
	if err != nil {
		return sitedomain.SetupState{}, 0, errors.WrapIfWithDetails(err, "decoding domain setup state failed", "userId", userID, "siteId", siteID)
	}

	return state, model.Version, nil
}

// Save persists the state when version still matches the stored one.
func (s *GormStore) Save(ctx context.Context, userID string, siteID string, state sitedomain.SetupState, version int) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return errors.WrapIf(err, "encoding domain setup state failed")
	}

	if version == 0 {
		model := setupStateModel{
			UserID:  userID,
			SiteID:  siteID,
			Version: 1,
			State:   string(encoded),
		}

		err := s.db.Create(&model).Error
		if err != nil {
			// A unique key violation means someone created the state
			// since we looked. Everything else is an infrastructure
			// failure, not a concurrent write.
			if isDuplicateEntry(err) {
				return sitedomain.ErrStateConflict{}
			}

			return errors.WrapIfWithDetails(err, "saving domain setup state failed", "userId", userID, "siteId", siteID)
		}

		return nil
	}

	result := s.db.Model(&setupStateModel{}).
		Where("user_id = ? AND site_id = ? AND version = ?", userID, siteID, version).
		Updates(map[string]interface{}{
			"version": version + 1,
			"state":   string(encoded),
		})
	if result.Error != nil {
		return errors.WrapIfWithDetails(result.Error, "saving domain setup state failed", "userId", userID, "siteId", siteID)
	}

	if result.RowsAffected == 0 {
		return sitedomain.ErrStateConflict{}
	}

	return nil
}

// isDuplicateEntry reports whether err is a MySQL unique key violation
// (ER_DUP_ENTRY).
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError

	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// Delete removes the state. Removing an absent state is not an error.
func (s *GormStore) Delete(ctx context.Context, userID string, siteID string) error {
	err := s.db.Where(setupStateModel{UserID: userID, SiteID: siteID}).Delete(&setupStateModel{}).Error
	if err != nil {
		return errors.WrapIfWithDetails(err, "deleting domain setup state failed", "userId", userID, "siteId", siteID)
	}

	return nil
}

// Migrate executes the table migrations for the domain setup module.
func Migrate(db *gorm.DB, logger logrus.FieldLogger) error {
	tables := []interface{}{
		&setupStateModel{},
	}

	var tableNames string
	for _, table := range tables {
		tableNames += fmt.Sprintf(" %s", db.NewScope(table).TableName())
	}

	logger.WithFields(logrus.Fields{
		"table_names": strings.TrimSpace(tableNames),
	}).Info("migrating domain setup tables")

	return db.AutoMigrate(tables...).Error
}
