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

package siteadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"github.com/pageforge/pageforge/internal/site"
)

type siteModel struct {
	ID        uint `gorm:"primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time

	SiteID string `gorm:"unique_index"`
	UserID string `gorm:"index"`
	Name   string

	CloudFrontID     string `gorm:"column:cloudfront_id"`
	CloudFrontDomain string `gorm:"column:cloudfront_domain"`
}

// TableName changes the default table name.
func (siteModel) TableName() string {
	return "sites"
}

// GormStore persists site records in a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get returns the site owned by the given user.
func (s *GormStore) Get(ctx context.Context, userID string, siteID string) (site.Site, error) {
	var model siteModel

	err := s.db.Where(siteModel{UserID: userID, SiteID: siteID}).First(&model).Error
	if gorm.IsRecordNotFoundError(err) {
		return site.Site{}, errors.WithStack(site.NotFoundError{SiteID: siteID})
	}

	if err != nil {
		return site.Site{}, errors.WrapIfWithDetails(err, "fetching site failed", "siteId", siteID)
	}

	return toSite(model), nil
}

// Create persists a new site record.
func (s *GormStore) Create(ctx context.Context, st site.Site) error {
	model := siteModel{
		SiteID:           st.ID,
		UserID:           st.UserID,
		Name:             st.Name,
		CloudFrontID:     st.CloudFrontID,
		CloudFrontDomain: st.CloudFrontDomain,
	}

	err := s.db.Create(&model).Error
	if err != nil {
		return errors.WrapIfWithDetails(err, "creating site failed", "siteId", st.ID)
	}

	return nil
}

// AttachDistribution writes the distribution reference onto the site record.
// The write is idempotent: re-running it with the same values is a no-op.
func (s *GormStore) AttachDistribution(ctx context.Context, userID string, siteID string, distributionID string, distributionDomain string) error {
	result := s.db.Model(&siteModel{}).
		Where("user_id = ? AND site_id = ?", userID, siteID).
		Updates(map[string]interface{}{
			"cloudfront_id":     distributionID,
			"cloudfront_domain": distributionDomain,
		})
	if result.Error != nil {
		return errors.WrapIfWithDetails(result.Error, "attaching distribution to site failed", "siteId", siteID)
	}

	if result.RowsAffected == 0 {
		// Updates with unchanged values also affect zero rows, so check
		// the record really is missing before reporting not found.
		var count int

		err := s.db.Model(&siteModel{}).Where("user_id = ? AND site_id = ?", userID, siteID).Count(&count).Error
		if err != nil {
			return errors.WrapIfWithDetails(err, "attaching distribution to site failed", "siteId", siteID)
		}

		if count == 0 {
			return errors.WithStack(site.NotFoundError{SiteID: siteID})
		}
	}

	return nil
}

// Delete removes the site record.
func (s *GormStore) Delete(ctx context.Context, userID string, siteID string) error {
	err := s.db.Where(siteModel{UserID: userID, SiteID: siteID}).Delete(&siteModel{}).Error
	if err != nil {
		return errors.WrapIfWithDetails(err, "deleting site failed", "siteId", siteID)
	}

	return nil
}

func toSite(model siteModel) site.Site {
	return site.Site{
		ID:               model.SiteID,
		UserID:           model.UserID,
		Name:             model.Name,
		CloudFrontID:     model.CloudFrontID,
		CloudFrontDomain: model.CloudFrontDomain,
	}
}

// Migrate executes the table migrations for the site module.
func Migrate(db *gorm.DB, logger logrus.FieldLogger) error {
	tables := []interface{}{
		&siteModel{},
	}

	var tableNames string
	for _, table := range tables {
		tableNames += fmt.Sprintf(" %s", db.NewScope(table).TableName())
	}

	logger.WithFields(logrus.Fields{
		"table_names": strings.TrimSpace(tableNames),
	}).Info("migrating site tables")

	return db.AutoMigrate(tables...).Error
}
