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
	"context"

	"github.com/pageforge/pageforge/internal/common"
)

// Site is a generated landing page deployed to object storage.
type Site struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`

	// CloudFrontID and CloudFrontDomain link the site to its CDN
	// distribution once a custom domain is connected.
	CloudFrontID     string `json:"cloudfrontId,omitempty"`
	CloudFrontDomain string `json:"cloudfrontDomain,omitempty"`
}

// Store persists site records.
type Store interface {
	// Get returns the site owned by the given user. Returns an error with
	// NotFound behavior when the site doesn't exist.
	Get(ctx context.Context, userID string, siteID string) (Site, error)

	// Create persists a new site record.
	Create(ctx context.Context, site Site) error

	// AttachDistribution writes the distribution reference onto the site
	// record. Rewriting the same values is not an error.
	AttachDistribution(ctx context.Context, userID string, siteID string, distributionID string, distributionDomain string) error

	// Delete removes the site record.
	Delete(ctx context.Context, userID string, siteID string) error
}

// ContentStore manages the deployed site assets in object storage.
type ContentStore interface {
	// Deploy uploads a site document under the site's storage path.
	Deploy(ctx context.Context, siteID string, key string, body []byte, contentType string) error

	// Delete removes every object under the site's storage path.
	Delete(ctx context.Context, siteID string) error

	// Exists reports whether the site has deployed content.
	Exists(ctx context.Context, siteID string) (bool, error)
}

// Service exposes site operations to the transport layer.
type Service struct {
	store   Store
	content ContentStore

	logger common.Logger
}

// NewService returns a new site Service.
func NewService(store Store, content ContentStore, logger common.Logger) *Service {
	return &Service{
		store:   store,
		content: content,
		logger:  logger,
	}
}

// GetSite returns a site owned by the user.
func (s *Service) GetSite(ctx context.Context, userID string, siteID string) (Site, error) {
	return s.store.Get(ctx, userID, siteID)
}

// DeleteSite removes the site's deployed content and its record.
func (s *Service) DeleteSite(ctx context.Context, userID string, siteID string) error {
	site, err := s.store.Get(ctx, userID, siteID)
	if err != nil {
		return err
	}

	err = s.content.Delete(ctx, site.ID)
	if err != nil {
		return err
	}

	s.logger.WithContext(ctx).Info("site content deleted", map[string]interface{}{"site": site.ID})

	return s.store.Delete(ctx, userID, siteID)
}
