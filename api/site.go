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

package api

import (
	"net/http"

	"emperror.dev/emperror"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	ginutils "github.com/pageforge/pageforge/internal/platform/gin/utils"
	"github.com/pageforge/pageforge/internal/site"
	"github.com/pageforge/pageforge/pkg/problems"
)

// SiteAPI implements the site API actions the domain setup flow depends on.
type SiteAPI struct {
	siteService *site.Service

	logger       logrus.FieldLogger
	errorHandler emperror.Handler
}

// NewSiteAPI returns a new SiteAPI instance.
func NewSiteAPI(siteService *site.Service, logger logrus.FieldLogger, errorHandler emperror.Handler) *SiteAPI {
	return &SiteAPI{
		siteService: siteService,

		logger:       logger,
		errorHandler: errorHandler,
	}
}

// GetSite returns a site record.
func (a *SiteAPI) GetSite(c *gin.Context) {
	userID, ok := ginutils.GetRequiredHeader(c, UserIDHeader)
	if !ok {
		return
	}

	siteID := c.Param("siteId")

	result, err := a.siteService.GetSite(ginutils.Context(c.Request.Context(), c), userID, siteID)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteSite removes a site's deployed content and its record.
func (a *SiteAPI) DeleteSite(c *gin.Context) {
	userID, ok := ginutils.GetRequiredHeader(c, UserIDHeader)
	if !ok {
		return
	}

	siteID := c.Param("siteId")

	a.logger.WithFields(logrus.Fields{
		"userId": userID,
		"site":   siteID,
	}).Info("deleting site")

	err := a.siteService.DeleteSite(ginutils.Context(c.Request.Context(), c), userID, siteID)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *SiteAPI) replyWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	if site.IsNotFound(err) {
		status = http.StatusNotFound
	} else {
		a.errorHandler.Handle(err)
	}

	problem := problems.NewDetailedProblem(status, err.Error())
	c.AbortWithStatusJSON(status, problem)
}
