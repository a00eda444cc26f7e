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
	"github.com/pageforge/pageforge/internal/sitedomain"
	pkgCommon "github.com/pageforge/pageforge/pkg/common"
	"github.com/pageforge/pageforge/pkg/problems"
)

// UserIDHeader carries the authenticated user's identifier, set by the
// identity-aware proxy in front of the API.
const UserIDHeader = "user-id"

// DomainAPI implements the domain setup API actions.
type DomainAPI struct {
	setupService *sitedomain.Service

	logger       logrus.FieldLogger
	errorHandler emperror.Handler
}

// NewDomainAPI returns a new DomainAPI instance.
func NewDomainAPI(setupService *sitedomain.Service, logger logrus.FieldLogger, errorHandler emperror.Handler) *DomainAPI {
	return &DomainAPI{
		setupService: setupService,

		logger:       logger,
		errorHandler: errorHandler,
	}
}

// GetSetup returns the current state of a site's domain setup flow.
func (a *DomainAPI) GetSetup(c *gin.Context) {
	userID, siteID, ok := a.requiredIdentity(c)
	if !ok {
		return
	}

	status, err := a.setupService.GetSetup(ginutils.Context(c.Request.Context(), c), userID, siteID)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// StartSetupRequest describes the start-setup API request.
type StartSetupRequest struct {
	DomainName string `json:"domainName" binding:"required"`
}

// StartSetup begins (or restarts) the domain setup flow with a domain name.
func (a *DomainAPI) StartSetup(c *gin.Context) {
	userID, siteID, ok := a.requiredIdentity(c)
	if !ok {
		return
	}

	var request StartSetupRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, pkgCommon.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Error parsing request",
			Error:   err.Error(),
		})

		return
	}

	a.logger.WithFields(logrus.Fields{
		"userId": userID,
		"site":   siteID,
		"domain": request.DomainName,
	}).Info("starting domain setup")

	status, err := a.setupService.StartSetup(ginutils.Context(c.Request.Context(), c), userID, siteID, request.DomainName)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// RequestCertificateRequest describes the certificate request API request.
type RequestCertificateRequest struct {
	DomainName string `json:"domainName"`
	UseRoute53 bool   `json:"useRoute53"`
}

// RequestCertificate requests a TLS certificate for the flow's domain. When
// useRoute53 is set the validation records are published into the managed
// hosted zone and issuance is awaited before replying.
func (a *DomainAPI) RequestCertificate(c *gin.Context) {
	userID, siteID, ok := a.requiredIdentity(c)
	if !ok {
		return
	}

	var request RequestCertificateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, pkgCommon.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Error parsing request",
			Error:   err.Error(),
		})

		return
	}

	ctx := ginutils.Context(c.Request.Context(), c)

	if request.DomainName != "" {
		_, err := a.setupService.StartSetup(ctx, userID, siteID, request.DomainName)
		if err != nil {
			a.replyWithError(c, err)
			return
		}
	}

	status, err := a.setupService.RequestCertificate(ctx, userID, siteID, request.UseRoute53)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// CertificateStatus checks the certificate's issuance status once.
func (a *DomainAPI) CertificateStatus(c *gin.Context) {
	userID, siteID, ok := a.requiredIdentity(c)
	if !ok {
		return
	}

	status, err := a.setupService.CheckCertificate(ginutils.Context(c.Request.Context(), c), userID, siteID)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetDistribution provisions (or finds) the CDN distribution fronting the
// site and returns its edge domain.
func (a *DomainAPI) GetDistribution(c *gin.Context) {
	userID, siteID, ok := a.requiredIdentity(c)
	if !ok {
		return
	}

	status, err := a.setupService.ProvisionDistribution(ginutils.Context(c.Request.Context(), c), userID, siteID)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// SetupDNSRequest describes the DNS setup API request.
type SetupDNSRequest struct {
	SetupOption string `json:"setupOption"`
}

// SetupDNS points DNS at the distribution's edge domain.
func (a *DomainAPI) SetupDNS(c *gin.Context) {
	userID, siteID, ok := a.requiredIdentity(c)
	if !ok {
		return
	}

	var request SetupDNSRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, pkgCommon.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Error parsing request",
			Error:   err.Error(),
		})

		return
	}

	status, err := a.setupService.SetupDNS(ginutils.Context(c.Request.Context(), c), userID, siteID, request.SetupOption)
	if err != nil {
		a.replyWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (a *DomainAPI) requiredIdentity(c *gin.Context) (string, string, bool) {
	userID, ok := ginutils.GetRequiredHeader(c, UserIDHeader)
	if !ok {
		return "", "", false
	}

	siteID, ok := ginutils.RequiredQueryOrAbort(c, "siteId")
	if !ok {
		return "", "", false
	}

	return userID, siteID, true
}

func (a *DomainAPI) replyWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case sitedomain.IsInvalidInput(err):
		status = http.StatusBadRequest
	case site.IsNotFound(err):
		status = http.StatusNotFound
	case sitedomain.IsStateConflict(err):
		status = http.StatusConflict
	default:
		a.errorHandler.Handle(err)
	}

	problem := problems.NewDetailedProblem(status, err.Error())
	c.AbortWithStatusJSON(status, problem)
}
