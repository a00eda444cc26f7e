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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"emperror.dev/emperror"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"logur.dev/logur"

	"github.com/pageforge/pageforge/internal/common/commonadapter"
	"github.com/pageforge/pageforge/internal/sitedomain"
	"github.com/pageforge/pageforge/internal/sitedomain/certificate"
	"github.com/pageforge/pageforge/internal/sitedomain/distribution"
	"github.com/pageforge/pageforge/internal/sitedomain/route53"
)

type fakeSetupStore struct {
	states   map[string]sitedomain.SetupState
	versions map[string]int
}

func (s *fakeSetupStore) Find(ctx context.Context, userID string, siteID string) (sitedomain.SetupState, int, error) {
	key := userID + "/" + siteID

	return s.states[key], s.versions[key], nil
}

func (s *fakeSetupStore) Save(ctx context.Context, userID string, siteID string, state sitedomain.SetupState, version int) error {
	key := userID + "/" + siteID

	if s.versions[key] != version {
		return sitedomain.ErrStateConflict{}
	}

	s.states[key] = state
	s.versions[key] = version + 1

	return nil
}

func (s *fakeSetupStore) Delete(ctx context.Context, userID string, siteID string) error {
	key := userID + "/" + siteID

	delete(s.states, key)
	delete(s.versions, key)

	return nil
}

type fakeCertificates struct{}

func (fakeCertificates) RequestCertificateWithValidationRecords(ctx context.Context, domain string) (string, []certificate.ValidationRecord, error) {
	return "arn:1", []certificate.ValidationRecord{
		{DomainName: domain, Status: certificate.StatusPendingValidation},
		{DomainName: "www." + domain, Status: certificate.StatusPendingValidation},
	}, nil
}

func (fakeCertificates) GetValidationStatus(ctx context.Context, certificateARN string) (certificate.Status, error) {
	return certificate.Status{Status: certificate.StatusIssued}, nil
}

func (fakeCertificates) WaitForIssuance(ctx context.Context, certificateARN string, interval time.Duration, maxAttempts int) (certificate.Status, error) {
	return certificate.Status{Status: certificate.StatusIssued}, nil
}

type fakeDistributions struct{}

func (fakeDistributions) CreateOrGetDistribution(ctx context.Context, input distribution.ProvisionInput) (distribution.Distribution, error) {
	return distribution.Distribution{ID: "E2EXAMPLE", DomainName: "d111111abcdef8.cloudfront.net"}, nil
}

type fakeDNS struct{}

func (fakeDNS) SetupRecords(ctx context.Context, domain string, edgeDomain string, option string) (route53.RecordSetup, error) {
	return route53.RecordSetup{
		Records: []route53.RecordInstruction{
			{Host: "@", Type: "ALIAS", Target: edgeDomain},
			{Host: "www", Type: "ALIAS", Target: edgeDomain},
		},
	}, nil
}

func (fakeDNS) UpsertValidationRecords(ctx context.Context, domain string, records []route53.RecordValue) error {
	return nil
}

type fakeSites struct{}

func (fakeSites) AttachDistribution(ctx context.Context, userID string, siteID string, distributionID string, distributionDomain string) error {
	return nil
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	logger := commonadapter.NewLogger(logur.NewNoopLogger())

	setupService := sitedomain.NewService(
		fakeCertificates{},
		fakeDistributions{},
		fakeDNS{},
		&fakeSetupStore{
			states:   make(map[string]sitedomain.SetupState),
			versions: make(map[string]int),
		},
		fakeSites{},
		sitedomain.Config{},
		logger,
	)

	logrusLogger := logrus.New()
	logrusLogger.SetOutput(io.Discard)

	domainAPI := NewDomainAPI(setupService, logrusLogger, emperror.NewNoopHandler())

	router := gin.New()
	router.GET("/domains/setup", domainAPI.GetSetup)
	router.PUT("/domains/setup", domainAPI.StartSetup)
	router.POST("/domains/certificate", domainAPI.RequestCertificate)
	router.GET("/domains/certificate/status", domainAPI.CertificateStatus)
	router.GET("/domains/distribution", domainAPI.GetDistribution)
	router.POST("/domains/dns", domainAPI.SetupDNS)

	return router
}

func TestDomainAPIRequiresUserIDHeader(t *testing.T) {
	router := testRouter(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/domains/setup?siteId=site-1", nil)

	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDomainAPIStartSetup(t *testing.T) {
	router := testRouter(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPut, "/domains/setup?siteId=site-1", strings.NewReader(`{"domainName": "www.acme.test"}`))
	request.Header.Set(UserIDHeader, "user-1")

	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var status sitedomain.SetupStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))

	assert.Equal(t, sitedomain.StepValidation, status.Step)
	assert.Equal(t, "acme.test", status.State.DomainName)
}

func TestDomainAPICertificateFlow(t *testing.T) {
	router := testRouter(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/domains/certificate?siteId=site-1", strings.NewReader(`{"domainName": "acme.test"}`))
	request.Header.Set(UserIDHeader, "user-1")

	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var status sitedomain.SetupStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))

	assert.Equal(t, sitedomain.StepPoll, status.Step)
	assert.Equal(t, "arn:1", status.State.CertificateARN)

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/domains/certificate/status?siteId=site-1", nil)
	request.Header.Set(UserIDHeader, "user-1")

	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))

	assert.Equal(t, sitedomain.StepDistribution, status.Step)
}
