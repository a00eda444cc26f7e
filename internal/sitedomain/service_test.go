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

package sitedomain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"logur.dev/logur"

	"github.com/pageforge/pageforge/internal/common/commonadapter"
	"github.com/pageforge/pageforge/internal/sitedomain/certificate"
	"github.com/pageforge/pageforge/internal/sitedomain/distribution"
	"github.com/pageforge/pageforge/internal/sitedomain/route53"
)

const (
	testUserID = "user-1"
	testSiteID = "site-1"
)

type inMemoryStore struct {
	states   map[string]SetupState
	versions map[string]int
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		states:   make(map[string]SetupState),
		versions: make(map[string]int),
	}
}

func storeKey(userID string, siteID string) string {
	return fmt.Sprintf("%s/%s", userID, siteID)
}

func (s *inMemoryStore) Find(ctx context.Context, userID string, siteID string) (SetupState, int, error) {
	key := storeKey(userID, siteID)

	return s.states[key], s.versions[key], nil
}

func (s *inMemoryStore) Save(ctx context.Context, userID string, siteID string, state SetupState, version int) error {
	key := storeKey(userID, siteID)

	if s.versions[key] != version {
		return ErrStateConflict{}
	}

	s.states[key] = state
	s.versions[key] = version + 1

	return nil
}

func (s *inMemoryStore) Delete(ctx context.Context, userID string, siteID string) error {
	key := storeKey(userID, siteID)

	delete(s.states, key)
	delete(s.versions, key)

	return nil
}

type stubCertificateProvisioner struct {
	requestCallCount int
	statusCallCount  int

	// statuses are returned by GetValidationStatus one by one; the last
	// one repeats.
	statuses []certificate.Status
}

func (s *stubCertificateProvisioner) RequestCertificateWithValidationRecords(ctx context.Context, domain string) (string, []certificate.ValidationRecord, error) {
	s.requestCallCount++

	return "arn:1", []certificate.ValidationRecord{
		{
			DomainName: domain,
			Record:     certificate.ResourceRecord{Name: "_x1." + domain + ".", Type: "CNAME", Value: "_y1.acm-validations.aws."},
			Status:     certificate.StatusPendingValidation,
		},
		{
			DomainName: "www." + domain,
			Record:     certificate.ResourceRecord{Name: "_x2.www." + domain + ".", Type: "CNAME", Value: "_y2.acm-validations.aws."},
			Status:     certificate.StatusPendingValidation,
		},
	}, nil
}

func (s *stubCertificateProvisioner) GetValidationStatus(ctx context.Context, certificateARN string) (certificate.Status, error) {
	defer func() { s.statusCallCount++ }()

	i := s.statusCallCount
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}

	return s.statuses[i], nil
}

func (s *stubCertificateProvisioner) WaitForIssuance(ctx context.Context, certificateARN string, interval time.Duration, maxAttempts int) (certificate.Status, error) {
	return certificate.Status{Status: certificate.StatusIssued}, nil
}

type stubDistributionProvisioner struct {
	provisionCallCount int

	distribution distribution.Distribution
}

func (s *stubDistributionProvisioner) CreateOrGetDistribution(ctx context.Context, input distribution.ProvisionInput) (distribution.Distribution, error) {
	s.provisionCallCount++

	return s.distribution, nil
}

type stubDNSProvisioner struct {
	setupCallCount  int
	upsertCallCount int

	lastOption string
}

func (s *stubDNSProvisioner) SetupRecords(ctx context.Context, domain string, edgeDomain string, option string) (route53.RecordSetup, error) {
	s.setupCallCount++
	s.lastOption = option

	if option == route53.SetupOptionAlias {
		return route53.RecordSetup{
			Records: []route53.RecordInstruction{
				{Host: "@", Type: "ALIAS", Target: edgeDomain},
				{Host: "www", Type: "ALIAS", Target: edgeDomain},
			},
		}, nil
	}

	return route53.RecordSetup{
		HostedZoneID: "Z1TESTZONE",
		Nameservers:  []string{"ns-1.awsdns-01.com", "ns-2.awsdns-02.net"},
	}, nil
}

func (s *stubDNSProvisioner) UpsertValidationRecords(ctx context.Context, domain string, records []route53.RecordValue) error {
	s.upsertCallCount++

	return nil
}

type stubSiteStore struct {
	attachCallCount int

	distributionID     string
	distributionDomain string
}

func (s *stubSiteStore) AttachDistribution(ctx context.Context, userID string, siteID string, distributionID string, distributionDomain string) error {
	s.attachCallCount++
	s.distributionID = distributionID
	s.distributionDomain = distributionDomain

	return nil
}

type serviceFixture struct {
	service *Service

	certificates  *stubCertificateProvisioner
	distributions *stubDistributionProvisioner
	dns           *stubDNSProvisioner
	store         *inMemoryStore
	siteStore     *stubSiteStore
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		certificates: &stubCertificateProvisioner{
			statuses: []certificate.Status{{Status: certificate.StatusIssued}},
		},
		distributions: &stubDistributionProvisioner{
			distribution: distribution.Distribution{
				ID:         "E2EXAMPLE",
				DomainName: "d111111abcdef8.cloudfront.net",
				Status:     "Deployed",
			},
		},
		dns:       &stubDNSProvisioner{},
		store:     newInMemoryStore(),
		siteStore: &stubSiteStore{},
	}

	logger := commonadapter.NewLogger(logur.NewNoopLogger())

	f.service = NewService(f.certificates, f.distributions, f.dns, f.store, f.siteStore, Config{}, logger)

	return f
}

func TestServiceStartSetup(t *testing.T) {
	f := newServiceFixture()

	status, err := f.service.StartSetup(context.Background(), testUserID, testSiteID, "www.acme.test")
	require.NoError(t, err)

	assert.Equal(t, StepValidation, status.Step)
	assert.Equal(t, "acme.test", status.State.DomainName)
}

func TestServiceStartSetupWithNewDomainDiscardsProgress(t *testing.T) {
	f := newServiceFixture()

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	_, err = f.service.RequestCertificate(ctx, testUserID, testSiteID, false)
	require.NoError(t, err)

	status, err := f.service.StartSetup(ctx, testUserID, testSiteID, "other.test")
	require.NoError(t, err)

	assert.Equal(t, StepValidation, status.Step)
	assert.Equal(t, "other.test", status.State.DomainName)
	assert.Empty(t, status.State.CertificateARN)
}

func TestServiceResumeRedirectsOnMissingPrecondition(t *testing.T) {
	f := newServiceFixture()

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	// Only the domain name is set; entering the DNS step must redirect,
	// never error.
	status, err := f.service.SetupDNS(ctx, testUserID, testSiteID, DNSSetupOptionAlias)
	require.NoError(t, err)

	assert.Equal(t, StepValidation, status.Step)
	assert.Equal(t, 0, f.dns.setupCallCount)
}

func TestServiceCertificateScenario(t *testing.T) {
	f := newServiceFixture()
	f.certificates.statuses = []certificate.Status{
		{Status: certificate.StatusPendingValidation},
		{Status: certificate.StatusIssued},
	}

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	status, err := f.service.RequestCertificate(ctx, testUserID, testSiteID, false)
	require.NoError(t, err)

	assert.Equal(t, StepPoll, status.Step)
	assert.Equal(t, "arn:1", status.State.CertificateARN)
	assert.Len(t, status.State.ValidationRecords, 2)

	// First check: still pending, must not advance.
	status, err = f.service.CheckCertificate(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepPoll, status.Step)
	assert.Equal(t, certificate.StatusPendingValidation, status.CertificateStatus)

	// Second check: issued, advances to the distribution step.
	status, err = f.service.CheckCertificate(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepDistribution, status.Step)
	assert.True(t, status.State.CertificateIssued)
}

func TestServiceCheckCertificateFailedResetsState(t *testing.T) {
	f := newServiceFixture()
	f.certificates.statuses = []certificate.Status{
		{Status: certificate.StatusFailed},
	}

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	_, err = f.service.RequestCertificate(ctx, testUserID, testSiteID, false)
	require.NoError(t, err)

	status, err := f.service.CheckCertificate(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepInput, status.Step)
	assert.Empty(t, status.State.DomainName)
	assert.Equal(t, certificate.StatusFailed, status.CertificateStatus)
}

func TestServiceManagedDNSPath(t *testing.T) {
	f := newServiceFixture()

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	status, err := f.service.RequestCertificate(ctx, testUserID, testSiteID, true)
	require.NoError(t, err)

	assert.Equal(t, 1, f.dns.upsertCallCount)
	assert.True(t, status.State.CertificateIssued)
	assert.Equal(t, StepDistribution, status.Step)
}

func TestServiceFullFlow(t *testing.T) {
	f := newServiceFixture()

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	_, err = f.service.RequestCertificate(ctx, testUserID, testSiteID, false)
	require.NoError(t, err)

	_, err = f.service.CheckCertificate(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	status, err := f.service.ProvisionDistribution(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepDNS, status.Step)
	assert.Equal(t, "d111111abcdef8.cloudfront.net", status.State.DistributionDomain)

	status, err = f.service.SetupDNS(ctx, testUserID, testSiteID, DNSSetupOptionAlias)
	require.NoError(t, err)

	assert.Equal(t, StepComplete, status.Step)
	assert.Len(t, status.Records, 2)
	assert.NotEmpty(t, status.NextSteps)

	// The durable link is written onto the site record.
	assert.Equal(t, 1, f.siteStore.attachCallCount)
	assert.Equal(t, "E2EXAMPLE", f.siteStore.distributionID)
	assert.Equal(t, "d111111abcdef8.cloudfront.net", f.siteStore.distributionDomain)

	// A status read after completion renders the record instructions again.
	status, err = f.service.GetSetup(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepComplete, status.Step)
	assert.Len(t, status.Records, 2)
	assert.NotEmpty(t, status.NextSteps)
}

func TestServiceGetSetupIsReadOnly(t *testing.T) {
	f := newServiceFixture()

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	_, err = f.service.RequestCertificate(ctx, testUserID, testSiteID, false)
	require.NoError(t, err)

	_, err = f.service.CheckCertificate(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	_, err = f.service.ProvisionDistribution(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	_, err = f.service.SetupDNS(ctx, testUserID, testSiteID, DNSSetupOptionNameservers)
	require.NoError(t, err)

	setupCalls := f.dns.setupCallCount

	// Reading the state of a completed nameservers flow must not go near
	// the hosted zone again.
	status, err := f.service.GetSetup(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepComplete, status.Step)
	assert.Equal(t, setupCalls, f.dns.setupCallCount)
	assert.Equal(t, []string{"ns-1.awsdns-01.com", "ns-2.awsdns-02.net"}, status.State.Nameservers)
	assert.NotEmpty(t, status.NextSteps)
}

func TestServiceProvisionDistributionIsIdempotent(t *testing.T) {
	f := newServiceFixture()

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	_, err = f.service.RequestCertificate(ctx, testUserID, testSiteID, false)
	require.NoError(t, err)

	_, err = f.service.CheckCertificate(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	_, err = f.service.ProvisionDistribution(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	// Re-entering the step is redirected by the precondition check.
	status, err := f.service.ProvisionDistribution(ctx, testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepDNS, status.Step)
	assert.Equal(t, 1, f.distributions.provisionCallCount)
}

func TestServiceSetupDNSUnknownOption(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.SetupDNS(context.Background(), testUserID, testSiteID, "registrar")
	require.Error(t, err)

	assert.True(t, IsInvalidInput(err))
}

func TestServiceDiscardsStaleSchemaVersion(t *testing.T) {
	f := newServiceFixture()

	key := storeKey(testUserID, testSiteID)
	f.store.states[key] = SetupState{
		SchemaVersion: CurrentSchemaVersion - 1,
		DomainName:    "acme.test",
	}
	f.store.versions[key] = 4

	status, err := f.service.GetSetup(context.Background(), testUserID, testSiteID)
	require.NoError(t, err)

	assert.Equal(t, StepInput, status.Step)
	assert.Empty(t, status.State.DomainName)
}

func TestServiceSaveConflictSurfaces(t *testing.T) {
	f := newServiceFixture()

	ctx := context.Background()

	_, err := f.service.StartSetup(ctx, testUserID, testSiteID, "acme.test")
	require.NoError(t, err)

	// Another session writes concurrently.
	key := storeKey(testUserID, testSiteID)
	f.store.versions[key]++

	_, err = f.service.RequestCertificate(ctx, testUserID, testSiteID, false)
	require.Error(t, err)

	assert.True(t, IsStateConflict(err))
}
