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
	"time"

	"github.com/pageforge/pageforge/internal/common"
	"github.com/pageforge/pageforge/internal/sitedomain/certificate"
	"github.com/pageforge/pageforge/internal/sitedomain/distribution"
	"github.com/pageforge/pageforge/internal/sitedomain/route53"
)

// CertificateProvisioner requests and tracks TLS certificates.
type CertificateProvisioner interface {
	RequestCertificateWithValidationRecords(ctx context.Context, domain string) (string, []certificate.ValidationRecord, error)
	GetValidationStatus(ctx context.Context, certificateARN string) (certificate.Status, error)
	WaitForIssuance(ctx context.Context, certificateARN string, interval time.Duration, maxAttempts int) (certificate.Status, error)
}

// DistributionProvisioner creates CDN distributions for a site.
type DistributionProvisioner interface {
	CreateOrGetDistribution(ctx context.Context, input distribution.ProvisionInput) (distribution.Distribution, error)
}

// DNSProvisioner manages hosted zones and records for custom domains.
type DNSProvisioner interface {
	SetupRecords(ctx context.Context, domain string, edgeDomain string, option string) (route53.RecordSetup, error)
	UpsertValidationRecords(ctx context.Context, domain string, records []route53.RecordValue) error
}

// Store persists setup states keyed by user and site, with optimistic
// concurrency control.
type Store interface {
	// Find returns the state and its version. When there is none it
	// returns a zero state with version 0, not an error.
	Find(ctx context.Context, userID string, siteID string) (SetupState, int, error)

	// Save persists the state when version still matches, otherwise
	// returns a state conflict error. Version 0 means first write.
	Save(ctx context.Context, userID string, siteID string, state SetupState, version int) error

	// Delete removes the state. Removing an absent state is not an error.
	Delete(ctx context.Context, userID string, siteID string) error
}

// SiteStore is the site record collaborator. The distribution reference
// written here is the durable link between a site and its custom domain,
// everything in SetupState is flow-scoped.
type SiteStore interface {
	AttachDistribution(ctx context.Context, userID string, siteID string, distributionID string, distributionDomain string) error
}

// SetupStatus is what every saga operation returns: the derived step plus
// whatever the step produced.
type SetupStatus struct {
	Step  Step       `json:"step"`
	State SetupState `json:"state"`

	CertificateStatus string                      `json:"certificateStatus,omitempty"`
	Records           []route53.RecordInstruction `json:"records,omitempty"`
	NextSteps         []string                    `json:"nextSteps,omitempty"`
	Message           string                      `json:"message,omitempty"`
}

// Config holds the saga's tunables.
type Config struct {
	// PollInterval and MaxPollAttempts bound the synchronous issuance wait
	// used on the managed DNS path.
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Service drives the domain setup flow. Steps are user-driven: each
// operation loads the persisted state, checks its precondition, performs one
// provisioning call and persists the outcome in a single save.
//
// When a precondition is not met the operation returns the derived step
// instead of an error, so a resumed session is redirected rather than shown
// a failure.
type Service struct {
	certificates  CertificateProvisioner
	distributions DistributionProvisioner
	dns           DNSProvisioner

	store     Store
	siteStore SiteStore

	config Config

	logger common.Logger
}

// NewService returns a new domain setup Service.
func NewService(
	certificates CertificateProvisioner,
	distributions DistributionProvisioner,
	dns DNSProvisioner,
	store Store,
	siteStore SiteStore,
	config Config,
	logger common.Logger,
) *Service {
	if config.PollInterval == 0 {
		config.PollInterval = 10 * time.Second
	}

	if config.MaxPollAttempts == 0 {
		config.MaxPollAttempts = 30
	}

	return &Service{
		certificates:  certificates,
		distributions: distributions,
		dns:           dns,
		store:         store,
		siteStore:     siteStore,
		config:        config,
		logger:        logger,
	}
}

// GetSetup returns the current state of the flow without side effects.
func (s *Service) GetSetup(ctx context.Context, userID string, siteID string) (SetupStatus, error) {
	state, _, err := s.loadState(ctx, userID, siteID)
	if err != nil {
		return SetupStatus{}, err
	}

	status := statusOf(state)

	// Completed flows get their instructions rendered again so the client
	// can always re-display them. Only the alias option goes back to the
	// provisioner: that path makes no AWS calls. The nameservers option is
	// rendered from the persisted nameserver list instead, a status read
	// must never touch the hosted zone.
	if status.Step == StepComplete {
		if state.DNSSetupOption == DNSSetupOptionAlias {
			setup, err := s.dns.SetupRecords(ctx, state.DomainName, state.DistributionDomain, state.DNSSetupOption)
			if err != nil {
				return SetupStatus{}, err
			}

			status.Records = setup.Records
		}

		status.NextSteps = nextSteps(state)
	}

	return status, nil
}

// StartSetup begins (or restarts) the flow with the given domain name.
// Supplying a different domain than a previous run discards the old state.
func (s *Service) StartSetup(ctx context.Context, userID string, siteID string, domainName string) (SetupStatus, error) {
	if domainName == "" {
		return SetupStatus{}, NewInvalidInputError("domain name is required")
	}

	state, version, err := s.loadState(ctx, userID, siteID)
	if err != nil {
		return SetupStatus{}, err
	}

	apex := certificate.NormalizeDomain(domainName)

	if state.DomainName == apex {
		return statusOf(state), nil
	}

	state = NewSetupState()
	state.DomainName = apex

	err = s.store.Save(ctx, userID, siteID, state, version)
	if err != nil {
		return SetupStatus{}, err
	}

	return statusOf(state), nil
}

// RequestCertificate requests a certificate for the flow's domain and
// records the validation records the user has to publish.
//
// On the managed DNS path the validation records are written into the hosted
// zone directly and issuance is awaited synchronously, so the caller gets an
// issued certificate back in one call.
func (s *Service) RequestCertificate(ctx context.Context, userID string, siteID string, useManagedDNS bool) (SetupStatus, error) {
	state, version, err := s.loadState(ctx, userID, siteID)
	if err != nil {
		return SetupStatus{}, err
	}

	if state.DomainName == "" {
		return statusOf(state), nil
	}

	logger := s.logger.WithContext(ctx).WithFields(map[string]interface{}{"userId": userID, "site": siteID, "domain": state.DomainName})

	arn, records, err := s.certificates.RequestCertificateWithValidationRecords(ctx, state.DomainName)
	if err != nil {
		return SetupStatus{}, err
	}

	logger.Info("certificate requested", map[string]interface{}{"certificateArn": arn})

	next := state
	next.CertificateARN = arn
	next.ValidationRecords = records
	next.CertificateIssued = false

	status := SetupStatus{Message: "certificate requested, publish the validation records to proceed"}

	if useManagedDNS {
		values := make([]route53.RecordValue, 0, len(records))
		for _, record := range records {
			values = append(values, route53.RecordValue{
				Name:  record.Record.Name,
				Type:  record.Record.Type,
				Value: record.Record.Value,
			})
		}

		err = s.dns.UpsertValidationRecords(ctx, next.DomainName, values)
		if err != nil {
			return SetupStatus{}, err
		}

		_, err = s.certificates.WaitForIssuance(ctx, arn, s.config.PollInterval, s.config.MaxPollAttempts)
		if err != nil {
			return SetupStatus{}, err
		}

		next.CertificateIssued = true
		status.Message = "certificate issued"

		logger.Info("certificate issued via managed dns validation")
	}

	err = s.store.Save(ctx, userID, siteID, next, version)
	if err != nil {
		return SetupStatus{}, err
	}

	status.Step = Reduce(next)
	status.State = next

	return status, nil
}

// CheckCertificate polls the certificate's issuance status once. A failed
// certificate is terminal: the state is reset so the user restarts from the
// beginning.
func (s *Service) CheckCertificate(ctx context.Context, userID string, siteID string) (SetupStatus, error) {
	state, version, err := s.loadState(ctx, userID, siteID)
	if err != nil {
		return SetupStatus{}, err
	}

	if state.CertificateARN == "" {
		return statusOf(state), nil
	}

	certStatus, err := s.certificates.GetValidationStatus(ctx, state.CertificateARN)
	if err != nil {
		if certificate.IsNotYetAvailable(err) {
			status := statusOf(state)
			status.CertificateStatus = certificate.StatusPendingValidation
			status.Message = "validation records are not available yet, check again shortly"

			return status, nil
		}

		return SetupStatus{}, err
	}

	switch certStatus.Status {
	case certificate.StatusIssued:
		next := state
		next.CertificateIssued = true

		err = s.store.Save(ctx, userID, siteID, next, version)
		if err != nil {
			return SetupStatus{}, err
		}

		status := statusOf(next)
		status.CertificateStatus = certStatus.Status
		status.Message = "certificate issued"

		return status, nil

	case certificate.StatusFailed:
		s.logger.WithContext(ctx).Warn("certificate failed, resetting domain setup", map[string]interface{}{
			"userId": userID,
			"site":   siteID,
			"domain": state.DomainName,
		})

		next := NewSetupState()

		err = s.store.Save(ctx, userID, siteID, next, version)
		if err != nil {
			return SetupStatus{}, err
		}

		status := statusOf(next)
		status.CertificateStatus = certStatus.Status
		status.Message = "certificate issuance failed, start over with a new request"

		return status, nil

	default:
		status := statusOf(state)
		status.CertificateStatus = certStatus.Status
		status.Message = "certificate is still pending validation"

		return status, nil
	}
}

// ProvisionDistribution creates (or finds) the CDN distribution fronting the
// site and records its edge domain.
func (s *Service) ProvisionDistribution(ctx context.Context, userID string, siteID string) (SetupStatus, error) {
	state, version, err := s.loadState(ctx, userID, siteID)
	if err != nil {
		return SetupStatus{}, err
	}

	if Reduce(state) != StepDistribution {
		return statusOf(state), nil
	}

	dist, err := s.distributions.CreateOrGetDistribution(ctx, distribution.ProvisionInput{
		SiteID:         siteID,
		CertificateARN: state.CertificateARN,
		DomainNames:    state.DomainNames(),
	})
	if err != nil {
		return SetupStatus{}, err
	}

	next := state
	next.DistributionID = dist.ID
	next.DistributionDomain = dist.DomainName
	next.DistributionPlaceholder = dist.Placeholder

	err = s.store.Save(ctx, userID, siteID, next, version)
	if err != nil {
		return SetupStatus{}, err
	}

	status := statusOf(next)
	status.Message = "distribution ready"

	return status, nil
}

// SetupDNS points DNS at the distribution's edge domain according to the
// chosen option, and durably links the distribution to the site record.
func (s *Service) SetupDNS(ctx context.Context, userID string, siteID string, option string) (SetupStatus, error) {
	if option == "" {
		option = DNSSetupOptionAlias
	}

	if option != DNSSetupOptionAlias && option != DNSSetupOptionNameservers {
		return SetupStatus{}, NewInvalidInputError("unknown dns setup option: " + option)
	}

	state, version, err := s.loadState(ctx, userID, siteID)
	if err != nil {
		return SetupStatus{}, err
	}

	if state.DistributionDomain == "" {
		return statusOf(state), nil
	}

	setup, err := s.dns.SetupRecords(ctx, state.DomainName, state.DistributionDomain, option)
	if err != nil {
		return SetupStatus{}, err
	}

	// Idempotent: re-running the step recomputes and rewrites the same
	// values on the site record.
	err = s.siteStore.AttachDistribution(ctx, userID, siteID, state.DistributionID, state.DistributionDomain)
	if err != nil {
		return SetupStatus{}, err
	}

	next := state
	next.DNSSetupOption = option
	next.Nameservers = setup.Nameservers

	err = s.store.Save(ctx, userID, siteID, next, version)
	if err != nil {
		return SetupStatus{}, err
	}

	status := statusOf(next)
	status.Records = setup.Records
	status.NextSteps = nextSteps(next)

	return status, nil
}

// loadState fetches the persisted state, discarding states written with an
// older schema version.
func (s *Service) loadState(ctx context.Context, userID string, siteID string) (SetupState, int, error) {
	state, version, err := s.store.Find(ctx, userID, siteID)
	if err != nil {
		return SetupState{}, 0, err
	}

	if state.SchemaVersion != CurrentSchemaVersion {
		if state.SchemaVersion != 0 || version != 0 {
			s.logger.WithContext(ctx).Info("discarding setup state with stale schema version", map[string]interface{}{
				"userId":        userID,
				"site":          siteID,
				"schemaVersion": state.SchemaVersion,
			})
		}

		return NewSetupState(), version, nil
	}

	return state, version, nil
}

func statusOf(state SetupState) SetupStatus {
	return SetupStatus{
		Step:  Reduce(state),
		State: state,
	}
}

func nextSteps(state SetupState) []string {
	apex := state.DomainName

	if state.DNSSetupOption == DNSSetupOptionNameservers {
		return []string{
			"configure the listed nameservers at your registrar",
			"wait for DNS propagation, then visit https://" + apex + " and https://www." + apex,
		}
	}

	return []string{
		"create the listed records at your DNS provider",
		"wait for DNS propagation, then visit https://" + apex + " and https://www." + apex,
	}
}
