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

package certificate

import (
	"context"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/acm"
	"github.com/aws/aws-sdk-go/service/acm/acmiface"
	"github.com/jonboulle/clockwork"

	"github.com/pageforge/pageforge/internal/common"
	"github.com/pageforge/pageforge/pkg/backoff"
)

// Certificate statuses reported by the certificate authority.
const (
	StatusPendingValidation = acm.CertificateStatusPendingValidation
	StatusIssued            = acm.CertificateStatusIssued
	StatusFailed            = acm.CertificateStatusFailed
)

// ResourceRecord is the DNS record to publish for proving control of a domain.
type ResourceRecord struct {
	Name  string `json:"Name"`
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

// ValidationRecord describes the validation state of a single certificate SAN.
type ValidationRecord struct {
	DomainName string         `json:"domainName"`
	Record     ResourceRecord `json:"validationRecord"`
	Status     string         `json:"status"`
}

// Status is the point-in-time validation state of a certificate.
type Status struct {
	Status            string
	ValidationRecords []ValidationRecord
}

// recordFetchBackoff models the authority's propagation delay between
// certificate creation and validation-record availability.
var recordFetchBackoff = backoff.ConstantBackoffConfig{
	Delay:      5 * time.Second,
	MaxRetries: 3,
}

// Provisioner requests and tracks DNS-validated public TLS certificates
// through AWS Certificate Manager.
type Provisioner struct {
	acmSvc acmiface.ACMAPI
	clock  clockwork.Clock

	recordFetchDelay time.Duration

	logger common.Logger
}

// Option configures a Provisioner.
type Option interface {
	apply(*Provisioner)
}

// Clock overrides the clock used for waiting between polls.
type Clock struct {
	clockwork.Clock
}

func (c Clock) apply(p *Provisioner) {
	p.clock = c.Clock
}

// RecordFetchDelay overrides the fixed delay between validation record fetch retries.
type RecordFetchDelay time.Duration

func (d RecordFetchDelay) apply(p *Provisioner) {
	p.recordFetchDelay = time.Duration(d)
}

// NewProvisioner returns a new certificate Provisioner.
func NewProvisioner(acmSvc acmiface.ACMAPI, logger common.Logger, opts ...Option) *Provisioner {
	p := &Provisioner{
		acmSvc: acmSvc,
		clock:  clockwork.NewRealClock(),

		recordFetchDelay: recordFetchBackoff.Delay,

		logger: logger,
	}

	for _, o := range opts {
		o.apply(p)
	}

	return p
}

// NormalizeDomain strips a leading www. label so that the apex domain remains.
func NormalizeDomain(domain string) string {
	return strings.TrimPrefix(domain, "www.")
}

// RequestCertificate requests a DNS-validated certificate for the given
// domain and its www alias. The domain is normalized first, so requesting
// "www.example.com" and "example.com" produce the same SAN set.
func (p *Provisioner) RequestCertificate(ctx context.Context, domain string) (string, error) {
	apex := NormalizeDomain(domain)

	logger := p.logger.WithContext(ctx).WithFields(map[string]interface{}{"domain": apex})

	input := &acm.RequestCertificateInput{
		DomainName:              aws.String(apex),
		SubjectAlternativeNames: []*string{aws.String(apex), aws.String("www." + apex)},
		ValidationMethod:        aws.String(acm.ValidationMethodDns),
	}

	output, err := p.acmSvc.RequestCertificateWithContext(ctx, input)
	if err != nil {
		return "", errors.WrapIf(err, "requesting certificate failed")
	}

	if aws.StringValue(output.CertificateArn) == "" {
		return "", errors.New("certificate authority returned no certificate ARN")
	}

	logger.Info("certificate requested", map[string]interface{}{"certificateArn": aws.StringValue(output.CertificateArn)})

	return aws.StringValue(output.CertificateArn), nil
}

// GetValidationStatus fetches the current validation state of a certificate.
// Returns a not-yet-available error while the authority has not computed the
// per-SAN validation records.
func (p *Provisioner) GetValidationStatus(ctx context.Context, certificateARN string) (Status, error) {
	input := &acm.DescribeCertificateInput{CertificateArn: aws.String(certificateARN)}

	output, err := p.acmSvc.DescribeCertificateWithContext(ctx, input)
	if err != nil {
		return Status{}, errors.WrapIf(err, "describing certificate failed")
	}

	cert := output.Certificate
	if cert == nil {
		return Status{}, errors.New("certificate authority returned no certificate details")
	}

	status := Status{Status: aws.StringValue(cert.Status)}

	for _, option := range cert.DomainValidationOptions {
		if option.ResourceRecord == nil {
			return Status{}, errValidationNotReady{}
		}

		status.ValidationRecords = append(status.ValidationRecords, ValidationRecord{
			DomainName: aws.StringValue(option.DomainName),
			Record: ResourceRecord{
				Name:  aws.StringValue(option.ResourceRecord.Name),
				Type:  aws.StringValue(option.ResourceRecord.Type),
				Value: aws.StringValue(option.ResourceRecord.Value),
			},
			Status: aws.StringValue(option.ValidationStatus),
		})
	}

	if len(status.ValidationRecords) == 0 {
		return Status{}, errValidationNotReady{}
	}

	return status, nil
}

// RequestCertificateWithValidationRecords requests a certificate and fetches
// its validation records. The record fetch retries on the not-yet-available
// condition only, every other error propagates immediately.
func (p *Provisioner) RequestCertificateWithValidationRecords(ctx context.Context, domain string) (string, []ValidationRecord, error) {
	certificateARN, err := p.RequestCertificate(ctx, domain)
	if err != nil {
		return "", nil, err
	}

	var status Status

	policy := backoff.NewConstantBackoffPolicy(backoff.ConstantBackoffConfig{
		Delay:      p.recordFetchDelay,
		MaxRetries: recordFetchBackoff.MaxRetries,
	})

	err = backoff.Retry(func() error {
		var err error

		status, err = p.GetValidationStatus(ctx, certificateARN)
		if err != nil && !IsNotYetAvailable(err) {
			return backoff.MarkErrorPermanent(err)
		}

		return err
	}, policy)
	if err != nil {
		return "", nil, errors.WrapIf(err, "fetching validation records failed")
	}

	return certificateARN, status.ValidationRecords, nil
}

// WaitForIssuance polls the validation status until the certificate is
// issued. It fails fast on a failed certificate and gives up with a timeout
// error after maxAttempts polls.
func (p *Provisioner) WaitForIssuance(ctx context.Context, certificateARN string, interval time.Duration, maxAttempts int) (Status, error) {
	logger := p.logger.WithContext(ctx).WithFields(map[string]interface{}{"certificateArn": certificateARN})

	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, err := p.GetValidationStatus(ctx, certificateARN)
		if err != nil && !IsNotYetAvailable(err) {
			return Status{}, err
		}

		if err == nil {
			switch status.Status {
			case StatusIssued:
				logger.Info("certificate issued")

				return status, nil

			case StatusFailed:
				return Status{}, errCertificateFailed{arn: certificateARN}
			}
		}

		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return Status{}, ctx.Err()
		case <-p.clock.After(interval):
		}
	}

	return Status{}, errIssuanceTimeout{attempts: maxAttempts}
}
