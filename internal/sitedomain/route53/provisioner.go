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

package route53

import (
	"context"
	"strings"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/gofrs/uuid"

	"github.com/pageforge/pageforge/internal/common"
)

// cloudFrontHostedZoneID is the fixed hosted zone CloudFront alias targets
// live in, the same for every AWS account.
const cloudFrontHostedZoneID = "Z2FDTNDATAQYW2"

// Setup options decide who serves DNS for the custom domain.
const (
	// SetupOptionNameservers delegates the domain to a managed hosted zone.
	SetupOptionNameservers = "nameservers"

	// SetupOptionAlias leaves DNS at the current registrar, the user points
	// records at the edge domain themselves.
	SetupOptionAlias = "alias"
)

// RecordValue is a single DNS record the user has to create at their
// registrar.
type RecordValue struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RecordInstruction tells the user what to point where when they keep their
// current DNS provider.
type RecordInstruction struct {
	Host   string `json:"host"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

// RecordSetup is the outcome of setting up DNS for a custom domain.
type RecordSetup struct {
	HostedZoneID string              `json:"hostedZoneId,omitempty"`
	Nameservers  []string            `json:"nameservers,omitempty"`
	Records      []RecordInstruction `json:"records,omitempty"`
}

// Provisioner manages hosted zones and record sets for custom domains.
type Provisioner struct {
	route53Svc route53iface.Route53API

	logger common.Logger
}

// NewProvisioner returns a new DNS Provisioner.
func NewProvisioner(route53Svc route53iface.Route53API, logger common.Logger) *Provisioner {
	return &Provisioner{
		route53Svc: route53Svc,
		logger:     logger,
	}
}

// SetupRecords prepares DNS for the custom domain according to the chosen
// setup option.
//
// The alias option touches no AWS resources at all: the edge domain is echoed
// back verbatim as instructions for the user's own DNS provider. The
// nameservers option provisions a hosted zone (reusing an existing one when
// present) and upserts alias records pointing at the edge domain.
func (p *Provisioner) SetupRecords(ctx context.Context, domain string, edgeDomain string, option string) (RecordSetup, error) {
	logger := p.logger.WithContext(ctx).WithFields(map[string]interface{}{"domain": domain, "option": option})

	if option == SetupOptionAlias {
		return RecordSetup{
			Records: []RecordInstruction{
				{Host: "@", Type: "ALIAS", Target: edgeDomain},
				{Host: "www", Type: "ALIAS", Target: edgeDomain},
			},
		}, nil
	}

	hostedZoneID, err := p.FindHostedZoneID(ctx, domain)
	if err != nil {
		return RecordSetup{}, err
	}

	var nameservers []string

	if hostedZoneID == "" {
		logger.Info("creating hosted zone")

		output, err := p.route53Svc.CreateHostedZoneWithContext(ctx, &route53.CreateHostedZoneInput{
			Name:            aws.String(domain),
			CallerReference: aws.String(uuid.Must(uuid.NewV4()).String()),
			HostedZoneConfig: &route53.HostedZoneConfig{
				Comment: aws.String("pageforge custom domain"),
			},
		})
		if err != nil {
			return RecordSetup{}, errors.WrapIfWithDetails(err, "creating hosted zone failed", "domain", domain)
		}

		hostedZoneID = strippedZoneID(aws.StringValue(output.HostedZone.Id))
		nameservers = nameserversOf(output.DelegationSet)
	} else {
		logger.Info("reusing existing hosted zone", map[string]interface{}{"hostedZone": hostedZoneID})

		output, err := p.route53Svc.GetHostedZoneWithContext(ctx, &route53.GetHostedZoneInput{
			Id: aws.String(hostedZoneID),
		})
		if err != nil {
			return RecordSetup{}, errors.WrapIfWithDetails(err, "fetching hosted zone failed", "domain", domain)
		}

		nameservers = nameserversOf(output.DelegationSet)
	}

	err = p.upsertAliasRecords(ctx, hostedZoneID, domain, edgeDomain)
	if err != nil {
		return RecordSetup{}, err
	}

	return RecordSetup{
		HostedZoneID: hostedZoneID,
		Nameservers:  nameservers,
	}, nil
}

// FindHostedZoneID returns the id of the hosted zone serving the given
// domain, or an empty string when there is none. The apex zone wins, a zone
// named after the www subdomain is accepted as a fallback.
func (p *Provisioner) FindHostedZoneID(ctx context.Context, domain string) (string, error) {
	apex := strings.TrimPrefix(domain, "www.")

	for _, zoneName := range []string{apex + ".", "www." + apex + "."} {
		output, err := p.route53Svc.ListHostedZonesByNameWithContext(ctx, &route53.ListHostedZonesByNameInput{
			DNSName:  aws.String(zoneName),
			MaxItems: aws.String("1"),
		})
		if err != nil {
			return "", errors.WrapIfWithDetails(err, "listing hosted zones failed", "domain", domain)
		}

		for _, zone := range output.HostedZones {
			if aws.StringValue(zone.Name) == zoneName {
				return strippedZoneID(aws.StringValue(zone.Id)), nil
			}
		}
	}

	return "", nil
}

// UpsertValidationRecords writes certificate validation records into the
// hosted zone serving the domain. Used when DNS is already delegated to a
// managed zone, so the user doesn't have to copy records by hand.
func (p *Provisioner) UpsertValidationRecords(ctx context.Context, domain string, records []RecordValue) error {
	hostedZoneID, err := p.FindHostedZoneID(ctx, domain)
	if err != nil {
		return err
	}

	if hostedZoneID == "" {
		return errors.NewWithDetails("no hosted zone serves the domain", "domain", domain)
	}

	changes := make([]*route53.Change, 0, len(records))
	for _, record := range records {
		changes = append(changes, &route53.Change{
			Action: aws.String(route53.ChangeActionUpsert),
			ResourceRecordSet: &route53.ResourceRecordSet{
				Name: aws.String(record.Name),
				Type: aws.String(record.Type),
				TTL:  aws.Int64(300),
				ResourceRecords: []*route53.ResourceRecord{
					{Value: aws.String(record.Value)},
				},
			},
		})
	}

	_, err = p.route53Svc.ChangeResourceRecordSetsWithContext(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(hostedZoneID),
		ChangeBatch:  &route53.ChangeBatch{Changes: changes},
	})
	if err != nil {
		return errors.WrapIfWithDetails(err, "upserting validation records failed", "domain", domain)
	}

	return nil
}

func (p *Provisioner) upsertAliasRecords(ctx context.Context, hostedZoneID string, domain string, edgeDomain string) error {
	apex := strings.TrimPrefix(domain, "www.")

	aliasTarget := &route53.AliasTarget{
		DNSName:              aws.String(edgeDomain),
		HostedZoneId:         aws.String(cloudFrontHostedZoneID),
		EvaluateTargetHealth: aws.Bool(false),
	}

	changes := []*route53.Change{
		{
			Action: aws.String(route53.ChangeActionUpsert),
			ResourceRecordSet: &route53.ResourceRecordSet{
				Name:        aws.String(apex),
				Type:        aws.String(route53.RRTypeA),
				AliasTarget: aliasTarget,
			},
		},
		{
			Action: aws.String(route53.ChangeActionUpsert),
			ResourceRecordSet: &route53.ResourceRecordSet{
				Name:        aws.String("www." + apex),
				Type:        aws.String(route53.RRTypeA),
				AliasTarget: aliasTarget,
			},
		},
	}

	_, err := p.route53Svc.ChangeResourceRecordSetsWithContext(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(hostedZoneID),
		ChangeBatch:  &route53.ChangeBatch{Changes: changes},
	})
	if err != nil {
		return errors.WrapIfWithDetails(err, "upserting alias records failed", "domain", domain)
	}

	return nil
}

func nameserversOf(delegationSet *route53.DelegationSet) []string {
	if delegationSet == nil {
		return nil
	}

	nameservers := make([]string, 0, len(delegationSet.NameServers))
	for _, ns := range delegationSet.NameServers {
		nameservers = append(nameservers, aws.StringValue(ns))
	}

	return nameservers
}

// strippedZoneID removes the /hostedzone/ prefix the API returns ids with.
func strippedZoneID(id string) string {
	return strings.TrimPrefix(id, "/hostedzone/")
}
