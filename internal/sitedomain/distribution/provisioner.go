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

package distribution

import (
	"context"
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/cloudfront/cloudfrontiface"
	"github.com/gofrs/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/pageforge/pageforge/internal/common"
)

const commentPrefix = "pageforge-site-"

// Distribution references a CDN distribution fronting a site.
type Distribution struct {
	ID         string `json:"id"`
	DomainName string `json:"domainName"`
	Status     string `json:"status"`

	// Placeholder marks an edge domain synthesized after every lookup
	// failed. The flow completes with it, the real value has to be fixed
	// up later.
	Placeholder bool `json:"placeholder,omitempty"`
}

// ProvisionInput carries everything needed to create a distribution for a site.
type ProvisionInput struct {
	SiteID         string
	CertificateARN string
	DomainNames    []string
}

// Provisioner creates and updates CloudFront distributions fronting site
// content in object storage.
//
// Distribution creation is slow (minutes) and hostname uniqueness is enforced
// by the provider, so every operation assumes the distribution might already
// exist instead of erroring on conflicts. Re-running the setup flow must not
// dead-end the user.
type Provisioner struct {
	cloudfrontSvc cloudfrontiface.CloudFrontAPI

	// originDomain is the bucket website endpoint all site origins point at.
	originDomain string

	cache *gocache.Cache

	logger common.Logger
}

// NewProvisioner returns a new distribution Provisioner.
func NewProvisioner(cloudfrontSvc cloudfrontiface.CloudFrontAPI, originDomain string, logger common.Logger) *Provisioner {
	return &Provisioner{
		cloudfrontSvc: cloudfrontSvc,
		originDomain:  originDomain,
		cache:         gocache.New(1*time.Minute, 5*time.Minute),
		logger:        logger,
	}
}

// CreateOrGetDistribution returns the distribution fronting the given site,
// creating one when none exists. The CNAME-already-exists condition falls
// back to the distribution claiming the hostname, and if even that lookup
// fails a placeholder edge domain is synthesized so the flow can complete.
func (p *Provisioner) CreateOrGetDistribution(ctx context.Context, input ProvisionInput) (Distribution, error) {
	logger := p.logger.WithContext(ctx).WithFields(map[string]interface{}{"site": input.SiteID})

	if cached, ok := p.cache.Get(input.SiteID); ok {
		return cached.(Distribution), nil
	}

	dist, err := p.findDistributionBySite(ctx, input.SiteID)
	if err == nil {
		logger.Info("found existing distribution", map[string]interface{}{"distribution": dist.ID})
		p.cache.SetDefault(input.SiteID, dist)

		return dist, nil
	}

	if !isNoSuchDistribution(err) {
		return Distribution{}, err
	}

	dist, err = p.createDistribution(ctx, input)
	if err == nil {
		logger.Info("distribution created", map[string]interface{}{"distribution": dist.ID})
		p.cache.SetDefault(input.SiteID, dist)

		return dist, nil
	}

	if !isCNAMEAlreadyExists(err) && !IsAliasTaken(err) {
		return Distribution{}, err
	}

	// Another distribution claims this hostname. Use it rather than failing
	// the whole flow.
	dist, lookupErr := p.findDistributionByAlias(ctx, input.DomainNames)
	if lookupErr == nil {
		logger.Info("falling back to distribution claiming the hostname", map[string]interface{}{"distribution": dist.ID})
		p.cache.SetDefault(input.SiteID, dist)

		return dist, nil
	}

	dist = Distribution{
		ID:          input.SiteID,
		DomainName:  fmt.Sprintf("%s.cloudfront.net", input.SiteID),
		Placeholder: true,
	}

	logger.Warn("synthesized placeholder edge domain after lookup failures", map[string]interface{}{
		"edgeDomain": dist.DomainName,
	})

	return dist, nil
}

// AttachCustomDomain updates an existing distribution's alias and viewer
// certificate configuration.
func (p *Provisioner) AttachCustomDomain(ctx context.Context, distributionID string, domainNames []string, certificateARN string) error {
	configOutput, err := p.cloudfrontSvc.GetDistributionConfigWithContext(ctx, &cloudfront.GetDistributionConfigInput{
		Id: aws.String(distributionID),
	})
	if err != nil {
		return errors.WrapIf(err, "fetching distribution config failed")
	}

	config := configOutput.DistributionConfig
	config.Aliases = aliases(domainNames)
	config.ViewerCertificate = viewerCertificate(certificateARN)

	_, err = p.cloudfrontSvc.UpdateDistributionWithContext(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(distributionID),
		IfMatch:            configOutput.ETag,
		DistributionConfig: config,
	})
	if err != nil {
		if isAWSError(err, cloudfront.ErrCodePreconditionFailed) {
			return errUpdateConflict{}
		}

		if isCNAMEAlreadyExists(err) {
			return errAliasTaken{domain: firstDomain(domainNames)}
		}

		return errors.WrapIf(err, "updating distribution failed")
	}

	return nil
}

func (p *Provisioner) findDistributionBySite(ctx context.Context, siteID string) (Distribution, error) {
	comment := commentPrefix + siteID

	found, err := p.findDistribution(ctx, func(summary *cloudfront.DistributionSummary) bool {
		return aws.StringValue(summary.Comment) == comment
	})
	if err != nil {
		return Distribution{}, err
	}

	if found == nil {
		return Distribution{}, awserr.New(cloudfront.ErrCodeNoSuchDistribution, "no distribution for site", nil)
	}

	return *found, nil
}

func (p *Provisioner) findDistributionByAlias(ctx context.Context, domainNames []string) (Distribution, error) {
	wanted := make(map[string]bool, len(domainNames))
	for _, domain := range domainNames {
		wanted[domain] = true
	}

	found, err := p.findDistribution(ctx, func(summary *cloudfront.DistributionSummary) bool {
		if summary.Aliases == nil {
			return false
		}

		for _, alias := range summary.Aliases.Items {
			if wanted[aws.StringValue(alias)] {
				return true
			}
		}

		return false
	})
	if err != nil {
		return Distribution{}, err
	}

	if found == nil {
		return Distribution{}, awserr.New(cloudfront.ErrCodeNoSuchDistribution, "no distribution claims the hostname", nil)
	}

	return *found, nil
}

func (p *Provisioner) findDistribution(ctx context.Context, match func(*cloudfront.DistributionSummary) bool) (*Distribution, error) {
	input := &cloudfront.ListDistributionsInput{}

	for {
		output, err := p.cloudfrontSvc.ListDistributionsWithContext(ctx, input)
		if err != nil {
			return nil, errors.WrapIf(err, "listing distributions failed")
		}

		if output.DistributionList == nil {
			return nil, nil
		}

		for _, summary := range output.DistributionList.Items {
			if match(summary) {
				return &Distribution{
					ID:         aws.StringValue(summary.Id),
					DomainName: aws.StringValue(summary.DomainName),
					Status:     aws.StringValue(summary.Status),
				}, nil
			}
		}

		if !aws.BoolValue(output.DistributionList.IsTruncated) {
			return nil, nil
		}

		input.Marker = output.DistributionList.NextMarker
	}
}

func (p *Provisioner) createDistribution(ctx context.Context, input ProvisionInput) (Distribution, error) {
	config := &cloudfront.DistributionConfig{
		CallerReference: aws.String(uuid.Must(uuid.NewV4()).String()),
		Comment:         aws.String(commentPrefix + input.SiteID),
		Enabled:         aws.Bool(true),
		Aliases:         aliases(input.DomainNames),
		Origins: &cloudfront.Origins{
			Quantity: aws.Int64(1),
			Items: []*cloudfront.Origin{
				{
					Id:         aws.String(input.SiteID),
					DomainName: aws.String(p.originDomain),
					OriginPath: aws.String("/" + input.SiteID),
					CustomOriginConfig: &cloudfront.CustomOriginConfig{
						HTTPPort:             aws.Int64(80),
						HTTPSPort:            aws.Int64(443),
						OriginProtocolPolicy: aws.String(cloudfront.OriginProtocolPolicyHttpOnly),
					},
				},
			},
		},
		DefaultCacheBehavior: &cloudfront.DefaultCacheBehavior{
			TargetOriginId:       aws.String(input.SiteID),
			ViewerProtocolPolicy: aws.String(cloudfront.ViewerProtocolPolicyRedirectToHttps),
			MinTTL:               aws.Int64(0),
			ForwardedValues: &cloudfront.ForwardedValues{
				QueryString: aws.Bool(false),
				Cookies:     &cloudfront.CookiePreference{Forward: aws.String(cloudfront.ItemSelectionNone)},
			},
			TrustedSigners: &cloudfront.TrustedSigners{
				Enabled:  aws.Bool(false),
				Quantity: aws.Int64(0),
			},
		},
		DefaultRootObject: aws.String("index.html"),
		ViewerCertificate: viewerCertificate(input.CertificateARN),
	}

	output, err := p.cloudfrontSvc.CreateDistributionWithContext(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: config,
	})
	if err != nil {
		return Distribution{}, err
	}

	return Distribution{
		ID:         aws.StringValue(output.Distribution.Id),
		DomainName: aws.StringValue(output.Distribution.DomainName),
		Status:     aws.StringValue(output.Distribution.Status),
	}, nil
}

func aliases(domainNames []string) *cloudfront.Aliases {
	items := make([]*string, 0, len(domainNames))
	for _, domain := range domainNames {
		items = append(items, aws.String(domain))
	}

	return &cloudfront.Aliases{
		Quantity: aws.Int64(int64(len(items))),
		Items:    items,
	}
}

func viewerCertificate(certificateARN string) *cloudfront.ViewerCertificate {
	return &cloudfront.ViewerCertificate{
		ACMCertificateArn:      aws.String(certificateARN),
		SSLSupportMethod:       aws.String(cloudfront.SSLSupportMethodSniOnly),
		MinimumProtocolVersion: aws.String(cloudfront.MinimumProtocolVersionTlsv122019),
	}
}

func firstDomain(domainNames []string) string {
	if len(domainNames) == 0 {
		return ""
	}

	return domainNames[0]
}
