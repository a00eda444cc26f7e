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
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awsroute53 "github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"logur.dev/logur"

	"github.com/pageforge/pageforge/internal/common/commonadapter"
)

const (
	testDomain          = "acme.test"
	testEdgeDomain      = "d111111abcdef8.cloudfront.net"
	testHostedZoneID    = "/hostedzone/Z1TESTZONE"
	testHostedZoneShort = "Z1TESTZONE"
)

var testNameservers = []string{
	"ns-1.awsdns-01.com",
	"ns-2.awsdns-02.net",
}

type mockRoute53Svc struct {
	route53iface.Route53API

	listHostedZonesByNameCallCount    int
	createHostedZoneCallCount         int
	getHostedZoneCallCount            int
	changeResourceRecordSetsCallCount int

	existingZones []*awsroute53.HostedZone

	lastChangeBatch *awsroute53.ChangeBatch
}

func (mock *mockRoute53Svc) reset() {
	mock.listHostedZonesByNameCallCount = 0
	mock.createHostedZoneCallCount = 0
	mock.getHostedZoneCallCount = 0
	mock.changeResourceRecordSetsCallCount = 0
	mock.lastChangeBatch = nil
}

func (mock *mockRoute53Svc) ListHostedZonesByNameWithContext(ctx aws.Context, input *awsroute53.ListHostedZonesByNameInput, opts ...request.Option) (*awsroute53.ListHostedZonesByNameOutput, error) {
	mock.listHostedZonesByNameCallCount++

	return &awsroute53.ListHostedZonesByNameOutput{HostedZones: mock.existingZones}, nil
}

func (mock *mockRoute53Svc) CreateHostedZoneWithContext(ctx aws.Context, input *awsroute53.CreateHostedZoneInput, opts ...request.Option) (*awsroute53.CreateHostedZoneOutput, error) {
	mock.createHostedZoneCallCount++

	return &awsroute53.CreateHostedZoneOutput{
		HostedZone: &awsroute53.HostedZone{
			Id:   aws.String(testHostedZoneID),
			Name: input.Name,
		},
		DelegationSet: &awsroute53.DelegationSet{
			NameServers: aws.StringSlice(testNameservers),
		},
	}, nil
}

func (mock *mockRoute53Svc) GetHostedZoneWithContext(ctx aws.Context, input *awsroute53.GetHostedZoneInput, opts ...request.Option) (*awsroute53.GetHostedZoneOutput, error) {
	mock.getHostedZoneCallCount++

	return &awsroute53.GetHostedZoneOutput{
		HostedZone: &awsroute53.HostedZone{
			Id:   aws.String(testHostedZoneID),
			Name: aws.String(testDomain + "."),
		},
		DelegationSet: &awsroute53.DelegationSet{
			NameServers: aws.StringSlice(testNameservers),
		},
	}, nil
}

func (mock *mockRoute53Svc) ChangeResourceRecordSetsWithContext(ctx aws.Context, input *awsroute53.ChangeResourceRecordSetsInput, opts ...request.Option) (*awsroute53.ChangeResourceRecordSetsOutput, error) {
	mock.changeResourceRecordSetsCallCount++
	mock.lastChangeBatch = input.ChangeBatch

	return &awsroute53.ChangeResourceRecordSetsOutput{}, nil
}

func testDNSProvisioner(mock *mockRoute53Svc) *Provisioner {
	logger := commonadapter.NewLogger(logur.NewNoopLogger())

	return NewProvisioner(mock, logger)
}

func TestProvisionerSetupRecordsAlias(t *testing.T) {
	mock := &mockRoute53Svc{}
	provisioner := testDNSProvisioner(mock)

	setup, err := provisioner.SetupRecords(context.Background(), testDomain, testEdgeDomain, SetupOptionAlias)
	require.NoError(t, err)

	// The alias path has no managed DNS side effect at all.
	assert.Equal(t, 0, mock.listHostedZonesByNameCallCount)
	assert.Equal(t, 0, mock.createHostedZoneCallCount)
	assert.Equal(t, 0, mock.changeResourceRecordSetsCallCount)

	assert.Empty(t, setup.HostedZoneID)
	assert.Empty(t, setup.Nameservers)

	require.Len(t, setup.Records, 2)
	assert.Equal(t, RecordInstruction{Host: "@", Type: "ALIAS", Target: testEdgeDomain}, setup.Records[0])
	assert.Equal(t, RecordInstruction{Host: "www", Type: "ALIAS", Target: testEdgeDomain}, setup.Records[1])
}

func TestProvisionerSetupRecordsNameserversCreatesZone(t *testing.T) {
	mock := &mockRoute53Svc{}
	provisioner := testDNSProvisioner(mock)

	setup, err := provisioner.SetupRecords(context.Background(), testDomain, testEdgeDomain, SetupOptionNameservers)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.createHostedZoneCallCount)
	assert.Equal(t, testHostedZoneShort, setup.HostedZoneID)
	assert.Equal(t, testNameservers, setup.Nameservers)

	require.NotNil(t, mock.lastChangeBatch)
	require.Len(t, mock.lastChangeBatch.Changes, 2)

	apexChange := mock.lastChangeBatch.Changes[0].ResourceRecordSet
	assert.Equal(t, testDomain, aws.StringValue(apexChange.Name))
	assert.Equal(t, awsroute53.RRTypeA, aws.StringValue(apexChange.Type))
	require.NotNil(t, apexChange.AliasTarget)
	assert.Equal(t, testEdgeDomain, aws.StringValue(apexChange.AliasTarget.DNSName))
	assert.Equal(t, cloudFrontHostedZoneID, aws.StringValue(apexChange.AliasTarget.HostedZoneId))
}

func TestProvisionerSetupRecordsNameserversReusesZone(t *testing.T) {
	mock := &mockRoute53Svc{
		existingZones: []*awsroute53.HostedZone{
			{
				Id:   aws.String(testHostedZoneID),
				Name: aws.String(testDomain + "."),
			},
		},
	}
	provisioner := testDNSProvisioner(mock)

	setup, err := provisioner.SetupRecords(context.Background(), testDomain, testEdgeDomain, SetupOptionNameservers)
	require.NoError(t, err)

	assert.Equal(t, 0, mock.createHostedZoneCallCount)
	assert.Equal(t, 1, mock.getHostedZoneCallCount)
	assert.Equal(t, testHostedZoneShort, setup.HostedZoneID)
	assert.Equal(t, testNameservers, setup.Nameservers)
}

func TestProvisionerFindHostedZoneIDIsIdempotent(t *testing.T) {
	mock := &mockRoute53Svc{
		existingZones: []*awsroute53.HostedZone{
			{
				Id:   aws.String(testHostedZoneID),
				Name: aws.String(testDomain + "."),
			},
		},
	}
	provisioner := testDNSProvisioner(mock)

	first, err := provisioner.FindHostedZoneID(context.Background(), testDomain)
	require.NoError(t, err)

	second, err := provisioner.FindHostedZoneID(context.Background(), testDomain)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, testHostedZoneShort, first)
}

func TestProvisionerFindHostedZoneIDMissing(t *testing.T) {
	mock := &mockRoute53Svc{}
	provisioner := testDNSProvisioner(mock)

	for i := 0; i < 2; i++ {
		id, err := provisioner.FindHostedZoneID(context.Background(), testDomain)
		require.NoError(t, err)

		assert.Empty(t, id)
	}
}

func TestProvisionerFindHostedZoneIDStripsWww(t *testing.T) {
	mock := &mockRoute53Svc{
		existingZones: []*awsroute53.HostedZone{
			{
				Id:   aws.String(testHostedZoneID),
				Name: aws.String(testDomain + "."),
			},
		},
	}
	provisioner := testDNSProvisioner(mock)

	id, err := provisioner.FindHostedZoneID(context.Background(), "www."+testDomain)
	require.NoError(t, err)

	assert.Equal(t, testHostedZoneShort, id)
}

func TestProvisionerFindHostedZoneIDWwwZone(t *testing.T) {
	mock := &mockRoute53Svc{
		existingZones: []*awsroute53.HostedZone{
			{
				Id:   aws.String(testHostedZoneID),
				Name: aws.String("www." + testDomain + "."),
			},
		},
	}
	provisioner := testDNSProvisioner(mock)

	// A zone registered under the www name still serves the domain.
	id, err := provisioner.FindHostedZoneID(context.Background(), testDomain)
	require.NoError(t, err)

	assert.Equal(t, testHostedZoneShort, id)
}

func TestProvisionerUpsertValidationRecords(t *testing.T) {
	mock := &mockRoute53Svc{
		existingZones: []*awsroute53.HostedZone{
			{
				Id:   aws.String(testHostedZoneID),
				Name: aws.String(testDomain + "."),
			},
		},
	}
	provisioner := testDNSProvisioner(mock)

	records := []RecordValue{
		{Name: "_x1.acme.test.", Type: "CNAME", Value: "_y1.acm-validations.aws."},
		{Name: "_x2.www.acme.test.", Type: "CNAME", Value: "_y2.acm-validations.aws."},
	}

	err := provisioner.UpsertValidationRecords(context.Background(), testDomain, records)
	require.NoError(t, err)

	require.NotNil(t, mock.lastChangeBatch)
	assert.Len(t, mock.lastChangeBatch.Changes, 2)
	assert.Equal(t, awsroute53.ChangeActionUpsert, aws.StringValue(mock.lastChangeBatch.Changes[0].Action))
}

func TestProvisionerUpsertValidationRecordsNoZone(t *testing.T) {
	mock := &mockRoute53Svc{}
	provisioner := testDNSProvisioner(mock)

	err := provisioner.UpsertValidationRecords(context.Background(), testDomain, []RecordValue{
		{Name: "_x1.acme.test.", Type: "CNAME", Value: "_y1.acm-validations.aws."},
	})
	require.Error(t, err)

	assert.Equal(t, 0, mock.changeResourceRecordSetsCallCount)
}
