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
	"github.com/pageforge/pageforge/internal/sitedomain/certificate"
)

// CurrentSchemaVersion is the shape version of the persisted setup state.
// States persisted with an older version are discarded on load, the user
// restarts the flow from the beginning.
const CurrentSchemaVersion = 1

// DNS setup options. Alias is the recommended default, it requires no
// nameserver migration at the registrar.
const (
	DNSSetupOptionAlias       = "alias"
	DNSSetupOptionNameservers = "nameservers"
)

// SetupState is the persisted aggregate of a domain setup flow.
//
// Fields are append-only on the happy path: a later step never invalidates an
// earlier step's field. A step either writes all of its fields or none.
type SetupState struct {
	SchemaVersion int `json:"schemaVersion"`

	// DomainName is the apex domain requested. Set when the flow starts,
	// immutable afterward.
	DomainName string `json:"domainName,omitempty"`

	CertificateARN    string                         `json:"certificateArn,omitempty"`
	ValidationRecords []certificate.ValidationRecord `json:"validationRecords,omitempty"`

	// CertificateIssued records a successful issuance check, so the flow
	// does not have to re-poll the authority on resume.
	CertificateIssued bool `json:"certificateIssued,omitempty"`

	DistributionID     string `json:"distributionId,omitempty"`
	DistributionDomain string `json:"distributionDomain,omitempty"`

	// DistributionPlaceholder marks a synthesized edge domain that still
	// needs to be reconciled with the real distribution.
	DistributionPlaceholder bool `json:"distributionPlaceholder,omitempty"`

	DNSSetupOption string   `json:"dnsSetupOption,omitempty"`
	Nameservers    []string `json:"nameservers,omitempty"`
}

// NewSetupState returns an empty state at the current schema version.
func NewSetupState() SetupState {
	return SetupState{SchemaVersion: CurrentSchemaVersion}
}

// DomainNames returns the certificate SAN set for the state's domain.
func (s SetupState) DomainNames() []string {
	if s.DomainName == "" {
		return nil
	}

	apex := certificate.NormalizeDomain(s.DomainName)

	return []string{apex, "www." + apex}
}
