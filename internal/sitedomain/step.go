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

// Step identifies where a setup flow currently stands. It is never persisted:
// the current step is always derived from the persisted state by Reduce, so
// precondition logic lives in one place and a stale step pointer cannot
// contradict the state.
type Step string

const (
	// StepInput waits for the user to supply a domain name.
	StepInput Step = "input"

	// StepValidation requests a certificate and surfaces the validation
	// records the user has to publish.
	StepValidation Step = "validation"

	// StepPoll waits for the certificate authority to issue the
	// certificate. Re-checking is a user action, not a background timer.
	StepPoll Step = "poll"

	// StepDistribution provisions the CDN distribution.
	StepDistribution Step = "distribution"

	// StepDNS points DNS at the distribution's edge domain.
	StepDNS Step = "dns"

	// StepComplete is terminal.
	StepComplete Step = "complete"
)

// Reduce derives the current step from the persisted state.
func Reduce(state SetupState) Step {
	switch {
	case state.DomainName == "":
		return StepInput

	case state.CertificateARN == "":
		return StepValidation

	case !state.CertificateIssued:
		return StepPoll

	case state.DistributionDomain == "":
		return StepDistribution

	case state.DNSSetupOption == "":
		return StepDNS

	default:
		return StepComplete
	}
}
