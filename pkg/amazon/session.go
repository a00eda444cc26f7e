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

package amazon

import (
	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// Config holds the credentials and region used for talking to AWS services.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.Region == "" {
		return errors.New("amazon region is required")
	}

	return nil
}

// NewSession creates an AWS session from the config.
// When no static credentials are configured the SDK's default credential chain is used.
func NewSession(config Config) (*session.Session, error) {
	awsConfig := aws.NewConfig().WithRegion(config.Region)

	if config.AccessKeyID != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.WrapIf(err, "failed to create AWS session")
	}

	return sess, nil
}
