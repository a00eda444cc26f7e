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

package cmd

import (
	"os"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/platform/database"
	"github.com/pageforge/pageforge/internal/platform/errorhandler"
	"github.com/pageforge/pageforge/internal/platform/log"
	"github.com/pageforge/pageforge/pkg/amazon"
)

// Config contains the configuration shared between the application commands.
type Config struct {
	Cloud struct {
		Amazon amazon.Config
	}

	// Database configuration
	Database struct {
		database.Config `mapstructure:",squash"`

		AutoMigrate bool
	}

	// Domain setup configuration
	Domain DomainConfig

	// Error handling configuration
	Errors errorhandler.Config

	// Log configuration
	Log log.Config

	// Site configuration
	Site SiteConfig
}

// Validate validates the configuration.
func (c Config) Validate() error {
	var err error

	err = errors.Append(err, c.Cloud.Amazon.Validate())

	err = errors.Append(err, c.Database.Validate())

	err = errors.Append(err, c.Domain.Validate())

	err = errors.Append(err, c.Errors.Validate())

	err = errors.Append(err, c.Site.Validate())

	return err
}

// DomainConfig contains the domain setup flow configuration.
type DomainConfig struct {
	// PollInterval and MaxPollAttempts bound the synchronous certificate
	// issuance wait on the managed DNS path.
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Validate validates the configuration.
func (c DomainConfig) Validate() error {
	var err error

	if c.PollInterval <= 0 {
		err = errors.Append(err, errors.New("domain poll interval must be positive"))
	}

	if c.MaxPollAttempts <= 0 {
		err = errors.Append(err, errors.New("domain max poll attempts must be positive"))
	}

	return err
}

// SiteConfig contains the site storage configuration.
type SiteConfig struct {
	// Bucket holds the deployed site assets, one prefix per site.
	Bucket string

	// OriginDomain is the bucket website endpoint CDN origins point at.
	OriginDomain string
}

// Validate validates the configuration.
func (c SiteConfig) Validate() error {
	var err error

	if c.Bucket == "" {
		err = errors.Append(err, errors.New("site bucket is required"))
	}

	if c.OriginDomain == "" {
		err = errors.Append(err, errors.New("site origin domain is required"))
	}

	return err
}

// Configure configures some defaults in the Viper instance.
func Configure(v *viper.Viper, p *pflag.FlagSet) {
	// Log configuration
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		v.SetDefault("no_color", true)
	}

	v.SetDefault("log::format", "logfmt")
	v.SetDefault("log::level", "info")
	v.RegisterAlias("log::noColor", "no_color")

	// ErrorHandler configuration
	v.SetDefault("errors::serviceName", "pageforge")
	v.SetDefault("errors::serviceVersion", "")

	// Cloud configuration
	v.SetDefault("cloud::amazon::region", "us-east-1")
	v.SetDefault("cloud::amazon::accessKeyId", "")
	v.SetDefault("cloud::amazon::secretAccessKey", "")

	// Database config
	v.SetDefault("database::dialect", "mysql")
	v.SetDefault("database::host", "")
	v.SetDefault("database::port", 3306)
	v.SetDefault("database::tls", "")
	v.SetDefault("database::user", "")
	v.SetDefault("database::password", "")
	v.SetDefault("database::name", "pageforge")
	v.SetDefault("database::params", map[string]string{
		"charset": "utf8mb4",
	})
	v.SetDefault("database::queryLog", false)
	v.SetDefault("database::autoMigrate", false)

	// Domain setup configuration
	v.SetDefault("domain::pollInterval", 10*time.Second)
	v.SetDefault("domain::maxPollAttempts", 30)

	// Site configuration
	v.SetDefault("site::bucket", "")
	v.SetDefault("site::originDomain", "")
}
