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

package main

import (
	"fmt"
	"os"
	"strings"

	"emperror.dev/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/cmd"
)

const (
	// appName is an identifier-like name used anywhere this app needs to be identified.
	appName = "pageforge"

	// friendlyAppName is the visible name of the application.
	friendlyAppName = "PageForge"

	// envPrefix is the prefix of environment variables overriding configuration.
	envPrefix = "pageforge"
)

// configuration holds any kind of configuration that comes from the outside world and
// is necessary for running the application.
type configuration struct {
	cmd.Config `mapstructure:",squash"`

	CORS struct {
		AllowAllOrigins bool
		AllowOrigins    []string
	}

	Metrics struct {
		Enabled bool
		Address string
	}

	PageForge PageForgeConfig
}

// Validate validates the configuration.
func (c configuration) Validate() error {
	return errors.Combine(c.Config.Validate(), c.PageForge.Validate())
}

// PageForgeConfig contains the application specific configuration.
type PageForgeConfig struct {
	Addr     string
	BasePath string
}

// Validate validates the configuration.
func (c PageForgeConfig) Validate() error {
	var err error

	if c.Addr == "" {
		err = errors.Append(err, errors.New("pageforge address is required"))
	}

	return err
}

// configure configures some defaults in the Viper instance.
func configure(v *viper.Viper, p *pflag.FlagSet) {
	v.AllowEmptyEnv(true)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath(fmt.Sprintf("$%s_CONFIG_DIR/", strings.ToUpper(envPrefix)))
	p.Init(friendlyAppName, pflag.ExitOnError)
	pflag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", friendlyAppName)
		pflag.PrintDefaults()
	}
	_ = v.BindPFlags(p)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_", ".", "_", "-", "_"))
	v.AutomaticEnv()

	// Load common configuration
	cmd.Configure(v, p)

	// ErrorHandler configuration
	v.Set("errors::serviceName", appName)
	v.Set("errors::serviceVersion", version)

	// PageForge configuration
	p.String("addr", "127.0.0.1:9090", "PageForge HTTP server address")
	_ = v.BindPFlag("pageforge::addr", p.Lookup("addr"))
	v.SetDefault("pageforge::addr", "127.0.0.1:9090")
	v.SetDefault("pageforge::basePath", "")

	// CORS configuration
	v.SetDefault("cors::allowAllOrigins", true)
	v.SetDefault("cors::allowOrigins", []string{})

	// Metrics configuration
	v.SetDefault("metrics::enabled", false)
	v.SetDefault("metrics::address", "127.0.0.1:9900")
}
