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
	"net/http"
	"os"

	"emperror.dev/emperror"
	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go/service/acm"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	awsroute53 "github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/s3"
	ginprometheus "github.com/banzaicloud/go-gin-prometheus"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/api"
	"github.com/pageforge/pageforge/internal/common/commonadapter"
	"github.com/pageforge/pageforge/internal/platform/buildinfo"
	platformcontext "github.com/pageforge/pageforge/internal/platform/context"
	"github.com/pageforge/pageforge/internal/platform/database"
	"github.com/pageforge/pageforge/internal/platform/errorhandler"
	"github.com/pageforge/pageforge/internal/platform/gin/correlationid"
	ginlog "github.com/pageforge/pageforge/internal/platform/gin/log"
	"github.com/pageforge/pageforge/internal/platform/log"
	"github.com/pageforge/pageforge/internal/site"
	"github.com/pageforge/pageforge/internal/site/siteadapter"
	"github.com/pageforge/pageforge/internal/sitedomain"
	"github.com/pageforge/pageforge/internal/sitedomain/certificate"
	"github.com/pageforge/pageforge/internal/sitedomain/distribution"
	"github.com/pageforge/pageforge/internal/sitedomain/route53"
	"github.com/pageforge/pageforge/internal/sitedomain/sitedomainadapter"
	"github.com/pageforge/pageforge/pkg/amazon"
)

// Provisioned by ldflags
// nolint: gochecknoglobals
var (
	version    string
	commitHash string
	buildDate  string
)

func main() {
	v, p := viper.GetViper(), pflag.NewFlagSet(friendlyAppName, pflag.ExitOnError)

	configure(v, p)

	p.Bool("version", false, "Show version information")

	_ = p.Parse(os.Args[1:])

	if v, _ := p.GetBool("version"); v {
		fmt.Printf("%s version %s (%s) built on %s\n", friendlyAppName, version, commitHash, buildDate)

		os.Exit(0)
	}

	err := v.ReadInConfig()
	_, configFileNotFound := err.(viper.ConfigFileNotFoundError)
	if !configFileNotFound {
		emperror.Panic(errors.Wrap(err, "failed to read configuration"))
	}

	var conf configuration
	err = v.Unmarshal(&conf)
	emperror.Panic(errors.Wrap(err, "failed to unmarshal configuration"))

	// Create logger (first thing after configuration loading)
	logger := log.NewLogger(conf.Log)

	// Legacy logger instance
	logrusLogger := log.NewLogrusLogger(conf.Log)

	// Provide some basic context to all log lines
	logger = log.WithFields(logger, map[string]interface{}{"application": appName})

	log.SetStandardLogger(logger)

	err = conf.Validate()
	if err != nil {
		logger.Error(err.Error())

		os.Exit(3)
	}

	errorHandler, err := errorhandler.New(conf.Errors, logger)
	if err != nil {
		logger.Error(err.Error())

		os.Exit(1)
	}
	defer errorHandler.Close()
	defer emperror.HandleRecover(errorHandler)

	buildInfo := buildinfo.New(version, commitHash, buildDate)

	logger.Info("starting application", buildInfo.Fields())

	commonLogger := commonadapter.NewContextAwareLogger(logger, platformcontext.Extractor{})

	// Connect to the database
	db, err := database.Connect(conf.Database.Config)
	emperror.Panic(errors.WrapIf(err, "failed to connect to the database"))
	defer db.Close()

	if conf.Database.AutoMigrate {
		logger.Info("running automatic schema migrations")

		err = Migrate(db, logrusLogger)
		emperror.Panic(err)
	}

	// AWS session shared by every provisioner
	awsSession, err := amazon.NewSession(conf.Cloud.Amazon)
	emperror.Panic(errors.WrapIf(err, "failed to create AWS session"))

	certificateProvisioner := certificate.NewProvisioner(acm.New(awsSession), commonLogger)
	distributionProvisioner := distribution.NewProvisioner(cloudfront.New(awsSession), conf.Site.OriginDomain, commonLogger)
	dnsProvisioner := route53.NewProvisioner(awsroute53.New(awsSession), commonLogger)

	setupStore := sitedomainadapter.NewGormStore(db)
	siteStore := siteadapter.NewGormStore(db)
	contentStore := siteadapter.NewS3ContentStore(s3.New(awsSession), conf.Site.Bucket)

	siteService := site.NewService(siteStore, contentStore, commonLogger)

	setupService := sitedomain.NewService(
		certificateProvisioner,
		distributionProvisioner,
		dnsProvisioner,
		setupStore,
		siteStore,
		sitedomain.Config{
			PollInterval:    conf.Domain.PollInterval,
			MaxPollAttempts: conf.Domain.MaxPollAttempts,
		},
		commonLogger,
	)

	// Initialise Gin router
	router := gin.New()

	router.Use(correlationid.Middleware())
	router.Use(ginlog.Middleware(logrusLogger, "/metrics"))
	router.Use(gin.Recovery())

	if conf.Metrics.Enabled {
		prom := ginprometheus.NewPrometheus(appName, []string{})
		prom.SetListenAddress(conf.Metrics.Address)
		prom.Use(router, "/metrics")

		prometheus.MustRegister(sitedomainadapter.NewExporter(db))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = conf.CORS.AllowAllOrigins
	if !conf.CORS.AllowAllOrigins {
		corsConfig.AllowOrigins = conf.CORS.AllowOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, api.UserIDHeader, "Correlation-ID")
	router.Use(cors.New(corsConfig))

	base := router.Group(conf.PageForge.BasePath)
	base.GET("version", gin.WrapH(buildinfo.Handler(buildInfo)))

	domainAPI := api.NewDomainAPI(setupService, logrusLogger, errorHandler)
	siteAPI := api.NewSiteAPI(siteService, logrusLogger, errorHandler)

	v1 := base.Group("api/v1")
	{
		domains := v1.Group("domains")
		{
			domains.GET("setup", domainAPI.GetSetup)
			domains.PUT("setup", domainAPI.StartSetup)
			domains.POST("certificate", domainAPI.RequestCertificate)
			domains.GET("certificate/status", domainAPI.CertificateStatus)
			domains.GET("distribution", domainAPI.GetDistribution)
			domains.POST("dns", domainAPI.SetupDNS)
		}

		sites := v1.Group("sites")
		{
			sites.GET(":siteId", siteAPI.GetSite)
			sites.DELETE(":siteId", siteAPI.DeleteSite)
		}
	}

	logger.Info("starting HTTP server", map[string]interface{}{"address": conf.PageForge.Addr})

	err = (&http.Server{
		Addr:    conf.PageForge.Addr,
		Handler: router,
	}).ListenAndServe()
	emperror.Panic(errors.WrapIf(err, "HTTP server terminated"))
}
