/*
Copyright 2025 The KBase authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package serve

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	logzap "sigs.k8s.io/controller-runtime/pkg/log/zap"

	sparkmanager "github.com/kbase/cdm-kube-spark-manager"
	"github.com/kbase/cdm-kube-spark-manager/internal/cluster"
	"github.com/kbase/cdm-kube-spark-manager/internal/k8s"
	"github.com/kbase/cdm-kube-spark-manager/internal/metrics"
	"github.com/kbase/cdm-kube-spark-manager/internal/server"
)

var logger = ctrl.Log.WithName("")

var (
	// Cluster settings. Namespace and image fall back to the
	// KUBE_NAMESPACE and SPARK_IMAGE environment variables.
	namespace       string
	sparkImage      string
	imagePullPolicy string

	// HTTP server
	bindAddress     string
	port            int
	identityHeader  string
	adminUsers      []string
	rateLimit       float64
	rateLimitBurst  int
	shutdownTimeout time.Duration

	kubeCallTimeout time.Duration

	// Metrics
	enableMetrics bool
	metricsPrefix string

	development bool
	zapOptions  = logzap.Options{}
)

func init() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "serve",
		Short: "Start the Spark cluster manager HTTP server",
		PreRun: func(_ *cobra.Command, args []string) {
			development = viper.GetBool("development")
		},
		Run: func(_ *cobra.Command, args []string) {
			sparkmanager.PrintVersion(false)
			serve()
		},
	}

	command.Flags().StringVar(&namespace, "namespace", "", "The Kubernetes namespace Spark clusters are created in. Defaults to the KUBE_NAMESPACE environment variable.")
	command.Flags().StringVar(&sparkImage, "spark-image", "", "The container image for Spark masters and workers. Defaults to the SPARK_IMAGE environment variable.")
	command.Flags().StringVar(&imagePullPolicy, "image-pull-policy", string(corev1.PullIfNotPresent), "Image pull policy for the Spark containers.")

	command.Flags().StringVar(&bindAddress, "bind-address", "", "The address the HTTP server binds to.")
	command.Flags().IntVar(&port, "port", 8000, "The port the HTTP server listens on.")
	command.Flags().StringVar(&identityHeader, "identity-header", "X-Remote-User", "The request header carrying the authenticated username.")
	command.Flags().StringSliceVar(&adminUsers, "admin-users", []string{}, "Usernames exempt from the cluster spec limits and allowed to list all clusters.")
	command.Flags().Float64Var(&rateLimit, "rate-limit", 100, "Maximum sustained requests per second.")
	command.Flags().IntVar(&rateLimitBurst, "rate-limit-burst", 200, "Maximum request burst size.")
	command.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Grace period for draining in-flight requests on shutdown.")

	command.Flags().DurationVar(&kubeCallTimeout, "kube-call-timeout", k8s.DefaultCallTimeout, "Timeout for a single call to the Kubernetes API server.")

	command.Flags().BoolVar(&enableMetrics, "enable-metrics", true, "Enable cluster lifecycle metrics.")
	command.Flags().StringVar(&metricsPrefix, "metrics-prefix", "", "Prefix for the metrics.")

	flagSet := flag.NewFlagSet("serve", flag.ExitOnError)
	ctrl.RegisterFlags(flagSet)
	zapOptions.BindFlags(flagSet)
	command.Flags().AddGoFlagSet(flagSet)

	return command
}

func serve() {
	setupLog()

	options, err := resolveClusterOptions()
	if err != nil {
		logger.Error(err, "Invalid configuration")
		os.Exit(1)
	}

	kubeClient, err := k8s.NewFromConfig(k8s.Options{CallTimeout: kubeCallTimeout})
	if err != nil {
		logger.Error(err, "Failed to create Kubernetes client")
		os.Exit(1)
	}

	manager := cluster.NewManager(kubeClient, options)

	config := server.DefaultConfig()
	config.Address = bindAddress
	config.Port = port
	config.IdentityHeader = identityHeader
	config.AdminUsers = adminUsers
	config.RateLimit = rate.Limit(rateLimit)
	config.RateLimitBurst = rateLimitBurst
	config.ShutdownTimeout = shutdownTimeout

	if err := server.New(config, manager).Run(ctrl.SetupSignalHandler()); err != nil {
		logger.Error(err, "HTTP server failed")
		os.Exit(1)
	}
}

// resolveClusterOptions merges flags with the environment and reports every
// missing required setting at once instead of failing on the first one.
func resolveClusterOptions() (cluster.Options, error) {
	if namespace == "" {
		namespace = viper.GetString("kube-namespace")
	}
	if sparkImage == "" {
		sparkImage = viper.GetString("spark-image")
	}
	datastore := cluster.DatastoreConfig{
		User:     viper.GetString("postgres-user"),
		Password: viper.GetString("postgres-password"),
		Database: viper.GetString("postgres-db"),
		URL:      viper.GetString("postgres-url"),
	}

	required := []struct {
		name  string
		value string
	}{
		{"KUBE_NAMESPACE (or --namespace)", namespace},
		{"SPARK_IMAGE (or --spark-image)", sparkImage},
		{"POSTGRES_USER", datastore.User},
		{"POSTGRES_PASSWORD", datastore.Password},
		{"POSTGRES_DB", datastore.Database},
		{"POSTGRES_URL", datastore.URL},
	}
	var missing []string
	for _, setting := range required {
		if setting.value == "" {
			missing = append(missing, setting.name)
		}
	}
	if len(missing) > 0 {
		return cluster.Options{}, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	options := cluster.Options{
		Namespace:       namespace,
		Image:           sparkImage,
		ImagePullPolicy: corev1.PullPolicy(imagePullPolicy),
		Datastore:       datastore,
	}
	if enableMetrics {
		clusterMetrics := metrics.NewClusterMetrics(metricsPrefix)
		clusterMetrics.Register()
		options.Metrics = clusterMetrics
	}
	return options, nil
}

// setupLog configures the logging system
func setupLog() {
	ctrl.SetLogger(logzap.New(
		logzap.UseFlagOptions(&zapOptions),
		func(o *logzap.Options) {
			o.Development = development
		}, func(o *logzap.Options) {
			o.ZapOpts = append(o.ZapOpts, zap.AddCaller())
		}, func(o *logzap.Options) {
			var config zapcore.EncoderConfig
			if !development {
				config = zap.NewProductionEncoderConfig()
			} else {
				config = zap.NewDevelopmentEncoderConfig()
				config.EncodeLevel = zapcore.CapitalColorLevelEncoder
			}
			config.EncodeTime = zapcore.ISO8601TimeEncoder
			config.EncodeCaller = zapcore.ShortCallerEncoder
			if !development {
				o.Encoder = zapcore.NewJSONEncoder(config)
			} else {
				o.Encoder = zapcore.NewConsoleEncoder(config)
			}
		}),
	)
}
