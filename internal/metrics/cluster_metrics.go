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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
	"github.com/kbase/cdm-kube-spark-manager/pkg/util"
)

var logger = ctrl.Log.WithName("metrics")

// ClusterMetrics instruments the cluster lifecycle manager.
type ClusterMetrics struct {
	prefix string

	createCount        prometheus.Counter
	createFailureCount prometheus.Counter
	deleteCount        prometheus.Counter
	deleteFailureCount prometheus.Counter
	runningCount       prometheus.Gauge
	createTimeSeconds  prometheus.Summary
}

// NewClusterMetrics creates the lifecycle metrics set with an optional
// metric name prefix.
func NewClusterMetrics(prefix string) *ClusterMetrics {
	return &ClusterMetrics{
		prefix: prefix,

		createCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricClusterCreateCount),
				Help: "Total number of Spark clusters created",
			},
		),
		createFailureCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricClusterCreateFailureCount),
				Help: "Total number of failed Spark cluster creations",
			},
		),
		deleteCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricClusterDeleteCount),
				Help: "Total number of Spark clusters deleted",
			},
		),
		deleteFailureCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricClusterDeleteFailureCount),
				Help: "Total number of failed Spark cluster deletions",
			},
		),
		runningCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricClusterRunningCount),
				Help: "Number of Spark clusters currently provisioned",
			},
		),
		createTimeSeconds: prometheus.NewSummary(
			prometheus.SummaryOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricClusterCreateTimeSeconds),
				Help: "Time to apply the full resource set of a Spark cluster",
			},
		),
	}
}

// Register registers every metric with the default prometheus registry.
func (m *ClusterMetrics) Register() {
	collectors := []prometheus.Collector{
		m.createCount,
		m.createFailureCount,
		m.deleteCount,
		m.deleteFailureCount,
		m.runningCount,
		m.createTimeSeconds,
	}
	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			logger.Error(err, "Failed to register cluster metric")
		}
	}
}

// HandleCreateSuccess records a successful cluster creation.
func (m *ClusterMetrics) HandleCreateSuccess(duration time.Duration) {
	m.createCount.Inc()
	m.runningCount.Inc()
	m.createTimeSeconds.Observe(duration.Seconds())
}

// HandleCreateFailure records a rejected or failed cluster creation.
func (m *ClusterMetrics) HandleCreateFailure() {
	m.createFailureCount.Inc()
}

// HandleDeleteSuccess records an actual cluster removal.
func (m *ClusterMetrics) HandleDeleteSuccess() {
	m.deleteCount.Inc()
	m.runningCount.Dec()
}

// HandleDeleteFailure records a failed cluster removal.
func (m *ClusterMetrics) HandleDeleteFailure() {
	m.deleteFailureCount.Inc()
}
