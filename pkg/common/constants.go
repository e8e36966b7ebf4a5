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

package common

// Labels attached to every object that belongs to a user's Spark cluster.
// The label set is the only association between the scattered Kubernetes
// objects and the logical cluster; there is no separate index.
const (
	LabelApp      = "app"
	LabelAppValue = "spark"

	// LabelUser is the normalized username of the cluster owner.
	LabelUser = "user"

	// LabelClusterID is the deterministic per-user cluster identifier.
	LabelClusterID = "cluster-id"

	// LabelSparkRole marks an object as part of the master or worker tier.
	LabelSparkRole = "spark-role"

	SparkRoleMaster = "master"
	SparkRoleWorker = "worker"
)

// Default ports for the Spark standalone deployment.
const (
	DefaultMasterPort      int32 = 7077
	DefaultMasterWebUIPort int32 = 8090
	DefaultWorkerWebUIPort int32 = 8081

	MasterPortName      = "spark"
	MasterWebUIPortName = "web-ui"
)

// Container names.
const (
	SparkMasterContainerName = "spark-master"
	SparkWorkerContainerName = "spark-worker"
)

// Environment variables consumed by the Spark master/worker containers.
const (
	EnvSparkMode            = "SPARK_MODE"
	EnvSparkMasterURL       = "SPARK_MASTER_URL"
	EnvSparkMasterPort      = "SPARK_MASTER_PORT"
	EnvSparkMasterWebUIPort = "SPARK_MASTER_WEBUI_PORT"
	EnvSparkWorkerCores     = "SPARK_WORKER_CORES"
	EnvSparkWorkerMemory    = "SPARK_WORKER_MEMORY"
	EnvSparkWorkerWebUIPort = "SPARK_WORKER_WEBUI_PORT"

	EnvExecutorCores          = "EXECUTOR_CORES"
	EnvMaxCoresPerApplication = "MAX_CORES_PER_APPLICATION"
	EnvMaxExecutors           = "MAX_EXECUTORS"

	EnvPostgresUser     = "POSTGRES_USER"
	EnvPostgresPassword = "POSTGRES_PASSWORD"
	EnvPostgresDB       = "POSTGRES_DB"
	EnvPostgresURL      = "POSTGRES_URL"
)

// Default cluster settings. Non-admin users may not request more than these.
const (
	DefaultWorkerCount  int32 = 2
	DefaultWorkerCores  int32 = 10
	DefaultWorkerMemory       = "10G"
	DefaultMasterCores  int32 = 10
	DefaultMasterMemory       = "10G"

	DefaultExecutorCores          int32 = 2
	DefaultMaxCoresPerApplication int32 = 10
	DefaultMaxExecutors           int32 = 5
)

// Metric names.
const (
	MetricClusterCreateCount        = "spark_cluster_create_count"
	MetricClusterCreateFailureCount = "spark_cluster_create_failure_count"
	MetricClusterDeleteCount        = "spark_cluster_delete_count"
	MetricClusterDeleteFailureCount = "spark_cluster_delete_failure_count"
	MetricClusterRunningCount       = "spark_cluster_running_count"
	MetricClusterCreateTimeSeconds  = "spark_cluster_create_time_seconds"
)
