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

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
)

// ClusterSpec describes the desired shape of a user's Spark cluster. It is
// supplied at creation time and immutable for the lifetime of the cluster.
type ClusterSpec struct {
	// WorkerCount is the number of Spark worker replicas.
	WorkerCount int32 `json:"worker_count"`

	// WorkerCores is the number of CPU cores for each worker.
	WorkerCores int32 `json:"worker_cores"`

	// WorkerMemory is the memory allocation for each worker, as a
	// Kubernetes quantity string, e.g. "10G".
	WorkerMemory string `json:"worker_memory"`

	// MasterCores is the number of CPU cores for the master.
	MasterCores int32 `json:"master_cores"`

	// MasterMemory is the memory allocation for the master.
	MasterMemory string `json:"master_memory"`

	// Image is the container image for both the master and the workers.
	Image string `json:"image,omitempty"`

	// ImagePullPolicy is the pull policy for Image.
	ImagePullPolicy corev1.PullPolicy `json:"image_pull_policy,omitempty"`

	// MasterPort is the Spark master communication port.
	MasterPort int32 `json:"master_port,omitempty"`

	// MasterWebUIPort is the Spark master web UI port.
	MasterWebUIPort int32 `json:"master_webui_port,omitempty"`

	// WorkerWebUIPort is the Spark worker web UI port.
	WorkerWebUIPort int32 `json:"worker_webui_port,omitempty"`
}

// ClusterState is the aggregated state of a Spark cluster, derived at read
// time from the live Kubernetes objects.
type ClusterState string

const (
	// ClusterStateProvisioning means the objects are applied but the master
	// or some workers are not ready yet.
	ClusterStateProvisioning ClusterState = "Provisioning"

	// ClusterStateRunning means the master is ready and every requested
	// worker replica is ready.
	ClusterStateRunning ClusterState = "Running"

	// ClusterStateDegraded means the master is ready but only a part of the
	// requested worker replicas is.
	ClusterStateDegraded ClusterState = "Degraded"

	// ClusterStateNotFound means no resource set exists for the identity.
	ClusterStateNotFound ClusterState = "NotFound"
)

// PodSummary is the per-pod slice of a cluster status.
type PodSummary struct {
	Name  string `json:"name"`
	Phase string `json:"phase"`
	Ready bool   `json:"ready"`
}

// WorkerStatus reports worker deployment readiness.
type WorkerStatus struct {
	Desired int32 `json:"desired"`
	Ready   int32 `json:"ready"`
}

// ClusterStatus is the projection of a cluster's Kubernetes objects into a
// single logical view. It is computed, never stored.
type ClusterStatus struct {
	ClusterID   string       `json:"cluster_id,omitempty"`
	State       ClusterState `json:"state"`
	MasterURL   string       `json:"master_url,omitempty"`
	MasterUIURL string       `json:"master_ui_url,omitempty"`
	MasterReady bool         `json:"master_ready"`
	Workers     WorkerStatus `json:"workers"`
	Pods        []PodSummary `json:"pods,omitempty"`
}

// ClusterSummary is the admin-facing one-line view of a cluster.
type ClusterSummary struct {
	User      string       `json:"user"`
	ClusterID string       `json:"cluster_id"`
	State     ClusterState `json:"state"`
}

// CreateClusterRequest is the body of POST /clusters. Every field is
// optional; absent fields take the configured defaults.
type CreateClusterRequest struct {
	WorkerCount  *int32  `json:"worker_count,omitempty"`
	WorkerCores  *int32  `json:"worker_cores,omitempty"`
	WorkerMemory *string `json:"worker_memory,omitempty"`
	MasterCores  *int32  `json:"master_cores,omitempty"`
	MasterMemory *string `json:"master_memory,omitempty"`
}

// DeleteClusterResponse is the body of DELETE /clusters. Deletion is
// idempotent; Removed tells "deleted now" apart from "was already gone".
type DeleteClusterResponse struct {
	ClusterID string `json:"cluster_id"`
	Removed   bool   `json:"removed"`
	Message   string `json:"message"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`

	// ResidualObjects lists objects left behind by a failed rollback so an
	// operator can intervene.
	ResidualObjects []string `json:"residual_objects,omitempty"`
}
