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

	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
)

// SetClusterSpecDefaults fills the zero-valued fields of spec with the
// configured defaults.
func SetClusterSpecDefaults(spec *ClusterSpec) {
	if spec == nil {
		return
	}

	if spec.WorkerCount == 0 {
		spec.WorkerCount = common.DefaultWorkerCount
	}
	if spec.WorkerCores == 0 {
		spec.WorkerCores = common.DefaultWorkerCores
	}
	if spec.WorkerMemory == "" {
		spec.WorkerMemory = common.DefaultWorkerMemory
	}
	if spec.MasterCores == 0 {
		spec.MasterCores = common.DefaultMasterCores
	}
	if spec.MasterMemory == "" {
		spec.MasterMemory = common.DefaultMasterMemory
	}
	if spec.ImagePullPolicy == "" {
		spec.ImagePullPolicy = corev1.PullIfNotPresent
	}
	if spec.MasterPort == 0 {
		spec.MasterPort = common.DefaultMasterPort
	}
	if spec.MasterWebUIPort == 0 {
		spec.MasterWebUIPort = common.DefaultMasterWebUIPort
	}
	if spec.WorkerWebUIPort == 0 {
		spec.WorkerWebUIPort = common.DefaultWorkerWebUIPort
	}
}

// NewClusterSpecFromRequest builds a ClusterSpec from a create request,
// applying defaults for absent fields.
func NewClusterSpecFromRequest(req *CreateClusterRequest) ClusterSpec {
	spec := ClusterSpec{}
	if req != nil {
		if req.WorkerCount != nil {
			spec.WorkerCount = *req.WorkerCount
		}
		if req.WorkerCores != nil {
			spec.WorkerCores = *req.WorkerCores
		}
		if req.WorkerMemory != nil {
			spec.WorkerMemory = *req.WorkerMemory
		}
		if req.MasterCores != nil {
			spec.MasterCores = *req.MasterCores
		}
		if req.MasterMemory != nil {
			spec.MasterMemory = *req.MasterMemory
		}
	}
	SetClusterSpecDefaults(&spec)
	return spec
}
