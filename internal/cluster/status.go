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

package cluster

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/kbase/cdm-kube-spark-manager/api/v1alpha1"
	"github.com/kbase/cdm-kube-spark-manager/pkg/util"
)

// IsMasterReady reports whether the master deployment has its single replica
// ready.
func IsMasterReady(master *appsv1.Deployment) bool {
	return master != nil && master.Status.ReadyReplicas >= 1
}

// WorkerCounts extracts the desired and ready replica counts from the worker
// deployment. A nil deployment yields zero counts.
func WorkerCounts(worker *appsv1.Deployment) (desired, ready int32) {
	if worker == nil {
		return 0, 0
	}
	if worker.Spec.Replicas != nil {
		desired = *worker.Spec.Replicas
	}
	ready = worker.Status.ReadyReplicas
	return desired, ready
}

// DeriveState computes the cluster state from deployment readiness. Master
// readiness gates the interpretation of the workers: workers cannot usefully
// run without a reachable master.
func DeriveState(masterReady bool, workerDesired, workerReady int32) v1alpha1.ClusterState {
	switch {
	case !masterReady:
		return v1alpha1.ClusterStateProvisioning
	case workerReady >= workerDesired:
		return v1alpha1.ClusterStateRunning
	case workerReady == 0:
		return v1alpha1.ClusterStateProvisioning
	default:
		return v1alpha1.ClusterStateDegraded
	}
}

// DeriveStatus projects freshly fetched objects into the logical cluster
// status. It is a pure function; the manager stays stateless and
// restart-safe because nothing here is persisted.
func DeriveStatus(names ResourceNames, spec v1alpha1.ClusterSpec, master, worker *appsv1.Deployment, pods []corev1.Pod) *v1alpha1.ClusterStatus {
	masterReady := IsMasterReady(master)
	workerDesired, workerReady := WorkerCounts(worker)

	state := DeriveState(masterReady, workerDesired, workerReady)
	if worker == nil && masterReady {
		// A present master without its worker deployment is a partial set,
		// not a running zero-worker cluster.
		state = v1alpha1.ClusterStateDegraded
	}

	summaries := make([]v1alpha1.PodSummary, 0, len(pods))
	for i := range pods {
		pod := &pods[i]
		summaries = append(summaries, v1alpha1.PodSummary{
			Name:  pod.Name,
			Phase: string(pod.Status.Phase),
			Ready: util.IsPodReady(pod),
		})
	}

	return &v1alpha1.ClusterStatus{
		ClusterID:   names.ClusterID,
		State:       state,
		MasterURL:   names.MasterURL(spec.MasterPort),
		MasterUIURL: names.MasterUIURL(spec.MasterWebUIPort),
		MasterReady: masterReady,
		Workers: v1alpha1.WorkerStatus{
			Desired: workerDesired,
			Ready:   workerReady,
		},
		Pods: summaries,
	}
}
