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

package util

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
)

// IsMasterPod returns whether the given pod belongs to the master tier of a
// Spark cluster.
func IsMasterPod(pod *corev1.Pod) bool {
	return pod.Labels[common.LabelSparkRole] == common.SparkRoleMaster
}

// IsWorkerPod returns whether the given pod belongs to the worker tier of a
// Spark cluster.
func IsWorkerPod(pod *corev1.Pod) bool {
	return pod.Labels[common.LabelSparkRole] == common.SparkRoleWorker
}

// GetClusterID returns the cluster ID recorded on the pod labels.
func GetClusterID(pod *corev1.Pod) string {
	return pod.Labels[common.LabelClusterID]
}

func IsPodReady(pod *corev1.Pod) bool {
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady && condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
