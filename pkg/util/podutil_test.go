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

package util_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kbase/cdm-kube-spark-manager/pkg/common"
	"github.com/kbase/cdm-kube-spark-manager/pkg/util"
)

var _ = Describe("IsMasterPod", func() {
	Context("Pod with master role label", func() {
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Labels: map[string]string{common.LabelSparkRole: common.SparkRoleMaster},
			},
		}

		It("Should return true", func() {
			Expect(util.IsMasterPod(pod)).To(BeTrue())
		})

		It("Should not be a worker pod", func() {
			Expect(util.IsWorkerPod(pod)).To(BeFalse())
		})
	})

	Context("Pod without role label", func() {
		pod := &corev1.Pod{}

		It("Should return false", func() {
			Expect(util.IsMasterPod(pod)).To(BeFalse())
		})
	})
})

var _ = Describe("IsWorkerPod", func() {
	Context("Pod with worker role label", func() {
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Labels: map[string]string{common.LabelSparkRole: common.SparkRoleWorker},
			},
		}

		It("Should return true", func() {
			Expect(util.IsWorkerPod(pod)).To(BeTrue())
		})
	})
})

var _ = Describe("GetClusterID", func() {
	Context("Pod with cluster id label", func() {
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Labels: map[string]string{common.LabelClusterID: "spark-alice-1a2b3c4d"},
			},
		}

		It("Should return the cluster id", func() {
			Expect(util.GetClusterID(pod)).To(Equal("spark-alice-1a2b3c4d"))
		})
	})

	Context("Pod without cluster id label", func() {
		It("Should return an empty string", func() {
			Expect(util.GetClusterID(&corev1.Pod{})).To(BeEmpty())
		})
	})
})

var _ = Describe("IsPodReady", func() {
	Context("Pod with ready condition true", func() {
		pod := &corev1.Pod{
			Status: corev1.PodStatus{
				Conditions: []corev1.PodCondition{
					{Type: corev1.PodReady, Status: corev1.ConditionTrue},
				},
			},
		}

		It("Should return true", func() {
			Expect(util.IsPodReady(pod)).To(BeTrue())
		})
	})

	Context("Pod with ready condition false", func() {
		pod := &corev1.Pod{
			Status: corev1.PodStatus{
				Conditions: []corev1.PodCondition{
					{Type: corev1.PodReady, Status: corev1.ConditionFalse},
				},
			},
		}

		It("Should return false", func() {
			Expect(util.IsPodReady(pod)).To(BeFalse())
		})
	})

	Context("Pod without conditions", func() {
		It("Should return false", func() {
			Expect(util.IsPodReady(&corev1.Pod{})).To(BeFalse())
		})
	})
})
