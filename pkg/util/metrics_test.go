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

	"github.com/kbase/cdm-kube-spark-manager/pkg/util"
)

var _ = Describe("CreateValidMetricNameLabel", func() {
	Context("With a prefix", func() {
		It("Should join the prefix and the name", func() {
			Expect(util.CreateValidMetricNameLabel("kbase:", "spark_cluster_create_count")).
				To(Equal("kbase:spark_cluster_create_count"))
		})
	})

	Context("With invalid characters", func() {
		It("Should replace them with underscores", func() {
			Expect(util.CreateValidMetricNameLabel("spark-manager.", "create/count")).
				To(Equal("spark_manager__create_count"))
		})
	})
})
