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

var _ = Describe("Hash32Hex", func() {
	Context("With the same input", func() {
		It("Should always return the same digest", func() {
			Expect(util.Hash32Hex("alice@kbase.us")).To(Equal(util.Hash32Hex("alice@kbase.us")))
		})
	})

	Context("With different inputs", func() {
		It("Should return different digests", func() {
			Expect(util.Hash32Hex("alice@kbase.us")).NotTo(Equal(util.Hash32Hex("alice.kbase.us")))
		})
	})

	Context("For any input", func() {
		It("Should return 8 lowercase hex digits", func() {
			Expect(util.Hash32Hex("")).To(MatchRegexp(`^[0-9a-f]{8}$`))
			Expect(util.Hash32Hex("alice")).To(MatchRegexp(`^[0-9a-f]{8}$`))
		})
	})
})
