/*
Copyright © 2024 - 2026 Firmware Tools Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/firmware-tools/hwcontext/pkg/utils"
)

var _ = Describe("CleanStack", Label("utils", "cleanstack"), func() {
	var cleanup *utils.CleanStack

	BeforeEach(func() {
		cleanup = utils.NewCleanStack()
	})

	It("runs jobs in reverse order", func() {
		var order []int
		cleanup.Push(func() error { order = append(order, 1); return nil })
		cleanup.Push(func() error { order = append(order, 2); return nil })
		Expect(cleanup.Cleanup(nil)).To(BeNil())
		Expect(order).To(Equal([]int{2, 1}))
	})
	It("keeps running after failures and aggregates them", func() {
		ran := false
		cleanup.Push(func() error { ran = true; return nil })
		cleanup.Push(func() error { return errors.New("release failed") })
		err := cleanup.Cleanup(errors.New("operation failed"))
		Expect(ran).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("operation failed"))
		Expect(err.Error()).To(ContainSubstring("release failed"))
	})
	It("keeps the operation error reachable in the aggregate", func() {
		boom := errors.New("boom")
		err := cleanup.Cleanup(boom)
		Expect(errors.Is(err, boom)).To(BeTrue())
	})
	It("runs each job only once", func() {
		count := 0
		cleanup.Push(func() error { count++; return nil })
		Expect(cleanup.Cleanup(nil)).To(BeNil())
		Expect(cleanup.Cleanup(nil)).To(BeNil())
		Expect(count).To(Equal(1))
	})
})
