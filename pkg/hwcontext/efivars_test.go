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

package hwcontext_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/firmware-tools/hwcontext/pkg/efivars"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/hwcontext"
	"github.com/firmware-tools/hwcontext/pkg/types"
)

var _ = Describe("Efivars free space check", Label("hwcontext", "efivars"), func() {
	newCtx := func(free uint64) *hwcontext.Context {
		return hwcontext.New(
			hwcontext.WithLogger(types.NewNullLogger()),
			hwcontext.WithVariables(efivars.NewDummyVariables().WithSpaceFree(free)),
		)
	}

	It("passes when enough space is free", func() {
		Expect(newCtx(1024).EfivarsCheckFreeSpace(200)).To(Succeed())
	})
	It("fails with both sizes in the message", func() {
		err := newCtx(100).EfivarsCheckFreeSpace(200)
		Expect(fwErr.IsBrokenSystem(err)).To(BeTrue())
		Expect(err.Error()).To(Equal("Not enough efivarfs space, requested 200 B and got 100 B"))
	})
	It("can be overridden by policy", func() {
		ctx := newCtx(100)
		ctx.AddFlag(hwcontext.FlagIgnoreEfivarsFreeSpace)
		Expect(ctx.EfivarsCheckFreeSpace(200)).To(Succeed())
	})
})
