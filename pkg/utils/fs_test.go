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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
)

var _ = Describe("FS helpers", Label("utils", "fs"), func() {
	var fs types.FS
	var cleanup func()
	var err error

	BeforeEach(func() {
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{})
		Expect(err).Should(BeNil())
	})
	AfterEach(func() {
		cleanup()
	})

	Describe("Exists and IsDir", func() {
		It("distinguishes files, directories and nothing", func() {
			Expect(utils.MkdirAll(fs, "/some/dir", 0755)).To(Succeed())
			Expect(fs.WriteFile("/some/dir/file", []byte("x"), 0644)).To(Succeed())

			ok, err := utils.Exists(fs, "/some/dir/file")
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
			ok, err = utils.Exists(fs, "/some/missing")
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())

			ok, err = utils.IsDir(fs, "/some/dir")
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
			ok, err = utils.IsDir(fs, "/some/dir/file")
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("MkdirAll", func() {
		It("creates nested directories and tolerates existing ones", func() {
			Expect(utils.MkdirAll(fs, "/a/b/c", 0755)).To(Succeed())
			Expect(utils.MkdirAll(fs, "/a/b/c", 0755)).To(Succeed())
			ok, err := utils.IsDir(fs, "/a/b/c")
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("TempDir", func() {
		It("creates a predictable directory on a test filesystem", func() {
			dir, err := utils.TempDir(fs, "/run/hwcontext", "esp-")
			Expect(err).To(BeNil())
			Expect(dir).To(Equal("/run/hwcontext/esp-"))
			ok, err := utils.IsDir(fs, dir)
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("ReadFileTrimmed", func() {
		It("strips surrounding whitespace", func() {
			Expect(fs.WriteFile("/value", []byte(" LENOVO\n"), 0644)).To(Succeed())
			value, err := utils.ReadFileTrimmed(fs, "/value")
			Expect(err).To(BeNil())
			Expect(value).To(Equal("LENOVO"))
		})
		It("propagates missing files", func() {
			_, err := utils.ReadFileTrimmed(fs, "/missing")
			Expect(err).NotTo(BeNil())
		})
	})
})
