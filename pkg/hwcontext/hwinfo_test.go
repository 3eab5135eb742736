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
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/hwcontext"
	"github.com/firmware-tools/hwcontext/pkg/hwids"
	"github.com/firmware-tools/hwcontext/pkg/mocks"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
)

// identityConfig is a full machine identity for the config backend.
func identityConfig() hwcontext.HwidConfig {
	return hwcontext.HwidConfig{
		hwids.KeyManufacturer:     "LENOVO",
		hwids.KeyFamily:           "ThinkPad X1 Carbon 6th",
		hwids.KeyProductName:      "20KGS23S00",
		hwids.KeyProductSku:       "LENOVO_MT_20KG",
		hwids.KeyBiosVendor:       "LENOVO",
		hwids.KeyBiosVersion:      "N23ET75W",
		hwids.KeyBiosMajorRelease: "1",
		hwids.KeyBiosMinorRelease: "50",
	}
}

// guidsFor computes the GUID set the config backend would produce.
func guidsFor(cfg hwcontext.HwidConfig) []string {
	h := hwids.New()
	Expect(h.ConfigSetup(cfg)).To(Succeed())
	Expect(h.Setup()).To(Succeed())
	return h.Guids()
}

var _ = Describe("Hardware identity", Label("hwcontext", "hwinfo"), func() {
	var fs types.FS
	var cleanup func()
	var inv *mocks.FakeInventory
	var quirks *hwcontext.QuirkStore
	var ctx *hwcontext.Context
	var err error

	BeforeEach(func() {
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{})
		Expect(err).Should(BeNil())
		inv = mocks.NewFakeInventory()
		quirks = hwcontext.NewQuirkStore()
		ctx = hwcontext.New(
			hwcontext.WithLogger(types.NewNullLogger()),
			hwcontext.WithFs(fs),
			hwcontext.WithInventory(inv),
			hwcontext.WithQuirks(quirks),
		)
	})
	AfterEach(func() {
		cleanup()
	})

	It("guards identity accessors before loading", func() {
		_, err := ctx.SmbiosString(hwids.KeyManufacturer)
		Expect(fwErr.IsInternal(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("hardware information has not been loaded"))
		_, err = ctx.HwidGuids()
		Expect(fwErr.IsInternal(err)).To(BeTrue())
		_, err = ctx.HasHwidGuid(constants.GUIDZero)
		Expect(fwErr.IsInternal(err)).To(BeTrue())
	})
	It("computes GUIDs from the config backend", func() {
		ctx.SetHwidConfig(identityConfig())
		Expect(ctx.LoadHwinfo(hwcontext.LoadConfig)).To(Succeed())

		value, err := ctx.SmbiosString(hwids.KeyManufacturer)
		Expect(err).To(BeNil())
		Expect(value).To(Equal("LENOVO"))

		guids, err := ctx.HwidGuids()
		Expect(err).To(BeNil())
		Expect(guids).To(Equal(guidsFor(identityConfig())))

		ok, err := ctx.HasHwidGuid(guids[0])
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
	})
	It("reads identity from the kernel DMI export", func() {
		Expect(utils.MkdirAll(fs, constants.SysfsDmiIDDir, 0755)).To(Succeed())
		for attr, value := range map[string]string{
			"sys_vendor":   "Dell Inc.\n",
			"product_name": "XPS 13 9380\n",
			"bios_release": "1.21\n",
		} {
			err := fs.WriteFile(filepath.Join(constants.SysfsDmiIDDir, attr), []byte(value), 0644)
			Expect(err).To(BeNil())
		}
		Expect(ctx.LoadHwinfo(hwcontext.LoadSmbios | hwcontext.LoadDmi)).To(Succeed())

		value, err := ctx.SmbiosString(hwids.KeyProductName)
		Expect(err).To(BeNil())
		Expect(value).To(Equal("XPS 13 9380"))
		value, err = ctx.SmbiosString(hwids.KeyBiosMajorRelease)
		Expect(err).To(BeNil())
		Expect(value).To(Equal("1"))
		value, err = ctx.SmbiosString(hwids.KeyBiosMinorRelease)
		Expect(err).To(BeNil())
		Expect(value).To(Equal("21"))
	})
	It("derives identity from the device tree", func() {
		dtb := mocks.DtbBytes(map[string][]byte{
			"model":      []byte("Raspberry Pi 4 Model B\x00"),
			"compatible": []byte("raspberrypi,4-model-b\x00brcm,bcm2711\x00"),
		})
		Expect(utils.MkdirAll(fs, constants.LocalStateDir, 0755)).To(Succeed())
		err := fs.WriteFile(filepath.Join(constants.LocalStateDir, "system.dtb"), dtb, 0644)
		Expect(err).To(BeNil())
		Expect(ctx.LoadHwinfo(hwcontext.LoadFdt)).To(Succeed())

		value, err := ctx.SmbiosString(hwids.KeyProductName)
		Expect(err).To(BeNil())
		Expect(value).To(Equal("Raspberry Pi 4 Model B"))
		value, err = ctx.SmbiosString(hwids.KeyManufacturer)
		Expect(err).To(BeNil())
		Expect(value).To(Equal("raspberrypi"))
	})
	It("tolerates backends that cannot run", func() {
		ctx.SetHwidConfig(identityConfig())
		Expect(ctx.LoadHwinfo(hwcontext.LoadAll)).To(Succeed())
		guids, err := ctx.HwidGuids()
		Expect(err).To(BeNil())
		Expect(guids).NotTo(BeEmpty())
	})
	It("only loads once", func() {
		ctx.SetHwidConfig(identityConfig())
		Expect(ctx.LoadHwinfo(hwcontext.LoadConfig)).To(Succeed())
		ctx.SetHwidConfig(hwcontext.HwidConfig{hwids.KeyManufacturer: "Other"})
		Expect(ctx.LoadHwinfo(hwcontext.LoadConfig)).To(Succeed())
		value, err := ctx.SmbiosString(hwids.KeyManufacturer)
		Expect(err).To(BeNil())
		Expect(value).To(Equal("LENOVO"))
	})
	It("attaches quirk flags for matching GUIDs", func() {
		guid := guidsFor(identityConfig())[0]
		quirks.Add(guid, hwcontext.QuirkKeyFlags, " no-esp , delayed-activation ")
		ctx.SetHwidConfig(identityConfig())
		Expect(ctx.LoadHwinfo(hwcontext.LoadConfig)).To(Succeed())

		Expect(ctx.HasHwidFlag("no-esp")).To(BeTrue())
		Expect(ctx.HasHwidFlag("delayed-activation")).To(BeTrue())
		Expect(ctx.HasHwidFlag("other")).To(BeFalse())
		Expect(ctx.HwidFlags()).To(Equal([]string{"delayed-activation", "no-esp"}))
	})
	It("flags BitLocker and snapd encrypted volumes", func() {
		inv.Devices = []*types.BlockDevice{
			{Device: "/dev/sda3", IdType: "BitLocker"},
			{Device: "/dev/sda4", IdType: "crypto_LUKS", IdLabel: "ubuntu-data-enc"},
			{Device: "/dev/sda5", IdType: "crypto_LUKS", IdLabel: "other"},
		}
		ctx.SetHwidConfig(identityConfig())
		Expect(ctx.LoadHwinfo(hwcontext.LoadConfig)).To(Succeed())
		Expect(ctx.HasFlag(hwcontext.FlagFdeBitlocker)).To(BeTrue())
		Expect(ctx.HasFlag(hwcontext.FlagFdeSnapd)).To(BeTrue())
	})
	It("registers the firmware attributes subsystem", func() {
		ctx.SetHwidConfig(identityConfig())
		Expect(ctx.LoadHwinfo(hwcontext.LoadConfig)).To(Succeed())
		Expect(ctx.PluginsForUdevSubsystem("firmware-attributes")).To(Equal([]string{"core"}))
		Expect(ctx.HasFlag(hwcontext.FlagLoadedHwinfo)).To(BeTrue())
	})
})

var _ = Describe("Device tree access", Label("hwcontext", "fdt"), func() {
	var fs types.FS
	var cleanup func()
	var ctx *hwcontext.Context
	var err error

	BeforeEach(func() {
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{})
		Expect(err).Should(BeNil())
		ctx = hwcontext.New(
			hwcontext.WithLogger(types.NewNullLogger()),
			hwcontext.WithFs(fs),
		)
	})
	AfterEach(func() {
		cleanup()
	})

	It("fails without any device tree source", func() {
		_, err := ctx.Fdt()
		Expect(fwErr.IsNotSupported(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("no device tree found"))
	})
	It("reads the kernel export", func() {
		dtb := mocks.DtbBytes(map[string][]byte{"model": []byte("kernel tree\x00")})
		Expect(utils.MkdirAll(fs, constants.SysfsFwDir, 0755)).To(Succeed())
		err := fs.WriteFile(filepath.Join(constants.SysfsFwDir, "fdt"), dtb, 0644)
		Expect(err).To(BeNil())
		img, err := ctx.Fdt()
		Expect(err).To(BeNil())
		Expect(img.Model()).To(Equal("kernel tree"))
	})
	It("prefers the state directory override", func() {
		kernel := mocks.DtbBytes(map[string][]byte{"model": []byte("kernel tree\x00")})
		override := mocks.DtbBytes(map[string][]byte{"model": []byte("fixed up tree\x00")})
		Expect(utils.MkdirAll(fs, constants.SysfsFwDir, 0755)).To(Succeed())
		Expect(utils.MkdirAll(fs, constants.LocalStateDir, 0755)).To(Succeed())
		Expect(fs.WriteFile(filepath.Join(constants.SysfsFwDir, "fdt"), kernel, 0644)).To(Succeed())
		Expect(fs.WriteFile(filepath.Join(constants.LocalStateDir, "system.dtb"), override, 0644)).To(Succeed())

		img, err := ctx.Fdt()
		Expect(err).To(BeNil())
		Expect(img.Model()).To(Equal("fixed up tree"))
	})
	It("caches the parsed tree", func() {
		dtb := mocks.DtbBytes(map[string][]byte{"model": []byte("kernel tree\x00")})
		path := filepath.Join(constants.SysfsFwDir, "fdt")
		Expect(utils.MkdirAll(fs, constants.SysfsFwDir, 0755)).To(Succeed())
		Expect(fs.WriteFile(path, dtb, 0644)).To(Succeed())
		first, err := ctx.Fdt()
		Expect(err).To(BeNil())

		Expect(fs.WriteFile(path, []byte("garbage"), 0444)).To(Succeed())
		second, err := ctx.Fdt()
		Expect(err).To(BeNil())
		Expect(second).To(BeIdenticalTo(first))
	})
})
