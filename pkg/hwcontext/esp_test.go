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
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	"github.com/firmware-tools/hwcontext/pkg/devicepath"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/hwcontext"
	"github.com/firmware-tools/hwcontext/pkg/mocks"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
)

func espVolume() *types.Volume {
	return &types.Volume{
		ID:              "/dev/sda1",
		Path:            "/dev/sda1",
		Disk:            "/dev/sda",
		PartitionKind:   types.PartitionKindESP,
		PartitionUUID:   "8c64f5b3-a899-4f35-9d27-92f2a6a6d2f8",
		FilesystemType:  constants.VfatType,
		SizeBytes:       256 * 1024 * 1024,
		Internal:        true,
		PartitionNumber: 1,
		StartLBA:        2048,
		SizeLBAs:        524288,
	}
}

func bdpVolume() *types.Volume {
	return &types.Volume{
		ID:              "/dev/sda2",
		Path:            "/dev/sda2",
		Disk:            "/dev/sda",
		PartitionKind:   types.PartitionKindBDP,
		PartitionUUID:   "0f5129f9-6bbb-4954-a4a6-ab3a14b3e72e",
		FilesystemType:  constants.VfatType,
		SizeBytes:       1024 * 1024 * 1024,
		Internal:        true,
		PartitionNumber: 2,
		StartLBA:        526336,
		SizeLBAs:        2097152,
	}
}

var _ = Describe("ESP registry", Label("hwcontext", "esp"), func() {
	var fs types.FS
	var cleanup func()
	var inv *mocks.FakeInventory
	var mounter *mocks.FakeMounter
	var err error

	newCtx := func() *hwcontext.Context {
		return hwcontext.New(
			hwcontext.WithLogger(types.NewNullLogger()),
			hwcontext.WithFs(fs),
			hwcontext.WithMounter(mounter),
			hwcontext.WithInventory(inv),
		)
	}

	BeforeEach(func() {
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{})
		Expect(err).Should(BeNil())
		inv = mocks.NewFakeInventory()
		mounter = mocks.NewFakeMounter()
	})
	AfterEach(func() {
		cleanup()
	})

	It("admits vfat ESP and internal vfat BDP volumes only", func() {
		inv.Volumes = []*types.Volume{
			espVolume(),
			{ID: "/dev/sda5", PartitionKind: types.PartitionKindESP, FilesystemType: "ext4"},
			bdpVolume(),
			{ID: "/dev/sdb1", PartitionKind: types.PartitionKindBDP, FilesystemType: constants.VfatType, Internal: false},
		}
		vols, err := newCtx().EspVolumes()
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(2))
		Expect(vols[0].ID).To(Equal("/dev/sda1"))
		Expect(vols[1].ID).To(Equal("/dev/sda2"))
	})
	It("rejects volumes of other partition kinds", func() {
		ctx := newCtx()
		ctx.AddEspVolume(&types.Volume{ID: "/dev/sda3", PartitionKind: types.PartitionKindOther})
		inv.Volumes = []*types.Volume{espVolume()}
		vols, err := ctx.EspVolumes()
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))
		Expect(vols[0].ID).To(Equal("/dev/sda1"))
	})
	It("drops duplicate registrations by volume ID", func() {
		ctx := newCtx()
		ctx.AddEspVolume(espVolume())
		ctx.AddEspVolume(espVolume())
		inv.Volumes = []*types.Volume{espVolume()}
		vols, err := ctx.EspVolumes()
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))
	})
	It("caches the registry across calls", func() {
		ctx := newCtx()
		inv.Volumes = []*types.Volume{espVolume()}
		vols, err := ctx.EspVolumes()
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))

		inv.Volumes = append(inv.Volumes, bdpVolume())
		vols, err = ctx.EspVolumes()
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))
	})
	It("substitutes a synthetic ESP from the environment", func() {
		GinkgoT().Setenv(constants.EnvEspPath, "/testesp")
		vols, err := newCtx().EspVolumes()
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))
		Expect(vols[0].MountPoint).To(Equal("/testesp"))
		Expect(vols[0].PartitionUUID).To(Equal(constants.GUIDZero))
		Expect(vols[0].PartitionKind).To(Equal(types.PartitionKindESP))
	})
	It("reports a missing ESP distinctly from a dead mediator", func() {
		_, err := newCtx().EspVolumes()
		Expect(fwErr.IsNotFound(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("No ESP or BDP found"))

		inv.DevicesError = errors.New("udisks is not running")
		_, err = newCtx().EspVolumes()
		Expect(err.Error()).To(ContainSubstring("udisks is not running"))
		Expect(fwErr.IsNotFound(err)).To(BeFalse())
	})
})

var _ = Describe("Default ESP election", Label("hwcontext", "esp"), func() {
	var fs types.FS
	var cleanup func()
	var inv *mocks.FakeInventory
	var mounter *mocks.FakeMounter
	var ctx *hwcontext.Context
	var err error

	BeforeEach(func() {
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{})
		Expect(err).Should(BeNil())
		inv = mocks.NewFakeInventory()
		mounter = mocks.NewFakeMounter()
		ctx = hwcontext.New(
			hwcontext.WithLogger(types.NewNullLogger()),
			hwcontext.WithFs(fs),
			hwcontext.WithMounter(mounter),
			hwcontext.WithInventory(inv),
		)
	})
	AfterEach(func() {
		cleanup()
	})

	mkEfiDir := func(mountpoint string, files ...string) {
		Expect(utils.MkdirAll(fs, filepath.Join(mountpoint, "EFI", "ubuntu"), 0755)).To(Succeed())
		for _, name := range files {
			err := fs.WriteFile(filepath.Join(mountpoint, "EFI", "ubuntu", name), []byte{}, 0644)
			Expect(err).To(BeNil())
		}
	}

	It("refuses to elect while volume mounts are inhibited", func() {
		inv.Volumes = []*types.Volume{espVolume()}
		ctx.AddFlag(hwcontext.FlagInhibitVolumeMount)
		_, err := ctx.DefaultEsp()
		Expect(fwErr.IsNotSupported(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("cannot mount volume by policy"))
	})
	It("trusts a single candidate without classification", func() {
		vol := espVolume()
		inv.Volumes = []*types.Volume{vol}
		elected, err := ctx.DefaultEsp()
		Expect(err).To(BeNil())
		Expect(elected.ID).To(Equal("/dev/sda1"))
		// the election mount was dropped again
		Expect(elected.MountPoint).To(BeEmpty())
		mnts, _ := mounter.List()
		Expect(mnts).To(BeEmpty())
	})
	It("returns no volume when the election mount cannot be released", func() {
		vol := espVolume()
		inv.Volumes = []*types.Volume{vol}
		mounter.ErrorOnUnmount = true

		elected, err := ctx.DefaultEsp()
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("unmount error"))
		Expect(elected).To(BeNil())
	})
	It("rejects a user ESP path matching no candidate", func() {
		vol := espVolume()
		vol.MountPoint = "/boot/efi"
		inv.Volumes = []*types.Volume{vol}
		ctx.SetEspLocation("/somewhere/else")
		_, err := ctx.DefaultEsp()
		Expect(fwErr.IsNotSupported(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("user specified ESP /somewhere/else not found"))
	})
	It("prefers a Linux ESP over a larger basic data partition", func() {
		esp := espVolume()
		esp.MountPoint = "/mnt/esp1"
		mkEfiDir("/mnt/esp1", "shimx64.efi", "grubx64.efi")
		bdp := bdpVolume()
		bdp.MountPoint = "/mnt/esp2"
		mkEfiDir("/mnt/esp2")
		inv.Volumes = []*types.Volume{esp, bdp}

		elected, err := ctx.DefaultEsp()
		Expect(err).To(BeNil())
		Expect(elected.ID).To(Equal("/dev/sda1"))
	})
	It("honours the user ESP path between several candidates", func() {
		esp := espVolume()
		esp.MountPoint = "/mnt/esp1"
		mkEfiDir("/mnt/esp1", "shimx64.efi")
		bdp := bdpVolume()
		bdp.MountPoint = "/mnt/esp2"
		mkEfiDir("/mnt/esp2")
		inv.Volumes = []*types.Volume{esp, bdp}
		ctx.SetEspLocation("/mnt/esp2")

		elected, err := ctx.DefaultEsp()
		Expect(err).To(BeNil())
		Expect(elected.ID).To(Equal("/dev/sda2"))
	})
	It("skips candidates that fail to mount", func() {
		esp := espVolume()
		bdp := bdpVolume()
		bdp.MountPoint = "/mnt/esp2"
		mkEfiDir("/mnt/esp2")
		inv.Volumes = []*types.Volume{esp, bdp}
		mounter.ErrorOnMount = true

		elected, err := ctx.DefaultEsp()
		Expect(err).To(BeNil())
		Expect(elected.ID).To(Equal("/dev/sda2"))
	})
	It("fails when no candidate carries an EFI directory", func() {
		esp := espVolume()
		esp.MountPoint = "/mnt/esp1"
		bdp := bdpVolume()
		bdp.MountPoint = "/mnt/esp2"
		Expect(utils.MkdirAll(fs, "/mnt/esp1", 0755)).To(Succeed())
		Expect(utils.MkdirAll(fs, "/mnt/esp2", 0755)).To(Succeed())
		inv.Volumes = []*types.Volume{esp, bdp}

		_, err := ctx.DefaultEsp()
		Expect(fwErr.IsNotSupported(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("no EFI system partition found"))
	})
})

var _ = Describe("Device path resolution", Label("hwcontext", "esp"), func() {
	var ctx *hwcontext.Context
	var inv *mocks.FakeInventory

	BeforeEach(func() {
		inv = mocks.NewFakeInventory(espVolume(), bdpVolume())
		ctx = hwcontext.New(
			hwcontext.WithLogger(types.NewNullLogger()),
			hwcontext.WithInventory(inv),
		)
	})

	It("round-trips a volume through its hard drive node", func() {
		node, err := devicepath.FromVolume(bdpVolume())
		Expect(err).To(BeNil())
		vol, err := ctx.VolumeByHardDrivePath(node)
		Expect(err).To(BeNil())
		Expect(vol.ID).To(Equal("/dev/sda2"))
	})
	It("fails for a node matching no volume", func() {
		other := espVolume()
		other.PartitionUUID = "11111111-2222-3333-4444-555555555555"
		node, err := devicepath.FromVolume(other)
		Expect(err).To(BeNil())
		_, err = ctx.VolumeByHardDrivePath(node)
		Expect(fwErr.IsNotFound(err)).To(BeTrue())
	})
})
