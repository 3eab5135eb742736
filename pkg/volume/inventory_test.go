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

package volume_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	"github.com/firmware-tools/hwcontext/pkg/mocks"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
	"github.com/firmware-tools/hwcontext/pkg/volume"
)

const lsblkOut = `{
  "blockdevices": [
    {"name": "sda", "path": "/dev/sda", "size": 256060514304, "type": "disk", "rm": false},
    {"name": "sda1", "path": "/dev/sda1", "pkname": "/dev/sda", "size": 536870912,
     "type": "part", "fstype": "vfat", "parttype": "c12a7328-f81f-11d2-ba4b-00a0c93ec93b",
     "partuuid": "8C64F5B3-A899-4F35-9D27-92F2A6A6D2F8", "rm": false},
    {"name": "sda2", "path": "/dev/sda2", "pkname": "/dev/sda", "size": 1073741824,
     "type": "part", "fstype": "vfat", "parttype": "ebd0a0a2-b9e5-4433-87c0-68b6b72699c7",
     "partuuid": "0f5129f9-6bbb-4954-a4a6-ab3a14b3e72e", "rm": false},
    {"name": "sda3", "path": "/dev/sda3", "pkname": "/dev/sda", "size": 254343954432,
     "type": "part", "fstype": "ext4", "parttype": "0fc63daf-8483-4772-8e79-3d69d8477de4",
     "partuuid": "c02acb2f-9da2-4a7b-83b0-44a289f9a4a7", "mountpoint": "/", "rm": false}
  ]
}`

var _ = Describe("Inventory", Label("volume", "inventory"), func() {
	var fs types.FS
	var cleanup func()
	var runner *mocks.FakeRunner
	var inv *volume.Inventory
	var err error

	BeforeEach(func() {
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{})
		Expect(err).Should(BeNil())
		runner = mocks.NewFakeRunner()
		runner.ReturnValue = []byte(lsblkOut)
		inv = volume.NewInventory(types.NewNullLogger(), fs, runner)
	})
	AfterEach(func() {
		cleanup()
	})

	It("lists ESP partitions only", func() {
		vols, err := inv.ListByKind(types.PartitionKindESP)
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))
		Expect(vols[0].Path).To(Equal("/dev/sda1"))
		Expect(vols[0].FilesystemType).To(Equal("vfat"))
		Expect(vols[0].SizeBytes).To(Equal(uint64(536870912)))
		Expect(vols[0].Internal).To(BeTrue())
		Expect(runner.CmdsMatch([][]string{{"lsblk"}})).To(BeNil())
	})
	It("lists BDP partitions only", func() {
		vols, err := inv.ListByKind(types.PartitionKindBDP)
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))
		Expect(vols[0].Path).To(Equal("/dev/sda2"))
	})
	It("lower-cases the partition UUID", func() {
		vols, err := inv.ListByKind(types.PartitionKindESP)
		Expect(err).To(BeNil())
		Expect(vols[0].PartitionUUID).To(Equal("8c64f5b3-a899-4f35-9d27-92f2a6a6d2f8"))
	})
	It("keeps the mount point reported by lsblk", func() {
		vols, err := inv.ListByKind(types.PartitionKindOther)
		Expect(err).To(BeNil())
		Expect(vols).To(HaveLen(1))
		Expect(vols[0].MountPoint).To(Equal("/"))
	})
	It("fails when no partition of the kind exists", func() {
		runner.ReturnValue = []byte(`{"blockdevices": []}`)
		_, err := inv.ListByKind(types.PartitionKindESP)
		Expect(err).To(HaveOccurred())
	})
	It("propagates lsblk failures", func() {
		runner.ReturnError = errors.New("lsblk crashed")
		_, err := inv.ListByKind(types.PartitionKindESP)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("lsblk crashed"))
	})
	It("rejects output without a blockdevices key", func() {
		runner.ReturnValue = []byte(`{"disks": []}`)
		_, err := inv.ListByKind(types.PartitionKindESP)
		Expect(err).To(HaveOccurred())
	})
	It("reads partition geometry from sysfs", func() {
		base := "/sys/class/block/sda1"
		Expect(utils.MkdirAll(fs, base, 0755)).To(Succeed())
		Expect(fs.WriteFile(base+"/partition", []byte("1\n"), 0644)).To(Succeed())
		Expect(fs.WriteFile(base+"/start", []byte("2048\n"), 0644)).To(Succeed())
		Expect(fs.WriteFile(base+"/size", []byte("1048576\n"), 0644)).To(Succeed())

		vols, err := inv.ListByKind(types.PartitionKindESP)
		Expect(err).To(BeNil())
		Expect(vols[0].PartitionNumber).To(Equal(uint32(1)))
		Expect(vols[0].StartLBA).To(Equal(uint64(2048)))
		Expect(vols[0].SizeLBAs).To(Equal(uint64(1048576)))
	})
	It("tolerates missing sysfs geometry", func() {
		vols, err := inv.ListByKind(types.PartitionKindESP)
		Expect(err).To(BeNil())
		Expect(vols[0].PartitionNumber).To(Equal(uint32(0)))
	})
})

var _ = Describe("SyntheticESP", Label("volume"), func() {
	It("builds a mounted vfat volume with an all-zero UUID", func() {
		vol := volume.SyntheticESP("/tmp/esp")
		Expect(vol.PartitionKind).To(Equal(types.PartitionKindESP))
		Expect(vol.PartitionUUID).To(Equal(constants.GUIDZero))
		Expect(vol.FilesystemType).To(Equal("vfat"))
		Expect(vol.MountPoint).To(Equal("/tmp/esp"))
		Expect(vol.Internal).To(BeTrue())
	})
})
