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

package types

// PartitionKind classifies a partition by its GPT type GUID.
type PartitionKind string

const (
	// PartitionKindESP is an EFI System Partition
	PartitionKindESP = PartitionKind("esp")
	// PartitionKindBDP is a Basic Data Partition, sometimes used as a
	// fallback ESP-like location
	PartitionKindBDP = PartitionKind("bdp")
	// PartitionKindOther is anything else
	PartitionKindOther = PartitionKind("other")
)

// Volume describes a single block volume from one inventory snapshot.
// All fields except MountPoint are known without mounting.
type Volume struct {
	// ID is stable and unique within one inventory snapshot
	ID string
	// PartitionKind as derived from the GPT partition type GUID
	PartitionKind PartitionKind
	// PartitionUUID of the GPT entry, lower case
	PartitionUUID string
	// FilesystemType as probed, e.g. "vfat"
	FilesystemType string
	// SizeBytes of the partition
	SizeBytes uint64
	// Internal is true for non-removable media
	Internal bool
	// MountPoint is empty until the volume is mounted
	MountPoint string

	// Path of the device node, e.g. /dev/sda1
	Path string
	// Disk is the parent device node, e.g. /dev/sda
	Disk string
	// PartitionNumber is 1-indexed within the parent disk
	PartitionNumber uint32
	// StartLBA is the first logical block of the partition
	StartLBA uint64
	// SizeLBAs is the partition length in logical blocks
	SizeLBAs uint64
}

// BlockDevice is the per-device property set surfaced by the block-device
// mediator, used for full-disk-encryption detection and liveness probing.
type BlockDevice struct {
	// Device node, e.g. /dev/sda3
	Device string
	// IdType is the probed signature type, e.g. "vfat", "BitLocker" or "crypto_LUKS"
	IdType string
	// IdLabel is the probed filesystem label
	IdLabel string
}

// VolumeInventory enumerates block volumes without mounting them.
type VolumeInventory interface {
	// ListByKind returns all volumes with the given partition kind
	ListByKind(kind PartitionKind) ([]*Volume, error)
	// BlockDevices enumerates every block device on the system; it
	// doubles as the liveness probe for the underlying mediator
	BlockDevices() ([]*BlockDevice, error)
}
