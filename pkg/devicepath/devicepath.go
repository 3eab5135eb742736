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

// Package devicepath maps between partition volumes and EFI device path
// nodes, so boot entries pointing at a drive can be resolved back to the
// block device they live on.
package devicepath

import (
	"bytes"
	"fmt"
	"strings"

	efi "github.com/canonical/go-efilib"

	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/types"
)

// FromVolume builds the hard drive device path node describing a GPT
// partition volume. The volume must carry its partition UUID and geometry.
func FromVolume(vol *types.Volume) (*efi.HardDriveDevicePathNode, error) {
	if vol.PartitionUUID == "" {
		return nil, fwErr.NotSupported("volume %s has no partition UUID", vol.Path)
	}
	if vol.PartitionNumber == 0 || vol.SizeLBAs == 0 {
		return nil, fwErr.NotSupported("volume %s has no partition geometry", vol.Path)
	}
	guid, err := efi.DecodeGUIDString(vol.PartitionUUID)
	if err != nil {
		return nil, fwErr.NewFromError(fwErr.KindInvalidFile,
			fmt.Errorf("invalid partition UUID %q: %w", vol.PartitionUUID, err))
	}
	return &efi.HardDriveDevicePathNode{
		PartitionNumber: vol.PartitionNumber,
		PartitionStart:  vol.StartLBA,
		PartitionSize:   vol.SizeLBAs,
		Signature:       efi.GUIDHardDriveSignature(guid),
		MBRType:         efi.GPT,
	}, nil
}

// Equal reports whether two hard drive nodes address the same partition.
func Equal(a, b *efi.HardDriveDevicePathNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.PartitionNumber != b.PartitionNumber ||
		a.PartitionStart != b.PartitionStart ||
		a.PartitionSize != b.PartitionSize {
		return false
	}
	if (a.Signature == nil) != (b.Signature == nil) {
		return false
	}
	if a.Signature == nil {
		return true
	}
	return a.Signature.Type() == b.Signature.Type() &&
		a.Signature.Data() == b.Signature.Data()
}

// Decode parses a binary device path list.
func Decode(data []byte) (efi.DevicePath, error) {
	dp, err := efi.ReadDevicePath(bytes.NewReader(data))
	if err != nil {
		return nil, fwErr.NewFromError(fwErr.KindInvalidFile,
			fmt.Errorf("cannot parse device path: %w", err))
	}
	return dp, nil
}

// FindHardDrive returns the first hard drive node of a device path, or nil.
func FindHardDrive(dp efi.DevicePath) *efi.HardDriveDevicePathNode {
	for _, node := range dp {
		if hd, ok := node.(*efi.HardDriveDevicePathNode); ok {
			return hd
		}
	}
	return nil
}

// FindFilePath returns the first file path node of a device path, or nil.
func FindFilePath(dp efi.DevicePath) *efi.FilePathDevicePathNode {
	for _, node := range dp {
		if fp, ok := node.(efi.FilePathDevicePathNode); ok {
			return &fp
		}
	}
	return nil
}

// FileName converts a file path node to a slash separated path relative to
// the volume root. EFI paths use backslashes and may carry a leading one.
func FileName(fp efi.FilePathDevicePathNode) string {
	name := strings.ReplaceAll(string(fp), "\\", "/")
	name = strings.TrimRight(name, "\x00")
	return strings.TrimPrefix(name, "/")
}
