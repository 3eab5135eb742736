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

package mocks

import (
	"github.com/firmware-tools/hwcontext/pkg/types"
)

var _ types.VolumeInventory = (*FakeInventory)(nil)

// FakeInventory is an in-memory volume inventory for tests with per-call
// error injection.
type FakeInventory struct {
	Volumes      []*types.Volume
	Devices      []*types.BlockDevice
	ListError    error
	DevicesError error
}

func NewFakeInventory(volumes ...*types.Volume) *FakeInventory {
	return &FakeInventory{Volumes: volumes}
}

func (i *FakeInventory) ListByKind(kind types.PartitionKind) ([]*types.Volume, error) {
	if i.ListError != nil {
		return nil, i.ListError
	}
	var out []*types.Volume
	for _, vol := range i.Volumes {
		if vol.PartitionKind == kind {
			out = append(out, vol)
		}
	}
	return out, nil
}

func (i *FakeInventory) BlockDevices() ([]*types.BlockDevice, error) {
	if i.DevicesError != nil {
		return nil, i.DevicesError
	}
	return i.Devices, nil
}
