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

package volume

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
)

// Inventory enumerates block volumes through lsblk, with partition geometry
// filled in from sysfs. It implements types.VolumeInventory.
type Inventory struct {
	logger types.Logger
	fs     types.FS
	runner types.Runner
}

func NewInventory(logger types.Logger, fs types.FS, runner types.Runner) *Inventory {
	return &Inventory{logger: logger, fs: fs, runner: runner}
}

// SyntheticESP builds the single test-mode volume rooted at the given
// directory. It reports as an already mounted vfat ESP with an all-zero
// partition UUID.
func SyntheticESP(path string) *types.Volume {
	return &types.Volume{
		ID:             path,
		PartitionKind:  types.PartitionKindESP,
		PartitionUUID:  constants.GUIDZero,
		FilesystemType: constants.VfatType,
		Internal:       true,
		MountPoint:     path,
	}
}

// jsonBool tolerates both the boolean and the legacy "0"/"1" string
// encodings lsblk has used for the RM column.
type jsonBool bool

func (b *jsonBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = jsonBool(t)
	case string:
		*b = jsonBool(t == "1" || t == "true")
	default:
		return fmt.Errorf("unexpected type for boolean field: %v", v)
	}
	return nil
}

type jBlockDevice struct {
	Name       string   `json:"name,omitempty"`
	Path       string   `json:"path,omitempty"`
	Disk       string   `json:"pkname,omitempty"`
	Size       uint64   `json:"size,omitempty"`
	Type       string   `json:"type,omitempty"`
	FS         string   `json:"fstype,omitempty"`
	MountPoint string   `json:"mountpoint,omitempty"`
	PartType   string   `json:"parttype,omitempty"`
	PartUUID   string   `json:"partuuid,omitempty"`
	Removable  jsonBool `json:"rm,omitempty"`
}

func unmarshalLsblk(lsblkOut []byte) ([]*jBlockDevice, error) {
	var objmap map[string]json.RawMessage
	if err := json.Unmarshal(lsblkOut, &objmap); err != nil {
		return nil, err
	}
	raw, ok := objmap["blockdevices"]
	if !ok {
		return nil, errors.New("invalid json object, no 'blockdevices' key found")
	}
	var devices []*jBlockDevice
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func partitionKindForType(partType string) types.PartitionKind {
	switch strings.ToLower(partType) {
	case constants.GUIDTypeESP:
		return types.PartitionKindESP
	case constants.GUIDTypeBDP:
		return types.PartitionKindBDP
	default:
		return types.PartitionKindOther
	}
}

// fillGeometry reads partition number, start and length from sysfs. The
// start and size files are always in 512-byte sectors.
func (i Inventory) fillGeometry(vol *types.Volume) {
	base := filepath.Join(constants.SysfsBlockDir, filepath.Base(vol.Path))
	if numStr, err := utils.ReadFileTrimmed(i.fs, filepath.Join(base, "partition")); err == nil {
		if num, err := strconv.ParseUint(numStr, 10, 32); err == nil {
			vol.PartitionNumber = uint32(num)
		}
	}
	if startStr, err := utils.ReadFileTrimmed(i.fs, filepath.Join(base, "start")); err == nil {
		if start, err := strconv.ParseUint(startStr, 10, 64); err == nil {
			vol.StartLBA = start
		}
	}
	if sizeStr, err := utils.ReadFileTrimmed(i.fs, filepath.Join(base, "size")); err == nil {
		if size, err := strconv.ParseUint(sizeStr, 10, 64); err == nil {
			vol.SizeLBAs = size
		}
	}
}

func (i Inventory) listAll() ([]*types.Volume, error) {
	out, err := i.runner.Run("lsblk", "-p", "-b", "-J", "-o",
		"NAME,PATH,PKNAME,SIZE,TYPE,FSTYPE,MOUNTPOINT,PARTTYPE,PARTUUID,RM")
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate block devices: %w", err)
	}
	devices, err := unmarshalLsblk(out)
	if err != nil {
		return nil, err
	}

	var volumes []*types.Volume
	for _, dev := range devices {
		if dev.Type != "part" {
			continue
		}
		vol := &types.Volume{
			ID:             dev.Path,
			PartitionKind:  partitionKindForType(dev.PartType),
			PartitionUUID:  strings.ToLower(dev.PartUUID),
			FilesystemType: dev.FS,
			SizeBytes:      dev.Size,
			Internal:       !bool(dev.Removable),
			MountPoint:     dev.MountPoint,
			Path:           dev.Path,
			Disk:           dev.Disk,
		}
		i.fillGeometry(vol)
		volumes = append(volumes, vol)
	}
	return volumes, nil
}

// ListByKind returns all volumes carrying partitions of the given kind.
func (i Inventory) ListByKind(kind types.PartitionKind) ([]*types.Volume, error) {
	all, err := i.listAll()
	if err != nil {
		return nil, err
	}
	var volumes []*types.Volume
	for _, vol := range all {
		if vol.PartitionKind == kind {
			volumes = append(volumes, vol)
		}
	}
	if len(volumes) == 0 {
		return nil, fmt.Errorf("no volumes of kind %s found", kind)
	}
	return volumes, nil
}

// BlockDevices lists every partition known to ghw together with its probed
// signature type and label. It is also the liveness probe used to tell a
// broken block layer apart from an empty one.
func (i Inventory) BlockDevices() ([]*types.BlockDevice, error) {
	blockInfo, err := block.New(ghw.WithDisableTools(), ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	var devices []*types.BlockDevice
	for _, disk := range blockInfo.Disks {
		for _, part := range disk.Partitions {
			devices = append(devices, &types.BlockDevice{
				Device:  filepath.Join("/dev", part.Name),
				IdType:  part.Type,
				IdLabel: part.FilesystemLabel,
			})
		}
	}
	return devices, nil
}
