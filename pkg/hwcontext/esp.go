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

package hwcontext

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	efi "github.com/canonical/go-efilib"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	"github.com/firmware-tools/hwcontext/pkg/devicepath"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
	"github.com/firmware-tools/hwcontext/pkg/volume"
)

// AddEspVolume registers an ESP candidate. Volumes of other partition
// kinds and duplicates by volume ID are dropped with a debug log.
func (c *Context) AddEspVolume(vol *types.Volume) {
	if vol.PartitionKind != types.PartitionKindESP && vol.PartitionKind != types.PartitionKindBDP {
		c.logger.Debugf("not adding %s volume %s", vol.PartitionKind, vol.ID)
		return
	}
	for _, existing := range c.espVolumes {
		if existing.ID == vol.ID {
			c.logger.Debugf("not adding duplicate volume %s", vol.ID)
			return
		}
	}
	c.espVolumes = append(c.espVolumes, vol)
}

// EspVolumes returns the registered ESP candidates, populating the
// registry on first use. Results are cached for the context lifetime.
func (c *Context) EspVolumes() ([]*types.Volume, error) {
	if c.espPopulated {
		return c.espVolumes, nil
	}

	if path := os.Getenv(constants.EnvEspPath); path != "" {
		c.AddEspVolume(volume.SyntheticESP(path))
		c.espPopulated = true
		return c.espVolumes, nil
	}

	if vols, err := c.inventory.ListByKind(types.PartitionKindESP); err != nil {
		c.logger.Debugf("no ESP volumes found: %v", err)
	} else {
		for _, vol := range vols {
			if vol.FilesystemType == constants.VfatType {
				c.AddEspVolume(vol)
			}
		}
	}
	if vols, err := c.inventory.ListByKind(types.PartitionKindBDP); err != nil {
		c.logger.Debugf("no BDP volumes found: %v", err)
	} else {
		for _, vol := range vols {
			if vol.FilesystemType == constants.VfatType && vol.Internal {
				c.AddEspVolume(vol)
			}
		}
	}

	if len(c.espVolumes) == 0 {
		// distinguish a dead block-device mediator from a machine
		// that genuinely has no ESP
		if _, err := c.inventory.BlockDevices(); err != nil {
			return nil, err
		}
		return nil, fwErr.NotFound("No ESP or BDP found")
	}
	c.espPopulated = true
	return c.espVolumes, nil
}

// isEsp reports whether a mounted volume carries an EFI directory tree.
func (c *Context) isEsp(vol *types.Volume) bool {
	if vol.MountPoint == "" {
		return false
	}
	for _, name := range []string{"EFI", "efi"} {
		if ok, _ := utils.IsDir(c.fs, filepath.Join(vol.MountPoint, name)); ok {
			return true
		}
	}
	return false
}

// isEspLinux reports whether a mounted volume holds a Linux bootloader,
// recognised by basenames like shimx64.efi or grubx64.efi. It scans the
// mount point itself plus one level below EFI/ vendor directories.
func (c *Context) isEspLinux(vol *types.Volume) (bool, error) {
	if vol.MountPoint == "" {
		return false, fwErr.NotFound("volume %s is not mounted", vol.ID)
	}
	dirs := []string{vol.MountPoint}
	for _, name := range []string{"EFI", "efi"} {
		vendors, err := c.fs.ReadDir(filepath.Join(vol.MountPoint, name))
		if err != nil {
			continue
		}
		for _, vendor := range vendors {
			if vendor.IsDir() {
				dirs = append(dirs, filepath.Join(vol.MountPoint, name, vendor.Name()))
			}
		}
	}
	for _, dir := range dirs {
		entries, err := c.fs.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return false, fwErr.NotFound("cannot list %s", dir)
			}
			return false, err
		}
		for _, entry := range entries {
			if isLinuxBootloaderName(entry.Name()) {
				return true, nil
			}
		}
	}
	return false, nil
}

func isLinuxBootloaderName(name string) bool {
	name = strings.ToLower(name)
	if !strings.HasSuffix(name, ".efi") {
		return false
	}
	for _, prefix := range constants.LinuxBootloaderPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// espScore ranks a mounted candidate: partition size in MiB, plus a large
// bonus for a true ESP over a basic data partition, plus a smaller bonus
// when a Linux bootloader is present.
func (c *Context) espScore(vol *types.Volume) uint32 {
	score := uint32(vol.SizeBytes / (1024 * 1024))
	if vol.PartitionKind == types.PartitionKindESP {
		score += constants.ScoreKindESP
	}
	if linux, err := c.isEspLinux(vol); err == nil && linux {
		score += constants.ScoreLinuxEsp
	}
	return score
}

// DefaultEsp elects the ESP firmware updates should be written to. Any
// volume mounted during the election is unmounted again before returning.
func (c *Context) DefaultEsp() (vol *types.Volume, err error) {
	if c.HasFlag(FlagInhibitVolumeMount) {
		return nil, fwErr.NotSupported("cannot mount volume by policy")
	}
	candidates, err := c.EspVolumes()
	if err != nil {
		return nil, err
	}

	cleanup := utils.NewCleanStack()
	defer func() {
		if err = cleanup.Cleanup(err); err != nil {
			vol = nil
		}
	}()

	// a single candidate is trusted without classification
	if len(candidates) == 1 {
		vol := candidates[0]
		scope, err := volume.NewMountScope(c.logger, c.fs, c.mounter, vol)
		if err != nil {
			return nil, err
		}
		cleanup.Push(scope.Release)
		if c.espLocation != "" && c.espLocation != scope.MountPoint() {
			return nil, fwErr.NotSupported("user specified ESP %s not found", c.espLocation)
		}
		return vol, nil
	}

	type scored struct {
		vol   *types.Volume
		score uint32
	}
	var survivors []scored
	for _, vol := range candidates {
		scope, err := volume.NewMountScope(c.logger, c.fs, c.mounter, vol)
		if err != nil {
			c.logger.Warnf("failed to mount ESP candidate %s: %v", vol.Path, err)
			continue
		}
		cleanup.Push(scope.Release)
		if c.espLocation != "" && c.espLocation != scope.MountPoint() {
			continue
		}
		if !c.isEsp(vol) {
			continue
		}
		survivors = append(survivors, scored{vol: vol, score: c.espScore(vol)})
	}
	if len(survivors) == 0 {
		return nil, fwErr.NotSupported("no EFI system partition found")
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].score > survivors[j].score
	})
	return survivors[0].vol, nil
}

// VolumeByHardDrivePath resolves a hard drive device path node back to a
// registered ESP candidate.
func (c *Context) VolumeByHardDrivePath(node *efi.HardDriveDevicePathNode) (*types.Volume, error) {
	candidates, err := c.EspVolumes()
	if err != nil {
		return nil, err
	}
	for _, vol := range candidates {
		volNode, err := devicepath.FromVolume(vol)
		if err != nil {
			c.logger.Debugf("no device path for volume %s: %v", vol.ID, err)
			continue
		}
		if devicepath.Equal(node, volNode) {
			return vol, nil
		}
	}
	return nil, fwErr.NotFound("could not find EFI device path %s", node)
}
