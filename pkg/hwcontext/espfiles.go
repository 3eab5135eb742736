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
	"path/filepath"
	"strings"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	"github.com/firmware-tools/hwcontext/pkg/devicepath"
	"github.com/firmware-tools/hwcontext/pkg/efivars"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/pefile"
	"github.com/firmware-tools/hwcontext/pkg/utils"
	"github.com/firmware-tools/hwcontext/pkg/volume"
)

// EspFileFlags selects which bootloader stages EspFiles collects.
type EspFileFlags uint32

const (
	// IncludeFirstStage collects the images the firmware loads directly
	IncludeFirstStage EspFileFlags = 1 << iota
	// IncludeSecondStage collects the loaders shim chain-loads
	IncludeSecondStage
	// IncludeRevocations collects SBAT revocation payloads next to shim
	IncludeRevocations
)

// EspFiles walks the efivars boot order and returns the PE images the boot
// chain references. Entries that cannot be resolved or parsed are skipped;
// only policy violations and unexpected I/O failures abort the walk.
func (c *Context) EspFiles(flags EspFileFlags) (images []*pefile.Image, err error) {
	entries, err := c.efivars.BootEntries()
	if err != nil {
		return nil, err
	}
	shimBasename := constants.UefiBasenameForArch("shim")
	grubBasename := constants.UefiBasenameForArch("grub")

	cleanup := utils.NewCleanStack()
	defer func() {
		if err = cleanup.Cleanup(err); err != nil {
			images = nil
		}
	}()

	for _, entry := range entries {
		entryImages, err := c.espFilesForEntry(cleanup, entry, flags, shimBasename, grubBasename)
		// stages collected before a tolerated failure are kept
		images = append(images, entryImages...)
		if err != nil {
			if fwErr.IsNotFound(err) || fwErr.IsInvalidFile(err) {
				c.logger.Debugf("ignoring boot entry %04X: %v", entry.Idx, err)
				continue
			}
			return nil, err
		}
	}
	return images, nil
}

func (c *Context) espFilesForEntry(cleanup *utils.CleanStack, entry *efivars.BootEntry,
	flags EspFileFlags, shimBasename, grubBasename string) ([]*pefile.Image, error) {
	if len(entry.DevicePath) == 0 {
		return nil, nil
	}
	hd := devicepath.FindHardDrive(entry.DevicePath)
	if hd == nil {
		return nil, nil
	}
	vol, err := c.VolumeByHardDrivePath(hd)
	if err != nil {
		return nil, err
	}

	if c.HasFlag(FlagInhibitVolumeMount) {
		return nil, fwErr.NotSupported("cannot mount volume by policy")
	}
	scope, err := volume.NewMountScope(c.logger, c.fs, c.mounter, vol)
	if err != nil {
		return nil, err
	}
	cleanup.Push(scope.Release)

	fp := devicepath.FindFilePath(entry.DevicePath)
	if fp == nil {
		return nil, nil
	}
	filename := filepath.Join(scope.MountPoint(), devicepath.FileName(*fp))

	var images []*pefile.Image
	if flags&IncludeFirstStage != 0 {
		img, err := c.loadEspImage(filename, entry.Idx)
		if err != nil {
			return images, err
		}
		if img != nil {
			images = append(images, img)
		}
	}

	// second-stage detection is textual, so a corrupted shim still lets
	// the chain-loaded images be collected
	if shimBasename == "" || !strings.HasSuffix(filename, shimBasename) {
		return images, nil
	}

	if flags&IncludeSecondStage != 0 {
		secondName := grubBasename
		if path, ok := entry.Metadata(efivars.MetadataPath); ok {
			secondName = path
		}
		if secondName != "" {
			second := strings.Replace(filename, shimBasename, secondName, 1)
			img, err := c.loadEspImage(second, entry.Idx)
			if err != nil {
				return images, err
			}
			if img != nil {
				images = append(images, img)
			}
		}
	}

	if flags&IncludeRevocations != 0 {
		revocations := strings.Replace(filename, shimBasename, constants.RevocationsBasename, 1)
		img, err := c.loadEspImage(revocations, entry.Idx)
		if err != nil {
			return images, err
		}
		if img != nil {
			images = append(images, img)
		}
	}
	return images, nil
}

// loadEspImage loads one PE image with tolerant classification: files that
// are not PE or structurally broken yield (nil, nil). A missing file is
// reported as NotFound so the caller can abort the rest of the chain.
func (c *Context) loadEspImage(filename string, idx uint16) (*pefile.Image, error) {
	img, err := pefile.Load(c.fs, filename)
	if err != nil {
		if fwErr.IsNotSupported(err) || fwErr.IsInvalidFile(err) {
			c.logger.Debugf("skipping %s: %v", filename, err)
			return nil, nil
		}
		return nil, err
	}
	img.SetIdx(idx)
	return img, nil
}
