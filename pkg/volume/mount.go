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
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
)

// MountScope holds a volume mounted for the lifetime of one operation.
// Release is idempotent and only unmounts what the scope itself mounted;
// volumes that were already mounted stay mounted.
type MountScope struct {
	logger   types.Logger
	fs       types.FS
	mounter  types.Mounter
	volume   *types.Volume
	target   string
	mounted  bool
	released bool
}

// NewMountScope mounts the volume unless it is mounted already. On success
// the volume's MountPoint is guaranteed to be populated.
func NewMountScope(logger types.Logger, fs types.FS, mounter types.Mounter, vol *types.Volume) (*MountScope, error) {
	scope := &MountScope{logger: logger, fs: fs, mounter: mounter, volume: vol}

	if vol.MountPoint != "" {
		scope.target = vol.MountPoint
		return scope, nil
	}

	if err := utils.MkdirAll(fs, constants.RunDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create mount base dir: %w", err)
	}
	target, err := utils.TempDir(fs, constants.RunDir, "esp-")
	if err != nil {
		return nil, fmt.Errorf("failed to create mount point: %w", err)
	}
	if err := mounter.Mount(vol.Path, target, vol.FilesystemType, []string{}); err != nil {
		_ = fs.RemoveAll(target)
		return nil, fmt.Errorf("failed to mount %s on %s: %w", vol.Path, target, err)
	}
	logger.Debugf("mounted %s on %s", vol.Path, target)

	scope.target = target
	scope.mounted = true
	vol.MountPoint = target
	return scope, nil
}

// MountPoint returns the directory the volume is reachable at.
func (s *MountScope) MountPoint() string {
	return s.target
}

// Release undoes the mount performed by NewMountScope. Calling it more
// than once is a no-op.
func (s *MountScope) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	if !s.mounted {
		return nil
	}

	var errs error
	if err := s.mounter.Unmount(s.target); err != nil {
		errs = multierror.Append(errs, err)
	} else {
		s.volume.MountPoint = ""
		if err := s.fs.RemoveAll(s.target); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		return fmt.Errorf("failed to release mount on %s: %w", s.target, errs)
	}
	s.logger.Debugf("released mount on %s", s.target)
	return nil
}
