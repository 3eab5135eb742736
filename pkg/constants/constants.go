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

package constants

import (
	"runtime"
)

const (
	// EnvEspPath substitutes a single synthetic ESP rooted at this path,
	// used by the test suite
	EnvEspPath = "FWUPD_UEFI_ESP_PATH"
	// EnvEfivars selects the efivars provider; "dummy" installs the
	// in-memory store
	EnvEfivars = "FWUPD_EFIVARS"

	// GPT partition type GUIDs, lower case
	GUIDTypeESP = "c12a7328-f81f-11d2-ba4b-00a0c93ec93b"
	GUIDTypeBDP = "ebd0a0a2-b9e5-4433-87c0-68b6b72699c7"

	// GUIDZero is the partition UUID assigned to the synthetic test volume
	GUIDZero = "00000000-0000-0000-0000-000000000000"

	// Score contributions for default-ESP election
	ScoreKindESP  = uint32(0x20000)
	ScoreLinuxEsp = uint32(0x10000)

	// VfatType is the only filesystem admitted to the ESP registry
	VfatType = "vfat"

	// RevocationsBasename is the SBAT revocation payload next to shim
	RevocationsBasename = "revocations.efi"

	// BatteryLevelInvalid marks an unknown battery level or threshold
	BatteryLevelInvalid = uint(101)

	// EfivarsPath is the mounted efivarfs used for free-space accounting
	EfivarsPath = "/sys/firmware/efi/efivars"

	// LocalStateDir holds daemon-owned state such as the FDT override
	LocalStateDir = "/var/lib/hwcontext"
	// SysfsFwDir is the kernel firmware export directory
	SysfsFwDir = "/sys/firmware"
	// SysfsDmiIDDir exposes the DMI identity strings
	SysfsDmiIDDir = "/sys/class/dmi/id"
	// SysfsBlockDir exposes per-device partition metadata
	SysfsBlockDir = "/sys/class/block"

	// RunDir is where transient ESP mount points are created
	RunDir = "/run/hwcontext"

	// MountBinary is the host mount helper used by the default mounter
	MountBinary = "/usr/bin/mount"
)

// LinuxBootloaderPrefixes are the basename prefixes that indicate a Linux
// bootloader lives on a volume.
var LinuxBootloaderPrefixes = []string{"grub", "shim", "systemd-boot", "zfsbootmenu"}

// uefiArchSuffixes maps GOARCH to the UEFI image name infix; architectures
// not listed have no shim/grub naming convention.
var uefiArchSuffixes = map[string]string{
	"amd64":   "x64",
	"arm64":   "aa64",
	"loong64": "loongarch64",
	"riscv64": "riscv64",
	"386":     "ia32",
	"arm":     "arm",
}

// UefiBasenameForArch builds the architecture-specific basename for a UEFI
// application, e.g. "shim" becomes "shimx64.efi" on amd64. It returns an
// empty string on architectures without a mapping.
func UefiBasenameForArch(appName string) string {
	suffix, ok := uefiArchSuffixes[runtime.GOARCH]
	if !ok {
		return ""
	}
	return appName + suffix + ".efi"
}
