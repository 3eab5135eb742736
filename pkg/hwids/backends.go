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

package hwids

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/fdt"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/utils"
)

// dmiSysfsKeys maps sysfs DMI attribute names to identity keys.
var dmiSysfsKeys = map[string]string{
	"sys_vendor":     KeyManufacturer,
	"product_family": KeyFamily,
	"product_name":   KeyProductName,
	"product_sku":    KeyProductSku,
	"bios_vendor":    KeyBiosVendor,
	"bios_version":   KeyBiosVersion,
	"board_vendor":   KeyBaseboardManufacturer,
	"board_name":     KeyBaseboardProduct,
	"chassis_type":   KeyEnclosureKind,
}

// ConfigSetup seeds identity values from static configuration, typically
// used to override broken vendor strings.
func (h *Hwids) ConfigSetup(values map[string]string) error {
	for key, value := range values {
		h.SetValue(key, value)
	}
	return nil
}

// SmbiosSetup reads the DMI identity attributes exported by the kernel
// under /sys/class/dmi/id.
func (h *Hwids) SmbiosSetup(fs types.FS) error {
	dir := constants.SysfsDmiIDDir
	if ok, _ := utils.Exists(fs, dir); !ok {
		return fwErr.NotSupported("no SMBIOS data at %s", dir)
	}
	for attr, key := range dmiSysfsKeys {
		value, err := utils.ReadFileTrimmed(fs, filepath.Join(dir, attr))
		if err != nil {
			continue
		}
		h.SetValue(key, value)
	}
	return nil
}

// DmiSetup fills in the BIOS release numbers, which live in separate sysfs
// attributes formatted as "major.minor".
func (h *Hwids) DmiSetup(fs types.FS) error {
	release, err := utils.ReadFileTrimmed(fs, filepath.Join(constants.SysfsDmiIDDir, "bios_release"))
	if err != nil {
		if os.IsNotExist(err) {
			return fwErr.NotSupported("no BIOS release information")
		}
		return err
	}
	major, minor, found := strings.Cut(release, ".")
	if !found {
		return fwErr.InvalidFile("malformed BIOS release %q", release)
	}
	h.SetValue(KeyBiosMajorRelease, major)
	h.SetValue(KeyBiosMinorRelease, minor)
	return nil
}

// FdtSetup derives identity values from a device tree, used on platforms
// without SMBIOS.
func (h *Hwids) FdtSetup(img *fdt.Image) error {
	if img == nil {
		return fwErr.NotSupported("no device tree available")
	}
	h.SetValue(KeyProductName, img.Model())
	if compatible := img.Compatible(); compatible != "" {
		// compatible strings look like "vendor,board"
		if vendor, _, found := strings.Cut(compatible, ","); found {
			h.SetValue(KeyManufacturer, vendor)
		}
	}
	return nil
}

// KenvSetup would read the FreeBSD kernel environment.
func (h *Hwids) KenvSetup() error {
	return fwErr.NotSupported("kenv is not available on this platform")
}

// DarwinSetup would query IOKit.
func (h *Hwids) DarwinSetup() error {
	return fwErr.NotSupported("IOKit is not available on this platform")
}
