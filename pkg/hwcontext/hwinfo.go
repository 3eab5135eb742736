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
	"strings"

	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
)

// HwinfoFlags selects which hardware identity backends LoadHwinfo runs.
type HwinfoFlags uint32

const (
	// LoadConfig seeds identity values from static configuration
	LoadConfig HwinfoFlags = 1 << iota
	// LoadSmbios reads the kernel DMI identity attributes
	LoadSmbios
	// LoadFdt derives identity from the system device tree
	LoadFdt
	// LoadKenv reads the FreeBSD kernel environment
	LoadKenv
	// LoadDmi reads the BIOS release attributes
	LoadDmi
	// LoadDarwin queries IOKit
	LoadDarwin

	// LoadAll runs every backend
	LoadAll = LoadConfig | LoadSmbios | LoadFdt | LoadKenv | LoadDmi | LoadDarwin
)

// HwidConfig holds static identity overrides applied by the config backend.
type HwidConfig map[string]string

// SetHwidConfig installs identity overrides used by the LoadConfig backend.
func (c *Context) SetHwidConfig(values HwidConfig) {
	c.hwidConfig = values
}

// LoadHwinfo runs the selected identity backends in a fixed order, each
// tolerating failure, then computes the HWID GUID set, attaches quirk
// flags and probes for full-disk-encryption markers. It is one-shot; a
// second call is a no-op.
func (c *Context) LoadHwinfo(flags HwinfoFlags) error {
	if c.HasFlag(FlagLoadedHwinfo) {
		return nil
	}

	type backend struct {
		flag  HwinfoFlags
		name  string
		setup func() error
	}
	backends := []backend{
		{LoadConfig, "config", func() error { return c.hwids.ConfigSetup(c.hwidConfig) }},
		{LoadSmbios, "smbios", func() error { return c.hwids.SmbiosSetup(c.fs) }},
		{LoadFdt, "fdt", c.fdtHwidSetup},
		{LoadKenv, "kenv", c.hwids.KenvSetup},
		{LoadDmi, "dmi", func() error { return c.hwids.DmiSetup(c.fs) }},
		{LoadDarwin, "darwin", c.hwids.DarwinSetup},
	}
	for _, b := range backends {
		if flags&b.flag == 0 {
			continue
		}
		if err := b.setup(); err != nil {
			c.logger.Debugf("failed to load %s hwinfo: %v", b.name, err)
		}
	}
	if err := c.hwids.Setup(); err != nil {
		return err
	}

	for _, guid := range c.hwids.Guids() {
		value, ok := c.quirks.Lookup(guid, QuirkKeyFlags)
		if !ok {
			continue
		}
		for _, flag := range strings.Split(value, ",") {
			if flag = strings.TrimSpace(flag); flag != "" {
				c.hwidFlags[flag] = true
			}
		}
	}

	if err := c.detectFullDiskEncryption(); err != nil {
		c.logger.Debugf("failed to scan for encrypted volumes: %v", err)
	}

	c.RegisterUdevSubsystem("firmware-attributes", "core")
	c.AddFlag(FlagLoadedHwinfo)
	return nil
}

func (c *Context) fdtHwidSetup() error {
	img, err := c.Fdt()
	if err != nil {
		return err
	}
	return c.hwids.FdtSetup(img)
}

// detectFullDiskEncryption flags BitLocker and snapd encrypted volumes so
// callers can warn before firmware updates that may change the PCR state.
func (c *Context) detectFullDiskEncryption() error {
	devices, err := c.inventory.BlockDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		if dev.IdType == "BitLocker" {
			c.AddFlag(FlagFdeBitlocker)
		}
		if dev.IdType == "crypto_LUKS" && dev.IdLabel == "ubuntu-data-enc" {
			c.AddFlag(FlagFdeSnapd)
		}
	}
	return nil
}

// checkHwinfoLoaded guards the identity accessors against use before
// LoadHwinfo ran.
func (c *Context) checkHwinfoLoaded(caller string) error {
	if c.HasFlag(FlagLoadedHwinfo) {
		return nil
	}
	c.logger.Errorf("%s called before LoadHwinfo", caller)
	return fwErr.Internal("hardware information has not been loaded")
}

// SmbiosString returns one identity string by key, e.g. "Manufacturer".
func (c *Context) SmbiosString(key string) (string, error) {
	if err := c.checkHwinfoLoaded("SmbiosString"); err != nil {
		return "", err
	}
	return c.hwids.Value(key), nil
}

// HwidGuids returns the machine's hardware ID GUIDs, most specific first.
func (c *Context) HwidGuids() ([]string, error) {
	if err := c.checkHwinfoLoaded("HwidGuids"); err != nil {
		return nil, err
	}
	return c.hwids.Guids(), nil
}

// HasHwidGuid reports whether the machine matches the given hardware ID.
func (c *Context) HasHwidGuid(guid string) (bool, error) {
	if err := c.checkHwinfoLoaded("HasHwidGuid"); err != nil {
		return false, err
	}
	return c.hwids.HasGuid(guid), nil
}
