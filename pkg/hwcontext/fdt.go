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

	"github.com/firmware-tools/hwcontext/pkg/constants"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/fdt"
)

// Fdt returns the system device tree, parsed once and cached. A state
// directory override takes precedence over the kernel export, so broken
// vendor trees can be fixed up locally.
func (c *Context) Fdt() (*fdt.Image, error) {
	if c.fdtLoaded {
		return c.fdtImage, nil
	}
	sources := []string{
		filepath.Join(constants.LocalStateDir, "system.dtb"),
		filepath.Join(constants.SysfsFwDir, "fdt"),
	}
	for _, source := range sources {
		data, err := c.fs.ReadFile(source)
		if err != nil {
			if !os.IsNotExist(err) {
				c.logger.Debugf("cannot read %s: %v", source, err)
			}
			continue
		}
		img, err := fdt.Parse(data)
		if err != nil {
			return nil, err
		}
		c.fdtImage = img
		c.fdtLoaded = true
		return img, nil
	}
	return nil, fwErr.NotSupported("no device tree found")
}
