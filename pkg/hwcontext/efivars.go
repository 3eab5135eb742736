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
	"github.com/dustin/go-humanize"

	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
)

// EfivarsCheckFreeSpace verifies the NVRAM store can take a write of the
// given size. The check can be bypassed with FlagIgnoreEfivarsFreeSpace on
// systems that misreport efivarfs capacity.
func (c *Context) EfivarsCheckFreeSpace(required uint64) error {
	if c.HasFlag(FlagIgnoreEfivarsFreeSpace) {
		c.logger.Debugf("skipping efivarfs free space check")
		return nil
	}
	free, err := c.efivars.SpaceFree()
	if err != nil {
		return err
	}
	if free < required {
		return fwErr.BrokenSystem("Not enough efivarfs space, requested %s and got %s",
			humanize.Bytes(required), humanize.Bytes(free))
	}
	return nil
}
