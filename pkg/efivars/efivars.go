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

package efivars

import (
	"bytes"
	"encoding/binary"
	"fmt"

	efi "github.com/canonical/go-efilib"

	"github.com/firmware-tools/hwcontext/pkg/types"
)

// Efivars reads the firmware boot configuration from a variable store.
type Efivars struct {
	logger types.Logger
	vars   Variables
}

func New(logger types.Logger, vars Variables) *Efivars {
	return &Efivars{logger: logger, vars: vars}
}

// Vars exposes the underlying variable store.
func (e *Efivars) Vars() Variables {
	return e.vars
}

// SpaceFree reports the free bytes in the NVRAM variable store.
func (e *Efivars) SpaceFree() (uint64, error) {
	return e.vars.SpaceFree()
}

// BootOrder returns the entry indices from the BootOrder variable. A
// missing variable yields an empty order.
func (e *Efivars) BootOrder() ([]uint16, error) {
	data, _, err := e.vars.GetVariable(efi.GlobalVariable, "BootOrder")
	if err != nil {
		e.logger.Debugf("no BootOrder variable: %v", err)
		return nil, nil
	}
	order := make([]uint16, len(data)/2)
	for i := range order {
		order[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return order, nil
}

// BootEntry reads and decodes one Boot#### variable.
func (e *Efivars) BootEntry(idx uint16) (*BootEntry, error) {
	name := fmt.Sprintf("Boot%04X", idx)
	data, _, err := e.vars.GetVariable(efi.GlobalVariable, name)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", name, err)
	}
	opt, err := efi.ReadLoadOption(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", name, err)
	}
	return NewBootEntry(idx, opt), nil
}

// BootEntries returns the decoded load options for the current boot order,
// preserving its order. Entries that cannot be read or decoded are skipped
// so a single corrupted variable cannot block enumeration.
func (e *Efivars) BootEntries() ([]*BootEntry, error) {
	order, err := e.BootOrder()
	if err != nil {
		return nil, err
	}
	var entries []*BootEntry
	for _, idx := range order {
		entry, err := e.BootEntry(idx)
		if err != nil {
			e.logger.Debugf("skipping boot entry %04X: %v", idx, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
