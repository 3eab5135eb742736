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
	"encoding/binary"

	efi "github.com/canonical/go-efilib"
)

type dummyVariable struct {
	data  []byte
	attrs efi.VariableAttributes
}

// DummyVariables implements an in-memory variable store, used by the test
// suite and installed process-wide with FWUPD_EFIVARS=dummy.
type DummyVariables struct {
	store     map[efi.VariableDescriptor]dummyVariable
	spaceFree uint64
}

func NewDummyVariables() *DummyVariables {
	return &DummyVariables{
		store:     make(map[efi.VariableDescriptor]dummyVariable),
		spaceFree: 64 * 1024,
	}
}

// WithSpaceFree overrides the reported efivarfs free space.
func (d *DummyVariables) WithSpaceFree(free uint64) *DummyVariables {
	d.spaceFree = free
	return d
}

func (d *DummyVariables) ListVariables() (out []efi.VariableDescriptor, err error) {
	for k := range d.store {
		out = append(out, k)
	}
	return out, nil
}

func (d *DummyVariables) GetVariable(guid efi.GUID, name string) (data []byte, attrs efi.VariableAttributes, err error) {
	v, ok := d.store[efi.VariableDescriptor{Name: name, GUID: guid}]
	if !ok {
		return nil, 0, efi.ErrVarNotExist
	}
	return v.data, v.attrs, nil
}

func (d *DummyVariables) SetVariable(guid efi.GUID, name string, data []byte, attrs efi.VariableAttributes) error {
	if len(data) == 0 {
		delete(d.store, efi.VariableDescriptor{Name: name, GUID: guid})
	} else {
		d.store[efi.VariableDescriptor{Name: name, GUID: guid}] = dummyVariable{data, attrs}
	}
	return nil
}

func (d *DummyVariables) DelVariable(guid efi.GUID, name string) error {
	return d.SetVariable(guid, name, nil, 0)
}

func (d *DummyVariables) SpaceFree() (uint64, error) {
	return d.spaceFree, nil
}

// SetBootOrder stores the BootOrder variable from a list of entry indices.
func (d *DummyVariables) SetBootOrder(order []uint16) error {
	data := make([]byte, 2*len(order))
	for i, idx := range order {
		binary.LittleEndian.PutUint16(data[2*i:], idx)
	}
	return d.SetVariable(efi.GlobalVariable, "BootOrder", data,
		efi.AttributeNonVolatile|efi.AttributeBootserviceAccess|efi.AttributeRuntimeAccess)
}
