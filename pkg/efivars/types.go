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

// Package efivars mediates access to the EFI NVRAM variable store and the
// boot entries stored in it.
package efivars

import (
	"context"
	"math"
	"os"

	efi "github.com/canonical/go-efilib"
	"golang.org/x/sys/unix"

	"github.com/firmware-tools/hwcontext/pkg/constants"
)

// SpaceUnknown signals that the free-space probe itself failed.
const SpaceUnknown = uint64(math.MaxUint64)

// Variables abstracts away the host-specific bits of the efivars store
type Variables interface {
	ListVariables() ([]efi.VariableDescriptor, error)
	GetVariable(guid efi.GUID, name string) (data []byte, attrs efi.VariableAttributes, err error)
	SetVariable(guid efi.GUID, name string, data []byte, attrs efi.VariableAttributes) error
	DelVariable(guid efi.GUID, name string) error
	SpaceFree() (uint64, error)
}

// RealEFIVariables provides the real implementation of efivars
type RealEFIVariables struct{}

func (v RealEFIVariables) ListVariables() ([]efi.VariableDescriptor, error) {
	return efi.ListVariables(context.Background())
}

func (v RealEFIVariables) GetVariable(guid efi.GUID, name string) (data []byte, attrs efi.VariableAttributes, err error) {
	return efi.ReadVariable(context.Background(), name, guid)
}

func (v RealEFIVariables) SetVariable(guid efi.GUID, name string, data []byte, attrs efi.VariableAttributes) error {
	return efi.WriteVariable(context.Background(), name, guid, attrs, data)
}

func (v RealEFIVariables) DelVariable(guid efi.GUID, name string) error {
	_, attrs, err := v.GetVariable(guid, name)
	if err != nil {
		return err
	}
	return v.SetVariable(guid, name, nil, attrs)
}

// SpaceFree reports the free bytes in the mounted efivarfs.
func (v RealEFIVariables) SpaceFree() (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(constants.EfivarsPath, &st); err != nil {
		return SpaceUnknown, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

// NewVariablesFromEnv selects the dummy in-memory store when
// FWUPD_EFIVARS=dummy is set, otherwise the host efivarfs.
func NewVariablesFromEnv() Variables {
	if os.Getenv(constants.EnvEfivars) == "dummy" {
		return NewDummyVariables()
	}
	return RealEFIVariables{}
}
