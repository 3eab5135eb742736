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

// Package pefile loads UEFI applications as parsed PE images. Parse
// failures are classified so enumeration code can tell "not a PE" and
// "corrupt PE" apart from fatal I/O problems.
package pefile

import (
	"bytes"
	"debug/pe"
	"fmt"
	"os"

	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/types"
)

// Image is a parsed PE payload. Idx correlates the image with the boot
// entry it was resolved from.
type Image struct {
	filename string
	idx      uint16
	file     *pe.File
	size     int64
}

// Parse decodes the raw bytes as a PE image. It returns a NotSupported
// error when the DOS magic is missing and an InvalidFile error when the
// headers do not decode.
func (img *Image) Parse(data []byte) error {
	if len(data) < 2 || data[0] != 'M' || data[1] != 'Z' {
		return fwErr.NotSupported("not a PE executable: missing MZ magic")
	}
	file, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return fwErr.InvalidFile("invalid PE image: %v", err)
	}
	img.file = file
	img.size = int64(len(data))
	return nil
}

// Filename returns the path the image was loaded from.
func (img *Image) Filename() string {
	return img.filename
}

func (img *Image) SetFilename(filename string) {
	img.filename = filename
}

// Idx returns the boot entry index the image belongs to.
func (img *Image) Idx() uint16 {
	return img.idx
}

func (img *Image) SetIdx(idx uint16) {
	img.idx = idx
}

// Machine returns the COFF machine type of the parsed image.
func (img *Image) Machine() uint16 {
	if img.file == nil {
		return 0
	}
	return img.file.Machine
}

// Size returns the on-disk size of the image in bytes.
func (img *Image) Size() int64 {
	return img.size
}

func New() *Image {
	return &Image{}
}

// Load reads and parses the file at the given path. A missing file yields
// a NotFound error; read failures on an existing file are fatal.
func Load(fs types.FS, filename string) (*Image, error) {
	data, err := fs.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fwErr.NotFound("no such file %s", filename)
		}
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	img := New()
	img.filename = filename
	if err := img.Parse(data); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return img, nil
}
