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
	"strings"

	efi "github.com/canonical/go-efilib"
)

// MetadataPath is the optional-data key naming a non-default second-stage
// loader for a boot entry.
const MetadataPath = "PATH"

// BootEntry is one Boot#### load option, decoded.
type BootEntry struct {
	// Idx is the entry number, for example 4 for Boot0004
	Idx uint16
	// Description is the human readable label
	Description string
	// DevicePath locates the boot image
	DevicePath efi.DevicePath

	optionalData []byte
	metadata     map[string]string
}

// NewBootEntry wraps a decoded load option under its entry number.
func NewBootEntry(idx uint16, opt *efi.LoadOption) *BootEntry {
	return &BootEntry{
		Idx:          idx,
		Description:  opt.Description,
		DevicePath:   opt.FilePath,
		optionalData: opt.OptionalData,
	}
}

// decodeOptionalData interprets the optional data as UCS-2 text holding
// KEY=VALUE lines. Binary payloads simply produce no metadata.
func decodeOptionalData(data []byte) map[string]string {
	out := map[string]string{}
	if len(data) == 0 || len(data)%2 != 0 {
		return out
	}
	ucs2 := make([]uint16, len(data)/2)
	for i := range ucs2 {
		ucs2[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	text := strings.TrimRight(efi.ConvertUTF16ToUTF8(ucs2), "\x00")
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// Metadata returns the value stored under the given optional-data key.
func (e *BootEntry) Metadata(key string) (string, bool) {
	if e.metadata == nil {
		e.metadata = decodeOptionalData(e.optionalData)
	}
	value, ok := e.metadata[key]
	return value, ok
}

// EncodeMetadata builds an optional-data payload from KEY=VALUE pairs,
// useful for tests and for writing entries.
func EncodeMetadata(pairs map[string]string) []byte {
	var lines []string
	for key, value := range pairs {
		lines = append(lines, key+"="+value)
	}
	ucs2 := efi.ConvertUTF8ToUCS2(strings.Join(lines, "\n"))
	out := make([]byte, 2*len(ucs2))
	for i, c := range ucs2 {
		binary.LittleEndian.PutUint16(out[2*i:], c)
	}
	return out
}
