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

package mocks

import "encoding/binary"

// ValidPEBytes builds the smallest PE32+ image the PE parser accepts: a
// DOS stub pointing at a PE signature, an x86-64 file header with no
// sections and a full optional header including all 16 data directories.
func ValidPEBytes() []byte {
	buf := make([]byte, 0x58+240)
	buf[0] = 'M'
	buf[1] = 'Z'
	binary.LittleEndian.PutUint32(buf[0x3c:], 0x40)
	copy(buf[0x40:], []byte{'P', 'E', 0, 0})
	// IMAGE_FILE_HEADER
	binary.LittleEndian.PutUint16(buf[0x44:], 0x8664) // Machine
	binary.LittleEndian.PutUint16(buf[0x46:], 0)      // NumberOfSections
	binary.LittleEndian.PutUint16(buf[0x54:], 240)    // SizeOfOptionalHeader
	binary.LittleEndian.PutUint16(buf[0x56:], 0x2022) // Characteristics
	// IMAGE_OPTIONAL_HEADER64
	opt := buf[0x58:]
	binary.LittleEndian.PutUint16(opt[0:], 0x20b) // PE32+ magic
	binary.LittleEndian.PutUint16(opt[68:], 10)   // Subsystem: EFI application
	binary.LittleEndian.PutUint32(opt[108:], 16)  // NumberOfRvaAndSizes
	return buf
}

// CorruptPEBytes carries the DOS magic but no valid COFF headers behind it.
func CorruptPEBytes() []byte {
	return []byte("MZ this is not a portable executable")
}
