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

import (
	"bytes"
	"encoding/binary"
)

// DtbBytes assembles a flattened device tree blob with the given NUL
// terminated root node properties.
func DtbBytes(props map[string][]byte) []byte {
	var strs bytes.Buffer
	nameOffsets := map[string]uint32{}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	for _, name := range names {
		nameOffsets[name] = uint32(strs.Len())
		strs.WriteString(name)
		strs.WriteByte(0)
	}

	var structs bytes.Buffer
	token := func(t uint32) {
		_ = binary.Write(&structs, binary.BigEndian, t)
	}
	token(0x1) // BEGIN_NODE, root has an empty name
	structs.WriteByte(0)
	for structs.Len()%4 != 0 {
		structs.WriteByte(0)
	}
	for _, name := range names {
		value := props[name]
		token(0x3)
		_ = binary.Write(&structs, binary.BigEndian, uint32(len(value)))
		_ = binary.Write(&structs, binary.BigEndian, nameOffsets[name])
		structs.Write(value)
		for structs.Len()%4 != 0 {
			structs.WriteByte(0)
		}
	}
	token(0x2) // END_NODE
	token(0x9) // END

	// header carries magic, totalsize, block offsets and version
	header := make([]byte, 40)
	binary.BigEndian.PutUint32(header[0:], 0xd00dfeed)
	binary.BigEndian.PutUint32(header[4:], uint32(40+structs.Len()+strs.Len()))
	binary.BigEndian.PutUint32(header[8:], 40)
	binary.BigEndian.PutUint32(header[12:], uint32(40+structs.Len()))
	binary.BigEndian.PutUint32(header[20:], 17)

	out := append(header, structs.Bytes()...)
	return append(out, strs.Bytes()...)
}
