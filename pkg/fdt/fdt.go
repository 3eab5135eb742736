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

// Package fdt parses flattened device tree blobs far enough to extract the
// root node properties used for hardware identification, such as "model"
// and "compatible".
package fdt

import (
	"bytes"
	"encoding/binary"

	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
)

const fdtMagic = 0xd00dfeed

// Structure block tokens
const (
	tokenBeginNode = 0x1
	tokenEndNode   = 0x2
	tokenProp      = 0x3
	tokenNop       = 0x4
	tokenEnd       = 0x9
)

// Image holds the root node properties of a parsed device tree.
type Image struct {
	props map[string][]byte
}

// Parse reads a flattened device tree blob. Only the root node properties
// are retained.
func Parse(data []byte) (*Image, error) {
	if len(data) < 40 {
		return nil, fwErr.InvalidFile("device tree blob truncated at %d bytes", len(data))
	}
	if binary.BigEndian.Uint32(data) != fdtMagic {
		return nil, fwErr.NotSupported("not a device tree blob")
	}
	totalSize := binary.BigEndian.Uint32(data[4:])
	offStruct := binary.BigEndian.Uint32(data[8:])
	offStrings := binary.BigEndian.Uint32(data[12:])
	if uint64(totalSize) > uint64(len(data)) ||
		offStruct >= totalSize || offStrings > totalSize {
		return nil, fwErr.InvalidFile("device tree header out of bounds")
	}

	img := &Image{props: map[string][]byte{}}
	strs := data[offStrings:totalSize]
	buf := data[offStruct:totalSize]
	depth := 0
	pos := 0
	for {
		if pos+4 > len(buf) {
			return nil, fwErr.InvalidFile("device tree structure block truncated")
		}
		token := binary.BigEndian.Uint32(buf[pos:])
		pos += 4
		switch token {
		case tokenBeginNode:
			end := bytes.IndexByte(buf[pos:], 0)
			if end < 0 {
				return nil, fwErr.InvalidFile("unterminated node name")
			}
			pos = align4(pos + end + 1)
			depth++
		case tokenEndNode:
			depth--
			if depth < 0 {
				return nil, fwErr.InvalidFile("unbalanced device tree nodes")
			}
		case tokenProp:
			if pos+8 > len(buf) {
				return nil, fwErr.InvalidFile("device tree property truncated")
			}
			length := binary.BigEndian.Uint32(buf[pos:])
			nameOff := binary.BigEndian.Uint32(buf[pos+4:])
			pos += 8
			if pos+int(length) > len(buf) || nameOff >= uint32(len(strs)) {
				return nil, fwErr.InvalidFile("device tree property out of bounds")
			}
			if depth == 1 {
				nameEnd := bytes.IndexByte(strs[nameOff:], 0)
				if nameEnd < 0 {
					return nil, fwErr.InvalidFile("unterminated property name")
				}
				name := string(strs[nameOff : int(nameOff)+nameEnd])
				img.props[name] = buf[pos : pos+int(length)]
			}
			pos = align4(pos + int(length))
		case tokenNop:
		case tokenEnd:
			return img, nil
		default:
			return nil, fwErr.InvalidFile("unknown device tree token %#x", token)
		}
	}
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Property returns a raw root node property.
func (i *Image) Property(name string) ([]byte, bool) {
	v, ok := i.props[name]
	return v, ok
}

// Model returns the root "model" string, or "".
func (i *Image) Model() string {
	return i.stringProp("model")
}

// Compatible returns the first entry of the root "compatible" string list,
// or "".
func (i *Image) Compatible() string {
	return i.stringProp("compatible")
}

func (i *Image) stringProp(name string) string {
	v, ok := i.props[name]
	if !ok {
		return ""
	}
	if end := bytes.IndexByte(v, 0); end >= 0 {
		v = v[:end]
	}
	return string(v)
}
