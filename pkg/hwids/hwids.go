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

// Package hwids stores platform identity strings and derives the Microsoft
// HardwareID GUIDs used to match firmware to the machine it runs on.
package hwids

import (
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
)

// Well known identity keys
const (
	KeyManufacturer          = "Manufacturer"
	KeyFamily                = "Family"
	KeyProductName           = "ProductName"
	KeyProductSku            = "ProductSku"
	KeyBiosVendor            = "BiosVendor"
	KeyBiosVersion           = "BiosVersion"
	KeyBiosMajorRelease      = "BiosMajorRelease"
	KeyBiosMinorRelease      = "BiosMinorRelease"
	KeyBaseboardManufacturer = "BaseboardManufacturer"
	KeyBaseboardProduct      = "BaseboardProduct"
	KeyEnclosureKind         = "EnclosureKind"
)

// msNamespace is the DNS-style namespace Microsoft uses for computer
// hardware IDs.
var msNamespace = uuid.MustParse("70ffd812-4c7f-4c7d-0000-000000000000")

// hwidChains lists the key combinations, most to least specific, that each
// produce one HardwareID GUID.
var hwidChains = [][]string{
	{KeyManufacturer, KeyFamily, KeyProductName, KeyProductSku, KeyBiosVendor, KeyBiosVersion, KeyBiosMajorRelease, KeyBiosMinorRelease},
	{KeyManufacturer, KeyFamily, KeyProductName, KeyBiosVendor, KeyBiosVersion, KeyBiosMajorRelease, KeyBiosMinorRelease},
	{KeyManufacturer, KeyProductName, KeyBiosVendor, KeyBiosVersion, KeyBiosMajorRelease, KeyBiosMinorRelease},
	{KeyManufacturer, KeyFamily, KeyProductName, KeyProductSku, KeyBaseboardManufacturer, KeyBaseboardProduct},
	{KeyManufacturer, KeyFamily, KeyProductName, KeyProductSku},
	{KeyManufacturer, KeyFamily, KeyProductName},
	{KeyManufacturer, KeyProductSku, KeyBaseboardManufacturer, KeyBaseboardProduct},
	{KeyManufacturer, KeyProductSku},
	{KeyManufacturer, KeyProductName, KeyBaseboardManufacturer, KeyBaseboardProduct},
	{KeyManufacturer, KeyProductName},
	{KeyManufacturer, KeyFamily, KeyBaseboardManufacturer, KeyBaseboardProduct},
	{KeyManufacturer, KeyFamily},
	{KeyManufacturer, KeyEnclosureKind},
	{KeyManufacturer, KeyBaseboardManufacturer, KeyBaseboardProduct},
	{KeyManufacturer},
}

// Hwids accumulates identity values from one or more backends and computes
// the GUID set once all backends ran.
type Hwids struct {
	values map[string]string
	guids  []string
}

func New() *Hwids {
	return &Hwids{values: map[string]string{}}
}

// SetValue records one identity string. Later backends win over earlier
// ones only for keys they actually provide.
func (h *Hwids) SetValue(key, value string) {
	if value == "" {
		return
	}
	h.values[key] = value
}

// Value returns a recorded identity string, or "".
func (h *Hwids) Value(key string) string {
	return h.values[key]
}

// Setup computes the GUID list from the recorded values. Chains with any
// missing key are skipped.
func (h *Hwids) Setup() error {
	seen := map[string]bool{}
	h.guids = nil
	for _, chain := range hwidChains {
		guid, ok := h.guidForChain(chain)
		if !ok || seen[guid] {
			continue
		}
		seen[guid] = true
		h.guids = append(h.guids, guid)
	}
	return nil
}

func (h *Hwids) guidForChain(chain []string) (string, bool) {
	parts := make([]string, 0, len(chain))
	for _, key := range chain {
		v, ok := h.values[key]
		if !ok {
			return "", false
		}
		parts = append(parts, v)
	}
	data := utf16leBytes(strings.Join(parts, "&"))
	return uuid.NewSHA1(msNamespace, data).String(), true
}

// Guids returns the computed GUIDs, most specific first.
func (h *Hwids) Guids() []string {
	return h.guids
}

// HasGuid reports whether the given GUID is in the computed set.
func (h *Hwids) HasGuid(guid string) bool {
	for _, g := range h.guids {
		if g == guid {
			return true
		}
	}
	return false
}

// Keys returns the recorded identity keys, sorted.
func (h *Hwids) Keys() []string {
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// utf16leBytes encodes a string as UTF-16LE without BOM or terminator, the
// form Microsoft hashes for hardware IDs.
func utf16leBytes(s string) []byte {
	u := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(u))
	for i, c := range u {
		binary.LittleEndian.PutUint16(out[2*i:], c)
	}
	return out
}
