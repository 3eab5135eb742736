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

import "strings"

// QuirkKeyFlags is the quirk key whose comma separated value becomes the
// machine's HWID custom flags.
const QuirkKeyFlags = "Flags"

// QuirkStore is an in-memory Quirks implementation keyed by GUID.
type QuirkStore struct {
	entries map[string]map[string]string
}

func NewQuirkStore() *QuirkStore {
	return &QuirkStore{entries: map[string]map[string]string{}}
}

// Add records one quirk value under a GUID. GUIDs are matched case
// insensitively.
func (q *QuirkStore) Add(guid, key, value string) {
	guid = strings.ToLower(guid)
	if q.entries[guid] == nil {
		q.entries[guid] = map[string]string{}
	}
	q.entries[guid][key] = value
}

// Lookup implements Quirks.
func (q *QuirkStore) Lookup(guid, key string) (string, bool) {
	value, ok := q.entries[strings.ToLower(guid)][key]
	return value, ok
}
