// Package headers provides a case-insensitive, sorted header collection
// used to build the canonical header block for request signing.
package headers

import (
	"sort"
	"strings"
)

// entry is one header key/value pair. The key is stored in its
// originally-given case; comparisons and lookups are case-insensitive.
type entry struct {
	key   string
	value string
}

// List is a sorted collection of HTTP headers, keyed case-insensitively,
// that keeps itself in ascending key order as entries are inserted or
// removed. It is purpose-built for SigV4-style canonical signing, where
// the header block must be both lower-cased and lexically sorted.
//
// A List is not safe for concurrent use.
type List struct {
	entries []entry
}

// New returns an empty List.
func New() *List {
	return &List{}
}

func (l *List) find(key string) (int, bool) {
	lower := strings.ToLower(key)
	idx := sort.Search(len(l.entries), func(i int) bool {
		return strings.ToLower(l.entries[i].key) >= lower
	})
	if idx < len(l.entries) && strings.EqualFold(l.entries[idx].key, key) {
		return idx, true
	}
	return idx, false
}

// SortedInsert adds key:value to the list, keeping entries sorted by
// lower-cased key. Both key and value are trimmed before storage. If key
// already exists (case-insensitively), its value is replaced in place
// rather than appending a duplicate.
func (l *List) SortedInsert(key, value string) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	idx, exists := l.find(key)
	if exists {
		l.entries[idx].value = value
		return
	}
	l.entries = append(l.entries, entry{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = entry{key: key, value: value}
}

// Remove deletes key from the list, case-insensitively. It is a no-op if
// the key is not present.
func (l *List) Remove(key string) {
	idx, exists := l.find(key)
	if !exists {
		return
	}
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
}

// GetValue returns the value stored for key (case-insensitive lookup) and
// whether it was found.
func (l *List) GetValue(key string) (string, bool) {
	idx, exists := l.find(key)
	if !exists {
		return "", false
	}
	return l.entries[idx].value, true
}

// GetSortedKeys returns the lower-cased keys of every header with a
// non-empty trimmed value, joined with ";" in ascending order. Headers
// with an empty value are skipped, since they are discarded during
// signing anyway.
func (l *List) GetSortedKeys() string {
	var keys []string
	for _, e := range l.entries {
		if strings.TrimSpace(e.value) == "" {
			continue
		}
		keys = append(keys, strings.ToLower(e.key))
	}
	return strings.Join(keys, ";")
}

// GetCanonicalHeaders renders the list as a SigV4-style canonical header
// block: one "lower-case-key:trimmed-value\n" line per entry, in ascending
// key order. Headers with an empty trimmed value are skipped. When
// onlyAmz is true, only keys prefixed "x-amz" are included. An empty
// list (or one with nothing left after filtering) renders as "\n".
func (l *List) GetCanonicalHeaders(onlyAmz bool) string {
	if len(l.entries) == 0 {
		return "\n"
	}
	var b strings.Builder
	for _, e := range l.entries {
		key := strings.ToLower(strings.TrimSpace(e.key))
		value := strings.TrimSpace(e.value)
		if value == "" {
			continue
		}
		if onlyAmz && !strings.HasPrefix(key, "x-amz") {
			continue
		}
		b.WriteString(key)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "\n"
	}
	return b.String()
}

// Len returns the number of headers in the list.
func (l *List) Len() int {
	return len(l.entries)
}
