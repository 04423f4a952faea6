// Package store holds the recursive key/value documents used for everything
// the server persists, and the line-oriented text format they are saved in.
//
// A Value is either a scalar (a piece of text) or a composite (an ordered list
// of keyed child values). Keys compare case-insensitively and are made of
// letters, digits, underscore and dollar sign.
package store

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// AutoKey asks Put to pick the next free array index at that level.
const AutoKey = "%"

// Entry is one keyed child of a composite Value.
type Entry struct {
	Key   string
	Value *Value
}

// Value is a scalar or composite document node.
type Value struct {
	text    string
	entries []Entry
}

// New returns an empty value. It is both an empty scalar and an empty composite
// until something is stored in it.
func New() *Value {
	return &Value{}
}

// NewString returns a scalar holding text.
func NewString(text string) *Value {
	return &Value{text: text}
}

// IsComposite reports whether v holds keyed children.
func (v *Value) IsComposite() bool {
	return v != nil && len(v.entries) > 0
}

// Text returns the scalar text of v. Composites have no text.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	return v.text
}

// SetText turns v into a scalar holding text, dropping any children.
func (v *Value) SetText(text string) {
	if v == nil {
		logger().Error("store: SetText on nil value")
		return
	}
	v.entries = nil
	v.text = text
}

// Len returns the number of children.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}

// Keys returns the child keys in their current order.
func (v *Value) Keys() []string {
	if v == nil {
		return nil
	}
	keys := make([]string, len(v.entries))
	for i, e := range v.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries yields the children in their current order.
func (v *Value) Entries() iter.Seq2[string, *Value] {
	return func(yield func(string, *Value) bool) {
		if v == nil {
			return
		}
		for _, e := range v.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

func (v *Value) find(key string) int {
	if v == nil {
		return -1
	}
	for i, e := range v.entries {
		if strings.EqualFold(e.Key, key) {
			return i
		}
	}
	return -1
}

// Get returns the child stored under key, or nil.
func (v *Value) Get(key string) *Value {
	if i := v.find(key); i >= 0 {
		return v.entries[i].Value
	}
	return nil
}

// Has reports whether key is present.
func (v *Value) Has(key string) bool {
	return v.find(key) >= 0
}

// Put stores child under key, replacing an existing entry with the same key
// or appending a new one. A nil child stores an empty value. Passing AutoKey
// stores the child under the next integer above every numeric key present.
// Put returns the stored child, or nil when the call is invalid.
func (v *Value) Put(key string, child *Value) *Value {
	if v == nil {
		logger().Error("store: Put on nil value", "key", key)
		return nil
	}
	if key == AutoKey {
		key = v.nextIndex()
	}
	if !ValidKey(key) {
		logger().Error("store: invalid key", "key", key)
		return nil
	}
	if child == nil {
		child = New()
	}
	v.text = ""
	if i := v.find(key); i >= 0 {
		v.entries[i].Value = child
		return child
	}
	v.entries = append(v.entries, Entry{Key: key, Value: child})
	return child
}

// Child returns the child under key, creating an empty one when it is absent.
func (v *Value) Child(key string) *Value {
	if c := v.Get(key); c != nil {
		return c
	}
	return v.Put(key, nil)
}

func (v *Value) nextIndex() string {
	largest := 0
	for _, e := range v.entries {
		if !isDigits(e.Key) {
			continue
		}
		n, err := strconv.Atoi(e.Key)
		if err != nil {
			continue
		}
		largest = max(largest, n)
	}
	return strconv.Itoa(largest + 1)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Remove deletes key and reports whether it was present.
func (v *Value) Remove(key string) bool {
	i := v.find(key)
	if i < 0 {
		return false
	}
	v.entries = slices.Delete(v.entries, i, i+1)
	return true
}

// Sort orders the children of v by case-insensitive key. Nested composites
// are sorted too when recursive is set.
func (v *Value) Sort(recursive bool) {
	if v == nil {
		return
	}
	slices.SortStableFunc(v.entries, func(a, b Entry) int {
		return compareFold(a.Key, b.Key)
	})
	if !recursive {
		return
	}
	for _, e := range v.entries {
		e.Value.Sort(true)
	}
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{text: v.text}
	if len(v.entries) > 0 {
		out.entries = make([]Entry, len(v.entries))
		for i, e := range v.entries {
			out.entries[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
		}
	}
	return out
}

// Equal reports whether a and b hold the same text and the same keyed
// children in the same order.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a.Len() == 0 && b.Len() == 0 && a.Text() == b.Text()
	}
	if a.text != b.text || len(a.entries) != len(b.entries) {
		return false
	}
	for i := range a.entries {
		if a.entries[i].Key != b.entries[i].Key {
			return false
		}
		if !Equal(a.entries[i].Value, b.entries[i].Value) {
			return false
		}
	}
	return true
}

// ValidKey reports whether key can be stored and written.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if !isKeyByte(key[i]) {
			return false
		}
	}
	return true
}

func isKeyByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '$':
		return true
	}
	return false
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
