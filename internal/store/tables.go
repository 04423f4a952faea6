package store

import (
	"log/slog"
	"strings"
)

// EnumTable maps the values of an enumeration to the names written on disk.
// Build one per enumeration at package init.
type EnumTable struct {
	names []string
	index map[string]int
}

// NewEnumTable builds a table where names[i] is the name of value i.
func NewEnumTable(names ...string) *EnumTable {
	t := &EnumTable{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		key := strings.ToLower(name)
		if _, dup := t.index[key]; dup {
			logger().Error("store: duplicate enum name", "name", name)
			continue
		}
		t.index[key] = i
	}
	return t
}

// Name returns the name of value i.
func (t *EnumTable) Name(i int) (string, bool) {
	if t == nil || i < 0 || i >= len(t.names) {
		return "", false
	}
	return t.names[i], true
}

// Parse returns the value whose name matches text, ignoring case.
func (t *EnumTable) Parse(text string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[strings.ToLower(strings.TrimSpace(text))]
	return i, ok
}

// Len returns the number of values.
func (t *EnumTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// BitNames names the bits of a flag set; bit i is called names[i].
type BitNames struct {
	names []string
}

// NewBitNames builds a bit name table. At most 64 names are accepted and every
// name must be a valid key.
func NewBitNames(names ...string) *BitNames {
	if len(names) > 64 {
		logger().Error("store: too many bit names", "count", len(names))
		names = names[:64]
	}
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if !ValidKey(name) {
			logger().Error("store: invalid bit name", "name", name)
			name = ""
		}
		kept = append(kept, name)
	}
	return &BitNames{names: kept}
}

// Names returns the names of the bits set in bits.
func (b *BitNames) Names(bits uint64) []string {
	if b == nil {
		return nil
	}
	var out []string
	for i, name := range b.names {
		if name != "" && bits&(1<<uint(i)) != 0 {
			out = append(out, name)
		}
	}
	return out
}

// Bit returns the mask for the bit called name.
func (b *BitNames) Bit(name string) (uint64, bool) {
	if b == nil {
		return 0, false
	}
	for i, n := range b.names {
		if n != "" && strings.EqualFold(n, name) {
			return 1 << uint(i), true
		}
	}
	return 0, false
}

func logger() *slog.Logger {
	return slog.Default()
}
