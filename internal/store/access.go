package store

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// GetString returns the text under key, or def when key is absent or holds a
// composite.
func (v *Value) GetString(key, def string) string {
	c := v.Get(key)
	if c == nil || c.IsComposite() {
		return def
	}
	return c.text
}

// PutString stores text under key.
func (v *Value) PutString(key, text string) *Value {
	return v.Put(key, NewString(text))
}

// GetNumber parses the text under key as a float. The parse does not depend
// on locale.
func (v *Value) GetNumber(key string, def float64) float64 {
	c := v.Get(key)
	if c == nil || c.IsComposite() {
		return def
	}
	f, ok := parseNumber(c.text)
	if !ok {
		return def
	}
	return f
}

func parseNumber(text string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// PutNumber stores f under key using the shortest exact decimal form.
func (v *Value) PutNumber(key string, f float64) *Value {
	return v.PutString(key, strconv.FormatFloat(f, 'g', -1, 64))
}

// GetInt returns the number under key truncated to an int.
func (v *Value) GetInt(key string, def int) int {
	f := v.GetNumber(key, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(f)
}

// PutInt stores n under key.
func (v *Value) PutInt(key string, n int) *Value {
	return v.PutString(key, strconv.Itoa(n))
}

// GetBool reads "Yes"/"No" in any case, or a number where nonzero is true.
func (v *Value) GetBool(key string, def bool) bool {
	c := v.Get(key)
	if c == nil || c.IsComposite() {
		return def
	}
	b, ok := parseBool(c.text)
	if !ok {
		return def
	}
	return b
}

func parseBool(text string) (bool, bool) {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.EqualFold(trimmed, "yes"):
		return true, true
	case strings.EqualFold(trimmed, "no"):
		return false, true
	}
	f, ok := parseNumber(trimmed)
	if !ok {
		return false, false
	}
	return f != 0, true
}

// PutBool stores b as "Yes" or "No".
func (v *Value) PutBool(key string, b bool) *Value {
	if b {
		return v.PutString(key, "Yes")
	}
	return v.PutString(key, "No")
}

// GetEnum returns the position in table of the name stored under key.
func (v *Value) GetEnum(key string, table *EnumTable, def int) int {
	c := v.Get(key)
	if c == nil || c.IsComposite() {
		return def
	}
	i, ok := table.Parse(c.text)
	if !ok {
		return def
	}
	return i
}

// PutEnum stores the name of entry i of table under key. Out of range values
// are rejected.
func (v *Value) PutEnum(key string, table *EnumTable, i int) *Value {
	name, ok := table.Name(i)
	if !ok {
		logger().Error("store: enum value out of range", "key", key, "value", i)
		return nil
	}
	return v.PutString(key, name)
}

// GetBits reads a named bit set stored as one boolean child per bit name.
// Bits whose names are missing keep their value from def.
func (v *Value) GetBits(key string, names *BitNames, def uint64) uint64 {
	c := v.Get(key)
	if c == nil || names == nil {
		return def
	}
	bits := def
	for i, name := range names.names {
		if !c.Has(name) {
			continue
		}
		if c.GetBool(name, false) {
			bits |= 1 << uint(i)
		} else {
			bits &^= 1 << uint(i)
		}
	}
	return bits
}

// PutBits stores bits as one boolean child per name in names.
func (v *Value) PutBits(key string, names *BitNames, bits uint64) *Value {
	if names == nil {
		logger().Error("store: PutBits without names", "key", key)
		return nil
	}
	c := New()
	for i, name := range names.names {
		if name == "" {
			continue
		}
		c.PutBool(name, bits&(1<<uint(i)) != 0)
	}
	return v.Put(key, c)
}

// GetTime parses the timestamp under key. See ParseTime for the format.
func (v *Value) GetTime(key string, def time.Time) time.Time {
	c := v.Get(key)
	if c == nil || c.IsComposite() {
		return def
	}
	t, ok := ParseTime(c.text)
	if !ok {
		return def
	}
	return t
}

// PutTime stores t in UTC using FormatTime.
func (v *Value) PutTime(key string, t time.Time) *Value {
	return v.PutString(key, FormatTime(t))
}
