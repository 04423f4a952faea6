package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutReplacesCaseInsensitively(t *testing.T) {
	root := New()
	root.PutString("Name", "Alice")
	root.PutString("name", "Bob")

	assert.Equal(t, 1, root.Len())
	assert.Equal(t, []string{"Name"}, root.Keys())
	assert.Equal(t, "Bob", root.GetString("NAME", ""))
}

func TestScalarAndCompositeAreExclusive(t *testing.T) {
	v := NewString("text")
	v.PutString("a", "1")
	assert.True(t, v.IsComposite())
	assert.Equal(t, "", v.Text())

	v.SetText("again")
	assert.False(t, v.IsComposite())
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, "again", v.Text())
}

func TestAutoKeyAppendsAfterLargestNumericKey(t *testing.T) {
	list := New()
	first := list.Put(AutoKey, NewString("a"))
	require.NotNil(t, first)
	list.Put(AutoKey, NewString("b"))
	list.PutString("7", "c")
	list.PutString("label", "ignored")
	list.Put(AutoKey, NewString("d"))

	assert.Equal(t, []string{"1", "2", "7", "label", "8"}, list.Keys())
	assert.Equal(t, "d", list.GetString("8", ""))
}

func TestInvalidKeysAreRejected(t *testing.T) {
	v := New()
	assert.Nil(t, v.PutString("bad key", "x"))
	assert.Nil(t, v.PutString("", "x"))
	assert.Nil(t, v.PutString("a:b", "x"))
	assert.NotNil(t, v.PutString("$ok_1", "x"))
	assert.Equal(t, 1, v.Len())

	var missing *Value
	assert.Nil(t, missing.PutString("a", "b"))
	assert.Equal(t, "def", missing.GetString("a", "def"))
}

func TestRemoveAndChild(t *testing.T) {
	v := New()
	v.Child("stats").PutInt("str", 10)
	v.Child("Stats").PutInt("dex", 12)

	assert.Equal(t, 10, v.Get("stats").GetInt("STR", 0))
	assert.Equal(t, 12, v.Get("stats").GetInt("dex", 0))
	assert.True(t, v.Remove("STATS"))
	assert.False(t, v.Remove("stats"))
	assert.Equal(t, 0, v.Len())
}

func TestNumberAccessors(t *testing.T) {
	v := New()
	v.PutNumber("Age", 30)
	v.PutNumber("Ratio", 0.125)
	v.PutString("Junk", "abc")

	assert.Equal(t, "30", v.GetString("Age", ""))
	assert.Equal(t, 30.0, v.GetNumber("Age", 0))
	assert.Equal(t, 0.125, v.GetNumber("Ratio", 0))
	assert.Equal(t, -1.0, v.GetNumber("Junk", -1))
	assert.Equal(t, -1.0, v.GetNumber("Missing", -1))
	assert.Equal(t, 30, v.GetInt("Age", 0))
	assert.Equal(t, 5, v.GetInt("Junk", 5))
}

func TestBoolAccessors(t *testing.T) {
	v := New()
	v.PutBool("On", true)
	v.PutBool("Off", false)
	v.PutString("Shout", "YES")
	v.PutString("Numeric", "2")
	v.PutString("Zero", "0")
	v.PutString("Junk", "maybe")

	assert.Equal(t, "Yes", v.GetString("On", ""))
	assert.Equal(t, "No", v.GetString("Off", ""))
	assert.True(t, v.GetBool("On", false))
	assert.False(t, v.GetBool("Off", true))
	assert.True(t, v.GetBool("Shout", false))
	assert.True(t, v.GetBool("Numeric", false))
	assert.False(t, v.GetBool("Zero", true))
	assert.True(t, v.GetBool("Junk", true))
}

var testColors = NewEnumTable("Red", "Green", "Blue")

func TestEnumAccessors(t *testing.T) {
	v := New()
	require.NotNil(t, v.PutEnum("Color", testColors, 2))
	assert.Equal(t, "Blue", v.GetString("Color", ""))
	assert.Equal(t, 2, v.GetEnum("Color", testColors, 0))

	v.PutString("Other", "green")
	assert.Equal(t, 1, v.GetEnum("Other", testColors, 0))

	v.PutString("Bad", "Purple")
	assert.Equal(t, -1, v.GetEnum("Bad", testColors, -1))

	assert.Nil(t, v.PutEnum("Color", testColors, 3))
	assert.Equal(t, 3, testColors.Len())
}

var testFlags = NewBitNames("Wizard", "Builder", "Muted")

func TestBitAccessors(t *testing.T) {
	v := New()
	v.PutBits("Flags", testFlags, 0b101)

	flags := v.Get("Flags")
	require.NotNil(t, flags)
	assert.Equal(t, []string{"Wizard", "Builder", "Muted"}, flags.Keys())
	assert.True(t, flags.GetBool("Wizard", false))
	assert.False(t, flags.GetBool("Builder", true))
	assert.Equal(t, uint64(0b101), v.GetBits("Flags", testFlags, 0))

	flags.Remove("Muted")
	assert.Equal(t, uint64(0b001), v.GetBits("Flags", testFlags, 0))
	assert.Equal(t, uint64(0b101), v.GetBits("Flags", testFlags, 0b100))
	assert.Equal(t, uint64(0b010), v.GetBits("Missing", testFlags, 0b010))

	assert.Equal(t, []string{"Wizard", "Muted"}, testFlags.Names(0b101))
	bit, ok := testFlags.Bit("builder")
	assert.True(t, ok)
	assert.Equal(t, uint64(0b010), bit)
}

func TestTimeAccessors(t *testing.T) {
	when := time.Date(2024, time.March, 9, 17, 5, 42, 0, time.UTC)
	v := New()
	v.PutTime("Seen", when)
	assert.Equal(t, "2024-03-09 17:05:42", v.GetString("Seen", ""))
	assert.True(t, when.Equal(v.GetTime("Seen", time.Time{})))

	precise := when.Add(123 * time.Millisecond)
	v.PutTime("Precise", precise)
	assert.Equal(t, "2024-03-09 17:05:42.123000000", v.GetString("Precise", ""))
	assert.True(t, precise.Equal(v.GetTime("Precise", time.Time{})))
}

func TestParseTimeFieldCounts(t *testing.T) {
	def := time.Unix(0, 0).UTC()
	cases := []struct {
		text  string
		valid bool
		want  time.Time
	}{
		{"2024-03-09", true, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"2024-03-09 01:02:03", true, time.Date(2024, 3, 9, 1, 2, 3, 0, time.UTC)},
		{"2024-03-09 01:02:03.000000007", true, time.Date(2024, 3, 9, 1, 2, 3, 7, time.UTC)},
		{"2024-03-09 01:02:03.5", true, time.Date(2024, 3, 9, 1, 2, 3, 500000000, time.UTC)},
		{"2024-03-09 01:02:03.123", true, time.Date(2024, 3, 9, 1, 2, 3, 123000000, time.UTC)},
		{"2024 3 9 1 2 3", false, def},
		{"2024x03y09", false, def},
		{"2024-03-09-", false, def},
		{"2024-03-09 01:02:03.", false, def},
		{"2024-03-09T01:02:03", false, def},
		{"2024-03-09 01:02:03.1234567890", false, def},
		{"2024-03", false, def},
		{"2024-03-09 01", false, def},
		{"2024-03-09 01:02", false, def},
		{"2024-02-30", false, def},
		{"2024-03-09 25:00:00", false, def},
		{"2024-03-09 01:02:03.5x", false, def},
		{"yesterday", false, def},
		{"", false, def},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := ParseTime(tc.text)
			assert.Equal(t, tc.valid, ok)

			// A successfully validated timestamp is returned rather than the
			// caller's default; only rejected field counts fall back.
			v := New()
			v.PutString("When", tc.text)
			assert.True(t, tc.want.Equal(v.GetTime("When", def)), "got %v", got)
		})
	}
}

func TestSortIsExplicitAndCaseInsensitive(t *testing.T) {
	v := New()
	v.PutString("beta", "2")
	v.PutString("Alpha", "1")
	nested := v.Child("gamma")
	nested.PutString("z", "")
	nested.PutString("Y", "")

	assert.Equal(t, []string{"beta", "Alpha", "gamma"}, v.Keys())
	v.Sort(false)
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, v.Keys())
	assert.Equal(t, []string{"z", "Y"}, nested.Keys())
	v.Sort(true)
	assert.Equal(t, []string{"Y", "z"}, nested.Keys())
}

func TestCloneIsDeep(t *testing.T) {
	v := New()
	v.Child("inner").PutString("k", "v")
	c := v.Clone()
	require.True(t, Equal(v, c))

	c.Get("inner").PutString("k", "changed")
	assert.Equal(t, "v", v.Get("inner").GetString("k", ""))
	assert.False(t, Equal(v, c))
}
