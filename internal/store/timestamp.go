package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTime renders t in UTC as "YYYY-MM-DD HH:MM:SS", followed by
// ".NNNNNNNNN" when t has a sub-second part.
func FormatTime(t time.Time) string {
	t = t.UTC()
	s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	if ns := t.Nanosecond(); ns != 0 {
		s += fmt.Sprintf(".%09d", ns)
	}
	return s
}

// timeSeparators[i] is the character FormatTime writes after field i.
var timeSeparators = [...]byte{'-', '-', ' ', ':', ':', '.'}

// ParseTime reads the form FormatTime writes: year, month, day, hour, minute,
// second and a fraction of a second. Only three (a date), six or seven fields
// make a valid timestamp. A fraction shorter than nine digits is read as a
// decimal, so ".5" is half a second.
func ParseTime(text string) (time.Time, bool) {
	text = strings.TrimLeft(text, " ")
	var fields [7]int
	n := 0
	for {
		digits := 0
		for digits < len(text) && text[digits] >= '0' && text[digits] <= '9' {
			digits++
		}
		if digits == 0 || digits > 9 {
			return time.Time{}, false
		}
		val, _ := strconv.Atoi(text[:digits])
		if n == 6 {
			for i := digits; i < 9; i++ {
				val *= 10
			}
		}
		fields[n] = val
		n++
		text = text[digits:]
		if text == "" {
			break
		}
		if n == len(fields) || text[0] != timeSeparators[n-1] {
			return time.Time{}, false
		}
		text = text[1:]
	}
	switch n {
	case 3, 6, 7:
	default:
		return time.Time{}, false
	}
	if fields[3] > 23 || fields[4] > 59 || fields[5] > 59 {
		return time.Time{}, false
	}
	t := time.Date(fields[0], time.Month(fields[1]), fields[2],
		fields[3], fields[4], fields[5], fields[6], time.UTC)
	if t.Month() != time.Month(fields[1]) || t.Day() != fields[2] {
		return time.Time{}, false
	}
	return t, true
}
