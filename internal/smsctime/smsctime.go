// Package smsctime parses and formats the schedule_delivery_time and
// validity_period fields of submit_sm/deliver_sm, which SMPP 3.4 §7.1
// encodes as either an absolute/relative 16 byte string or a 10/12/14
// byte simple timestamp.
package smsctime

import (
	"errors"
	"fmt"
	"time"
)

// Layout identifies which of the four wire encodings a time string uses.
type Layout int

const (
	// SimpleSeconds is YYMMDDhhmmss.
	SimpleSeconds Layout = iota
	// SimpleMinutes is YYMMDDhhmm.
	SimpleMinutes
	// Absolute is YYMMDDhhmmsstnn[+-].
	Absolute
	// Relative is YYMMDDhhmmss000R.
	Relative
)

const (
	simpleSecondsFormat   = "060102150405"
	simpleMinutesFormat   = "0601021504"
	wideYearSecondsFormat = "20060102150405"
	quarterHourSeconds    = 15 * 60
)

// Parse converts the wire representation of schedule_delivery_time or
// validity_period into time.Time. An empty or single-NUL input (the
// "immediate"/"no expiry" case) returns the zero time with no error.
// Relative layouts are resolved against the current wall clock.
func Parse(in []byte) (time.Time, error) {
	switch len(in) {
	case 0, 1:
		return time.Time{}, nil
	case 10:
		return time.Parse(simpleMinutesFormat, string(in))
	case 12:
		return time.Parse(simpleSecondsFormat, string(in))
	case 14:
		return time.Parse(wideYearSecondsFormat, string(in))
	case 16:
		return parseExtended(in)
	default:
		return time.Time{}, fmt.Errorf("smsctime: invalid time length %d in %q", len(in), in)
	}
}

// parseExtended handles the 16 byte absolute/relative layouts, dispatching
// on the trailing indicator byte.
func parseExtended(in []byte) (time.Time, error) {
	switch indicator := in[15]; indicator {
	case 'R':
		return parseRelative(in), nil
	case '+', '-':
		return parseAbsolute(in, indicator)
	default:
		return time.Time{}, fmt.Errorf("smsctime: invalid layout indicator in %q", in)
	}
}

// parseRelative reads the six YY/MM/DD/hh/mm/ss digit pairs and resolves
// them against the current wall clock; SMPP gives no other reference
// point for a relative validity period or schedule time.
func parseRelative(in []byte) time.Time {
	years := digitPair(in[0], in[1])
	months := digitPair(in[2], in[3])
	days := digitPair(in[4], in[5])
	hours := digitPair(in[6], in[7])
	mins := digitPair(in[8], in[9])
	secs := digitPair(in[10], in[11])
	return time.Now().
		AddDate(years, months, days).
		Add(time.Duration(hours)*time.Hour +
			time.Duration(mins)*time.Minute +
			time.Duration(secs)*time.Second)
}

// parseAbsolute reads the YYMMDDhhmmss prefix plus tenths-of-second and
// quarter-hour UTC offset, the latter signed by indicator.
func parseAbsolute(in []byte, indicator byte) (time.Time, error) {
	quarters := digitPair(in[13], in[14])
	loc := quarterHourLocation(quarters, indicator == '-')
	t, err := time.ParseInLocation(simpleSecondsFormat, string(in[:12]), loc)
	if err != nil {
		return time.Time{}, err
	}
	tenths := time.Duration(in[12]-'0') * 100 * time.Millisecond
	return t.Add(tenths), nil
}

func quarterHourLocation(quarters int, negative bool) *time.Location {
	offset := quarters * quarterHourSeconds
	if negative {
		offset = -offset
	}
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("smpp", offset)
}

// digitPair reads two ASCII decimal digits as a two-digit integer.
func digitPair(tens, ones byte) int {
	return int(tens-'0')*10 + int(ones-'0')
}

// Format renders t in the requested wire layout.
func Format(layout Layout, t time.Time) (string, error) {
	switch layout {
	case SimpleSeconds:
		return t.Format(simpleSecondsFormat), nil
	case SimpleMinutes:
		return t.Format(simpleMinutesFormat), nil
	case Relative:
		y, mo, d, h, mi, s := diff(t, time.Now())
		return fmt.Sprintf("%02d%02d%02d%02d%02d%02d000R", y, mo, d, h, mi, s), nil
	case Absolute:
		quarters, sign := quarterHourOffset(t)
		return fmt.Sprintf("%s%d%02d%s", t.Format(simpleSecondsFormat), t.Nanosecond()/100000000, quarters, sign), nil
	default:
		return "", errors.New("smsctime: invalid format layout")
	}
}

// quarterHourOffset is the inverse of quarterHourLocation: it reduces
// t's zone offset back to a quarter-hour count and sign byte.
func quarterHourOffset(t time.Time) (quarters int, sign string) {
	_, secondsEast := t.Zone()
	quarters = secondsEast / quarterHourSeconds
	if quarters < 0 {
		return -quarters, "-"
	}
	return quarters, "+"
}

// diff computes the calendar difference between a and b, normalized so
// every component is non-negative. Go's time package only diffs as a
// flat duration, so months/years must be walked by hand, borrowing from
// the next larger unit whenever a component goes negative.
func diff(a, b time.Time) (year, month, day, hour, min, sec int) {
	if a.Location() != b.Location() {
		b = b.In(a.Location())
	}
	if a.After(b) {
		a, b = b, a
	}
	y1, mo1, d1 := a.Date()
	y2, mo2, d2 := b.Date()
	h1, mi1, s1 := a.Clock()
	h2, mi2, s2 := b.Clock()

	var carry int
	sec, carry = borrow(s2-s1, 60)
	min, carry = borrow(mi2-mi1-carry, 60)
	hour, carry = borrow(h2-h1-carry, 24)
	day, carry = borrowDay(d2-d1-carry, y1, mo1)
	month, carry = borrow(int(mo2-mo1)-carry, 12)
	year = y2 - y1 - carry
	return
}

// borrow normalizes v into [0, base), reporting 1 if it had to borrow
// from the next larger unit.
func borrow(v, base int) (normalized, carry int) {
	if v < 0 {
		return v + base, 1
	}
	return v, 0
}

// borrowDay is borrow's day-of-month variant: the "base" to borrow from
// is the number of days in month m of year y.
func borrowDay(v int, y int, m time.Month) (normalized, carry int) {
	if v < 0 {
		daysInMonth := time.Date(y, m, 32, 0, 0, 0, 0, time.UTC).Day()
		return v + (32 - daysInMonth), 1
	}
	return v, 0
}
