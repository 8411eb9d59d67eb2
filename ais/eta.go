package ais

import "time"

// composeETA applies the ETA rule from static & voyage data messages: month,
// day, hour and minute are given, the year is inferred as the current UTC
// year rolled forward one if the (month, day) pair has already passed this
// year. Seconds are always zero.
//
// AIS encodes "no ETA available" as month=0 (and the codec may hand us any
// of month, day, hour or minute as zero for an absent field); a nil return
// means no ETA, never a failure.
func composeETA(now time.Time, month, day, hour, minute uint) *time.Time {
	if month == 0 || month > 12 || day == 0 || day > 31 || hour > 23 || minute > 59 {
		return nil
	}

	now = now.UTC()
	year := now.Year()
	if lessMonthDay(int(month), int(day), int(now.Month()), now.Day()) {
		year++
	}

	eta := time.Date(year, time.Month(month), int(day), int(hour), int(minute), 0, 0, time.UTC)
	// time.Date silently normalizes out-of-range days (e.g. Feb 31 becomes
	// Mar 3); treat that as a failed composition rather than a surprising ETA.
	if int(eta.Month()) != int(month) || eta.Day() != int(day) {
		return nil
	}
	return &eta
}

func lessMonthDay(month, day, nowMonth, nowDay int) bool {
	if month != nowMonth {
		return month < nowMonth
	}
	return day < nowDay
}
