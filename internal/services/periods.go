package services

import (
	"time"

	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// windows holds the start of every accounting period containing a moment.
type windows struct {
	day     time.Time
	month   time.Time
	year    time.Time
	night   time.Time
	isNight bool
}

// windowsAt computes the periods of lt around now in loc. Monthly and yearly
// periods of USER_REGISTRATION limit types restart on the registration
// anniversary, clamped to the last day of shorter months.
func windowsAt(lt *models.LimitType, user *models.User, now time.Time, loc *time.Location) windows {
	now = now.In(loc)
	y, m, d := now.Date()

	w := windows{day: time.Date(y, m, d, 0, 0, 0, 0, loc)}
	w.night, w.isNight = lt.NightWindow(now)

	if lt.PeriodStart == models.PeriodStartUserRegistration && user != nil && !user.CreatedAt.IsZero() {
		anchor := user.CreatedAt.In(loc)

		w.month = clampedDate(y, m, anchor.Day(), loc)
		if w.month.After(now) {
			w.month = clampedDate(y, m-1, anchor.Day(), loc)
		}

		w.year = clampedDate(y, anchor.Month(), anchor.Day(), loc)
		if w.year.After(now) {
			w.year = clampedDate(y-1, anchor.Month(), anchor.Day(), loc)
		}
		return w
	}

	w.month = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	w.year = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	return w
}

// clampedDate returns midnight of day d in month m of year y, using the last
// day of the month when d does not exist. m may be out of range.
func clampedDate(y int, m time.Month, d int, loc *time.Location) time.Time {
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, loc)
}

// roll zeroes the counters whose period ended since the tracker was last used.
func roll(t *models.UserLimitTracker, w windows) {
	if t.LastOperationAt == nil || t.LastOperationAt.Before(w.year) {
		t.YearlySpent = decimal.Zero
	}
	if t.LastOperationAt == nil || t.LastOperationAt.Before(w.month) {
		t.MonthlySpent = decimal.Zero
	}
	if t.LastOperationAt == nil || t.LastOperationAt.Before(w.day) {
		t.DailySpent = decimal.Zero
	}
	if !w.isNight || t.LastNighttimeAt == nil || t.LastNighttimeAt.Before(w.night) {
		t.NightlySpent = decimal.Zero
	}
}
