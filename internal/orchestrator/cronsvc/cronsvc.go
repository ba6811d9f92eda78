// Package cronsvc implements the cron service (spec.md §4.11): standard
// 5-field cron parsing and next-occurrence computation for alarm clocks,
// built on github.com/robfig/cron/v3.
package cronsvc

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// IsValid reports whether expression parses as a standard 5-field cron
// expression.
func IsValid(expression string) bool {
	_, err := parser.Parse(expression)
	return err == nil
}

// NextOccurrence returns the next instant strictly greater than from (UTC).
// from defaults to now when zero.
func NextOccurrence(expression string, from time.Time) (time.Time, error) {
	schedule, err := parser.Parse(expression)
	if err != nil {
		return time.Time{}, err
	}
	if from.IsZero() {
		from = time.Now()
	}
	return schedule.Next(from.UTC()), nil
}

// Clock is the minimal alarm-clock shape the cron service operates over;
// alarmclock.Clock satisfies it.
type Clock interface {
	GetCronSchedule() string
	SetNextFireAt(t time.Time)
	GetNextFireAt() time.Time
	SetEnabled(bool)
}

// AdvanceSchedule implements spec.md §4.11's advanceSchedule: a null
// CronSchedule clears NextFireAt and disables the clock and returns false;
// otherwise sets NextFireAt to the next occurrence and reports whether the
// clock remains active.
func AdvanceSchedule(c Clock) bool {
	if c.GetCronSchedule() == "" {
		c.SetNextFireAt(time.Time{})
		c.SetEnabled(false)
		return false
	}

	next, err := NextOccurrence(c.GetCronSchedule(), time.Time{})
	if err != nil || next.IsZero() {
		c.SetNextFireAt(time.Time{})
		c.SetEnabled(false)
		return false
	}
	c.SetNextFireAt(next)
	return true
}

// InitializeNextFireAt idempotently sets NextFireAt only when a cron
// schedule is set and the field is currently unset.
func InitializeNextFireAt(c Clock) {
	if c.GetCronSchedule() == "" || !c.GetNextFireAt().IsZero() {
		return
	}
	if next, err := NextOccurrence(c.GetCronSchedule(), time.Time{}); err == nil {
		c.SetNextFireAt(next)
	}
}

// HumanDescription renders common cron forms as plain English, falling
// back to the raw expression otherwise.
func HumanDescription(expression string) string {
	fields := splitFields(expression)
	if len(fields) != 5 {
		return expression
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]
	if dom != "*" || month != "*" {
		return expression
	}
	hm, ok := formatClock(hour, minute)
	if !ok {
		return expression
	}
	switch dow {
	case "*":
		return "Daily at " + hm
	case "1-5":
		return "Weekdays at " + hm
	case "0,6", "6,0":
		return "Weekends at " + hm
	default:
		return expression
	}
}

func splitFields(expr string) []string {
	return strings.Fields(expr)
}

func formatClock(hour, minute string) (string, bool) {
	h, err1 := strconv.Atoi(hour)
	m, err2 := strconv.Atoi(minute)
	if err1 != nil || err2 != nil {
		return "", false
	}
	return pad2(h) + ":" + pad2(m), true
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
