package sla

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// Clock converts wall-clock intervals into elapsed business minutes. It is
// stateless apart from the logger used to surface profile fallbacks.
type Clock struct {
	logger *zap.Logger
}

// NewClock constructs a Clock.
func NewClock(logger *zap.Logger) *Clock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clock{logger: logger}
}

// ElapsedBusinessMinutes returns the business minutes between start and end
// under the given profile. A nil profile means calendar time. An invalid
// profile degrades to calendar time with a warning; evaluation never fails.
func (c *Clock) ElapsedBusinessMinutes(start, end time.Time, profile *domain.BusinessHoursProfile) int {
	if end.Before(start) {
		return 0
	}
	if profile == nil {
		return calendarMinutes(start, end)
	}
	window, err := resolveProfile(profile)
	if err != nil {
		c.logger.Warn("invalid business-hours profile, falling back to calendar time",
			zap.String("timezone", profile.Timezone),
			zap.Error(err))
		return calendarMinutes(start, end)
	}
	return businessMinutes(start, end, profile, window)
}

// ValidateProfile checks a business-hours profile without computing anything.
func ValidateProfile(profile *domain.BusinessHoursProfile) error {
	if profile == nil {
		return nil
	}
	_, err := resolveProfile(profile)
	return err
}

// businessWindow is a parsed, timezone-resolved profile.
type businessWindow struct {
	loc                  *time.Location
	startHour, startMin  int
	endHour, endMin      int
}

func resolveProfile(profile *domain.BusinessHoursProfile) (businessWindow, error) {
	var w businessWindow
	if len(profile.Weekdays) == 0 {
		return w, fmt.Errorf("profile has no working days")
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return w, fmt.Errorf("load timezone %q: %w", profile.Timezone, err)
	}
	w.loc = loc
	if w.startHour, w.startMin, err = parseClock(profile.StartTime); err != nil {
		return w, fmt.Errorf("start time: %w", err)
	}
	if w.endHour, w.endMin, err = parseClock(profile.EndTime); err != nil {
		return w, fmt.Errorf("end time: %w", err)
	}
	startOffset := w.startHour*60 + w.startMin
	endOffset := w.endHour*60 + w.endMin
	if endOffset <= startOffset {
		return w, fmt.Errorf("end time %q not after start time %q", profile.EndTime, profile.StartTime)
	}
	return w, nil
}

// businessMinutes walks each calendar day intersecting [start, end] in the
// profile's timezone and sums the overlap with that day's business window.
// Windows are anchored to local wall-clock, so a 09:00-17:00 day stays eight
// hours across DST transitions.
func businessMinutes(start, end time.Time, profile *domain.BusinessHoursProfile, w businessWindow) int {
	localStart := start.In(w.loc)
	localEnd := end.In(w.loc)

	total := 0
	day := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, w.loc)
	for !day.After(localEnd) {
		if profile.WorksOn(day.Weekday()) {
			winStart := time.Date(day.Year(), day.Month(), day.Day(), w.startHour, w.startMin, 0, 0, w.loc)
			winEnd := time.Date(day.Year(), day.Month(), day.Day(), w.endHour, w.endMin, 0, 0, w.loc)
			lo := laterOf(winStart, localStart)
			hi := earlierOf(winEnd, localEnd)
			if hi.After(lo) {
				total += int(hi.Sub(lo) / time.Minute)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return total
}

func calendarMinutes(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

func parseClock(value string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed minute in %q", value)
	}
	return hour, minute, nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
