// Package schedule holds the pure shift-time arithmetic: turning templates
// into dated instance boundaries and resolving which template follows which
// across the daily rotation.
package schedule

import (
	"fmt"
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

const minutesPerDay = 24 * 60

// Bounds are the four absolute boundaries of a FROM->TO transition.
type Bounds struct {
	FromStart time.Time
	FromEnd   time.Time
	ToStart   time.Time
	ToEnd     time.Time
}

// clockMinutes parses an "HH:MM" clock string into minutes since midnight.
func clockMinutes(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func onDay(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).
		Add(time.Duration(minutes) * time.Minute)
}

// Boundaries computes the absolute start/end of both shift instances for a
// transition between two templates on the given day. A template whose end
// clock precedes its start crosses midnight, so its end rolls to the next
// day; the TO shift's span rolls forward a further day when it would
// otherwise start before the FROM shift ends.
func Boundaries(from, to models.ShiftTemplate, day time.Time) (Bounds, error) {
	fromStartMin, err := clockMinutes(from.StartTime)
	if err != nil {
		return Bounds{}, err
	}
	fromEndMin, err := clockMinutes(from.EndTime)
	if err != nil {
		return Bounds{}, err
	}
	toStartMin, err := clockMinutes(to.StartTime)
	if err != nil {
		return Bounds{}, err
	}
	toEndMin, err := clockMinutes(to.EndTime)
	if err != nil {
		return Bounds{}, err
	}

	if fromEndMin <= fromStartMin {
		fromEndMin += minutesPerDay
	}
	if toEndMin <= toStartMin {
		toEndMin += minutesPerDay
	}

	b := Bounds{
		FromStart: onDay(day, fromStartMin),
		FromEnd:   onDay(day, fromEndMin),
		ToStart:   onDay(day, toStartMin),
		ToEnd:     onDay(day, toEndMin),
	}

	for b.ToStart.Before(b.FromEnd) {
		b.ToStart = b.ToStart.Add(24 * time.Hour)
		b.ToEnd = b.ToEnd.Add(24 * time.Hour)
	}

	return b, nil
}

// Next returns the template that chronologically follows the given one in the
// daily rotation, or nil when fewer than two templates exist. Candidates
// starting before the reference's end clock are treated as starting the next
// day; the earliest candidate whose normalized start is at or after the
// reference's end wins, falling back to the overall earliest template for the
// night-into-morning rollover.
func Next(templates []models.ShiftTemplate, templateID string) (*models.ShiftTemplate, error) {
	if len(templates) < 2 {
		return nil, nil
	}

	var ref *models.ShiftTemplate
	for i := range templates {
		if templates[i].ID == templateID {
			ref = &templates[i]
			break
		}
	}
	if ref == nil {
		return nil, fmt.Errorf("shift template %s not found", templateID)
	}

	refStart, err := clockMinutes(ref.StartTime)
	if err != nil {
		return nil, err
	}
	refEndRaw, err := clockMinutes(ref.EndTime)
	if err != nil {
		return nil, err
	}
	refEnd := refEndRaw
	if refEnd <= refStart {
		refEnd += minutesPerDay
	}

	var best, earliest *models.ShiftTemplate
	bestStart := 2 * minutesPerDay
	earliestStart := 2 * minutesPerDay

	for i := range templates {
		t := &templates[i]
		if t.ID == ref.ID {
			continue
		}
		start, err := clockMinutes(t.StartTime)
		if err != nil {
			return nil, err
		}

		if start < earliestStart {
			earliest = t
			earliestStart = start
		}

		normalized := start
		if normalized < refEndRaw {
			normalized += minutesPerDay
		}
		if normalized >= refEnd && normalized < bestStart {
			best = t
			bestStart = normalized
		}
	}

	if best != nil {
		return best, nil
	}
	return earliest, nil
}

// Previous returns the template whose Next is the given one, or nil when
// fewer than two templates exist.
func Previous(templates []models.ShiftTemplate, templateID string) (*models.ShiftTemplate, error) {
	if len(templates) < 2 {
		return nil, nil
	}

	found := false
	for i := range templates {
		if templates[i].ID == templateID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("shift template %s not found", templateID)
	}

	for i := range templates {
		if templates[i].ID == templateID {
			continue
		}
		next, err := Next(templates, templates[i].ID)
		if err != nil {
			return nil, err
		}
		if next != nil && next.ID == templateID {
			return &templates[i], nil
		}
	}
	return nil, nil
}
