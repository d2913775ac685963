package schedule

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ConflictKind categorizes why a placement was rejected.
type ConflictKind int

const (
	VenueUnavailable ConflictKind = iota + 1
	VenueOverlap
	TeamOverlap
)

func (k ConflictKind) String() string {
	switch k {
	case VenueUnavailable:
		return "VenueUnavailable"
	case VenueOverlap:
		return "VenueOverlap"
	case TeamOverlap:
		return "TeamOverlap"
	default:
		return "Unknown"
	}
}

// MarshalText renders the kind by name in API responses.
func (k ConflictKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Conflict is a rejected placement. It is an ordinary outcome, not a failure:
// the caller shows Reason and lets the user pick another slot.
type Conflict struct {
	Kind   ConflictKind
	Reason string
	// GameID is the existing game that collided, if any.
	GameID uuid.UUID
	// Teams holds the ids of the teams that are already playing.
	Teams []string
}

func (c *Conflict) Error() string {
	return c.Reason
}

// Overlaps reports whether the half-open intervals [s1, e1) and [s2, e2)
// intersect. Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 Clock) bool {
	return s1 < e2 && s2 < e1
}

// Checker decides whether a placement is legal.
type Checker struct {
	// TeamName resolves a team id to a display name for conflict reasons.
	// Ids are used as-is when nil.
	TeamName func(id string) string
	// EnforceClosingTime also rejects games that would run past the venue's
	// closing time. Only the start time is checked when false.
	EnforceClosingTime bool
}

// CheckPlacement runs the venue-hours, venue-overlap and team-overlap checks
// in that order and reports the first one that fails, or nil.
func (c Checker) CheckPlacement(a Attempt, existing []Game) *Conflict {
	if conflict := c.checkHours(a); conflict != nil {
		return conflict
	}
	return c.CheckOverlap(a, existing, uuid.Nil)
}

// CheckOverlap runs only the venue-overlap and team-overlap checks, ignoring
// the game with id exclude. Resizes and moves use it to skip the game being
// modified.
func (c Checker) CheckOverlap(a Attempt, existing []Game, exclude uuid.UUID) *Conflict {
	start, end := a.Start, a.End()

	for _, g := range existing {
		if exclude != uuid.Nil && g.ID == exclude {
			continue
		}
		if g.VenueID != a.Venue.ID || !SameDay(g.Date, a.Date) {
			continue
		}
		if Overlaps(start, end, g.Start, g.End()) {
			return &Conflict{
				Kind:   VenueOverlap,
				GameID: g.ID,
				Reason: fmt.Sprintf("%s is already booked %s-%s on %s",
					venueLabel(a.Venue), g.Start, g.End(), a.Date.Format("2006-01-02")),
			}
		}
	}

	var busy []string
	var clash uuid.UUID
	for _, team := range a.Matchup.Teams() {
		for _, g := range existing {
			if exclude != uuid.Nil && g.ID == exclude {
				continue
			}
			if !g.Involves(team) || !SameDay(g.Date, a.Date) {
				continue
			}
			if Overlaps(start, end, g.Start, g.End()) {
				busy = append(busy, team)
				if clash == uuid.Nil {
					clash = g.ID
				}
				break
			}
		}
	}
	if len(busy) > 0 {
		names := make([]string, len(busy))
		for i, team := range busy {
			names[i] = c.name(team)
		}
		verb := "is"
		if len(busy) > 1 {
			verb = "are"
		}
		return &Conflict{
			Kind:   TeamOverlap,
			GameID: clash,
			Teams:  busy,
			Reason: fmt.Sprintf("%s %s already playing between %s and %s on %s",
				strings.Join(names, " and "), verb, start, end, a.Date.Format("2006-01-02")),
		}
	}

	return nil
}

func (c Checker) checkHours(a Attempt) *Conflict {
	if !IsTimeAvailable(a.Start, a.Venue) {
		return &Conflict{
			Kind: VenueUnavailable,
			Reason: fmt.Sprintf("%s is only available %s-%s; %s is outside operating hours",
				venueLabel(a.Venue), a.Venue.Open, a.Venue.Close, a.Start),
		}
	}
	return c.checkClosing(a)
}

func (c Checker) checkClosing(a Attempt) *Conflict {
	if c.EnforceClosingTime && a.End() > a.Venue.Close {
		return &Conflict{
			Kind: VenueUnavailable,
			Reason: fmt.Sprintf("%s closes at %s; a game starting %s would end at %s",
				venueLabel(a.Venue), a.Venue.Close, a.Start, a.End()),
		}
	}
	return nil
}

func (c Checker) name(team string) string {
	if c.TeamName == nil {
		return team
	}
	if n := c.TeamName(team); n != "" {
		return n
	}
	return team
}

func venueLabel(v Venue) string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}
