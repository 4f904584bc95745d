package model

import "time"

// DefaultNote is stored when a reservation is submitted without a note.
const DefaultNote = "Study room booking"

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewTimeRange(start time.Time, d time.Duration) TimeRange {
	return TimeRange{Start: start, End: start.Add(d)}
}

func (tr TimeRange) Valid() bool {
	return tr.Start.Before(tr.End)
}

// Overlaps reports whether the two ranges share any instant. Back-to-back
// ranges (one ends exactly when the other starts) do not overlap.
func (tr TimeRange) Overlaps(o TimeRange) bool {
	return tr.Start.Before(o.End) && tr.End.After(o.Start)
}

func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

type Reservation struct {
	ID                string     `json:"id"`
	ResourceID        string     `json:"resourceId"`
	RoomName          string     `json:"roomName"`
	Summary           string     `json:"summary"`
	Start             time.Time  `json:"start"`
	End               time.Time  `json:"end"`
	OwnerEmail        string     `json:"bookedBy"`
	VerificationToken string     `json:"-"`
	Note              string     `json:"note,omitempty"`
	CheckedInAt       *time.Time `json:"checkedInAt,omitempty"`
}

func (r *Reservation) Range() TimeRange {
	return TimeRange{Start: r.Start, End: r.End}
}

func (r *Reservation) CheckedIn() bool {
	return r.CheckedInAt != nil
}

// Clone returns a deep copy so stores can hand out values callers may mutate.
func (r *Reservation) Clone() *Reservation {
	c := *r
	if r.CheckedInAt != nil {
		at := *r.CheckedInAt
		c.CheckedInAt = &at
	}
	return &c
}

// CreateReservationRequest is the submit payload. StartTime is a local wall
// clock string (e.g. "2025-11-14T17:35") interpreted in the configured zone.
type CreateReservationRequest struct {
	RoomName          string `json:"roomName" validate:"required,max=100"`
	StartTime         string `json:"startTime" validate:"required"`
	Duration          int    `json:"duration" validate:"required,min=1"`
	UserEmail         string `json:"userEmail" validate:"required,email,max=254"`
	VerificationToken string `json:"verificationToken,omitempty" validate:"omitempty,verification_token"`
	Note              string `json:"note,omitempty" validate:"max=1000"`
}

// Credential identifies the caller on cancel and check-in.
type Credential struct {
	UserEmail         string `json:"userEmail,omitempty" validate:"omitempty,email"`
	VerificationToken string `json:"verificationToken,omitempty" validate:"omitempty,verification_token"`
}

func (c Credential) Empty() bool {
	return c.UserEmail == "" && c.VerificationToken == ""
}

const SummarySuffix = " - Booked"

// SummaryFor returns the display title written to the calendar.
func SummaryFor(roomName string) string {
	return roomName + SummarySuffix
}
