package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTimeRange_Overlaps(t *testing.T) {
	base := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }
	existing := TimeRange{Start: at(0), End: at(60)}

	tests := []struct {
		name     string
		proposed TimeRange
		want     bool
	}{
		{"back-to-back after", TimeRange{Start: at(60), End: at(120)}, false},
		{"back-to-back before", TimeRange{Start: at(-60), End: at(0)}, false},
		{"disjoint", TimeRange{Start: at(90), End: at(120)}, false},
		{"identical", TimeRange{Start: at(0), End: at(60)}, true},
		{"contains existing", TimeRange{Start: at(-30), End: at(90)}, true},
		{"contained in existing", TimeRange{Start: at(15), End: at(45)}, true},
		{"partial start", TimeRange{Start: at(-30), End: at(30)}, true},
		{"partial end", TimeRange{Start: at(30), End: at(90)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.proposed.Overlaps(existing); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := existing.Overlaps(tt.proposed); got != tt.want {
				t.Errorf("Overlaps() is not symmetric: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeRange_ValidAndContains(t *testing.T) {
	start := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	tr := NewTimeRange(start, time.Hour)

	if !tr.Valid() {
		t.Fatal("expected range to be valid")
	}
	if tr.Duration() != time.Hour {
		t.Errorf("Duration() = %s, want 1h", tr.Duration())
	}
	if !tr.Contains(start) {
		t.Error("range should contain its start")
	}
	if tr.Contains(tr.End) {
		t.Error("range should not contain its end")
	}
	if (TimeRange{Start: start, End: start}).Valid() {
		t.Error("empty range should be invalid")
	}
}

func TestReservation_JSONHidesVerificationToken(t *testing.T) {
	r := &Reservation{
		ID:                "evt1",
		RoomName:          "Room 101",
		OwnerEmail:        "a@organization.edu",
		VerificationToken: "N12345678",
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "N12345678") {
		t.Errorf("verification token leaked in JSON: %s", data)
	}
}

func TestReservation_Clone(t *testing.T) {
	at := time.Now()
	r := &Reservation{ID: "evt1", CheckedInAt: &at}

	c := r.Clone()
	later := at.Add(time.Hour)
	c.CheckedInAt = &later
	c.ID = "other"

	if r.ID != "evt1" || !r.CheckedInAt.Equal(at) {
		t.Error("Clone() shares state with the original")
	}
}
