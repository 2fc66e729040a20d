package schedule

import (
	"reflect"
	"testing"
)

func mustInterval(t *testing.T, s string) Interval {
	t.Helper()
	iv, err := ParseInterval(s)
	if err != nil {
		t.Fatalf("ParseInterval(%q): %v", s, err)
	}
	return iv
}

func slotStrings(slots []Interval) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func TestFreeSlots(t *testing.T) {
	cases := []struct {
		name   string
		shift  string
		booked []string
		want   []string
	}{
		{
			name:  "empty day tiles the full shift",
			shift: "09:00-18:00",
			want:  []string{"09:00-11:00", "11:00-13:00", "13:00-15:00", "15:00-17:00"},
		},
		{
			name:   "mid-day booking restarts the grid at its end",
			shift:  "09:00-18:00",
			booked: []string{"11:00-12:30"},
			want:   []string{"09:00-11:00", "12:30-14:30", "14:30-16:30"},
		},
		{
			name:   "unsorted bookings are normalized",
			shift:  "08:00-20:00",
			booked: []string{"16:00-17:00", "09:00-10:00"},
			want:   []string{"10:00-12:00", "12:00-14:00", "14:00-16:00", "17:00-19:00"},
		},
		{
			name:   "overlapping bookings only push the cursor forward",
			shift:  "09:00-18:00",
			booked: []string{"10:00-13:00", "12:00-14:00"},
			want:   []string{"14:00-16:00", "16:00-18:00"},
		},
		{
			name:   "booking encompassing an earlier one is harmless",
			shift:  "09:00-18:00",
			booked: []string{"11:00-12:00", "10:30-13:00"},
			want:   []string{"13:00-15:00", "15:00-17:00"},
		},
		{
			name:   "short booking still consumes grid alignment",
			shift:  "09:00-17:00",
			booked: []string{"09:10-09:20"},
			want:   []string{"09:20-11:20", "11:20-13:20", "13:20-15:20"},
		},
		{
			name:   "booking past shift end yields nothing after it",
			shift:  "09:00-18:00",
			booked: []string{"15:00-20:00"},
			want:   []string{"09:00-11:00", "11:00-13:00", "13:00-15:00"},
		},
		{
			name:  "shift shorter than one window",
			shift: "09:00-10:30",
			want:  nil,
		},
		{
			name:   "fully booked day",
			shift:  "09:00-17:00",
			booked: []string{"09:00-17:00"},
			want:   nil,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			shift := mustInterval(t, c.shift)
			var booked []Interval
			for _, b := range c.booked {
				booked = append(booked, mustInterval(t, b))
			}

			got := slotStrings(FreeSlots(shift, booked, ServiceDuration))
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("FreeSlots = %v, want %v", got, c.want)
			}
		})
	}
}

func TestFreeSlots_EmptyDayWindowCount(t *testing.T) {
	// With no bookings the shift is tiled by floor(shiftLen/duration) windows.
	shifts := []string{"09:00-18:00", "08:00-20:00", "10:00-12:00", "06:15-13:45"}
	for _, s := range shifts {
		shift := mustInterval(t, s)
		slots := FreeSlots(shift, nil, ServiceDuration)
		want := (shift.End - shift.Start) / ServiceDuration
		if len(slots) != want {
			t.Errorf("shift %s: got %d windows, want %d", s, len(slots), want)
		}
		for i, slot := range slots {
			if slot.End-slot.Start != ServiceDuration {
				t.Errorf("shift %s: window %d has length %d", s, i, slot.End-slot.Start)
			}
			if slot.Start != shift.Start+i*ServiceDuration {
				t.Errorf("shift %s: window %d starts at %d, want %d", s, i, slot.Start, shift.Start+i*ServiceDuration)
			}
		}
	}
}

func TestFreeSlots_DisjointOrderedWithinShift(t *testing.T) {
	shift := mustInterval(t, "08:00-20:00")
	booked := []Interval{
		mustInterval(t, "09:00-10:00"),
		mustInterval(t, "13:00-14:30"),
		mustInterval(t, "18:00-19:00"),
	}

	slots := FreeSlots(shift, booked, ServiceDuration)
	if len(slots) == 0 {
		t.Fatal("expected some free slots")
	}

	for i, slot := range slots {
		if slot.Start < shift.Start || slot.End > shift.End {
			t.Errorf("slot %s escapes shift", slot)
		}
		if i > 0 && slot.Start < slots[i-1].End {
			t.Errorf("slot %s overlaps or precedes %s", slot, slots[i-1])
		}
		for _, b := range booked {
			if slot.Start < b.End && b.Start < slot.End {
				t.Errorf("slot %s overlaps booking %s", slot, b)
			}
		}
	}
}

func TestFreeSlots_PureAndOrderInsensitive(t *testing.T) {
	shift := mustInterval(t, "09:00-18:00")
	a := []Interval{mustInterval(t, "11:00-12:30"), mustInterval(t, "15:00-16:00")}
	b := []Interval{a[1], a[0]}

	first := FreeSlots(shift, a, ServiceDuration)
	second := FreeSlots(shift, b, ServiceDuration)
	third := FreeSlots(shift, a, ServiceDuration)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("booking order changed output: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(first, third) {
		t.Fatalf("repeated call changed output: %v vs %v", first, third)
	}
	if !reflect.DeepEqual(a[0], mustInterval(t, "11:00-12:30")) {
		t.Fatal("input slice was mutated")
	}
}
