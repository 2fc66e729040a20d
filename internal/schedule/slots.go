package schedule

import "sort"

// FreeSlots computes the open service windows inside a single contiguous
// shift, tiling fixed-duration windows left to right around the booked
// intervals ("ruler" walk). The cursor starts at shift start; before each
// booking it emits every full window that fits, then jumps to the later of
// its current position and the booking's end, so overlapping, adjacent and
// encompassing bookings all just push the cursor forward. Windows are
// aligned to the duration grid anchored at shift start, not packed tightly
// against booking boundaries.
//
// Booked intervals may arrive in any order; the input slice is not modified.
func FreeSlots(shift Interval, booked []Interval, duration int) []Interval {
	if duration <= 0 {
		return nil
	}

	sorted := make([]Interval, len(booked))
	copy(sorted, booked)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var free []Interval
	cursor := shift.Start

	for _, b := range sorted {
		for cursor+duration <= b.Start {
			free = append(free, Interval{Start: cursor, End: cursor + duration})
			cursor += duration
		}
		if b.End > cursor {
			cursor = b.End
		}
	}

	for cursor+duration <= shift.End {
		free = append(free, Interval{Start: cursor, End: cursor + duration})
		cursor += duration
	}

	return free
}
