package schedule

import "testing"

func TestTimeToMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"18:30", 1110, false},
		{"23:59", 1439, false},
		{"9", 0, true},
		{"9:60", 0, true},
		{"25:00", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, c := range cases {
		got, err := TimeToMinutes(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("TimeToMinutes(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("TimeToMinutes(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("TimeToMinutes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestMinutesToTime_ZeroPads(t *testing.T) {
	cases := map[int]string{
		0:    "00:00",
		540:  "09:00",
		750:  "12:30",
		1110: "18:30",
	}
	for in, want := range cases {
		if got := MinutesToTime(in); got != want {
			t.Errorf("MinutesToTime(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("09:00-18:00")
	if err != nil {
		t.Fatalf("ParseInterval: %v", err)
	}
	if iv.Start != 540 || iv.End != 1080 {
		t.Fatalf("interval = %+v, want {540 1080}", iv)
	}
	if iv.String() != "09:00-18:00" {
		t.Fatalf("String() = %q, want %q", iv.String(), "09:00-18:00")
	}

	for _, bad := range []string{"09:00", "18:00-09:00", "10:00-10:00", "none", ""} {
		if _, err := ParseInterval(bad); err == nil {
			t.Errorf("ParseInterval(%q): expected error", bad)
		}
	}
}
