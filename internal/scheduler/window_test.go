package scheduler

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 5, 10, hour, min, 0, 0, time.UTC)
}

func TestWindowContains(t *testing.T) {
	tests := []struct {
		name   string
		window string
		when   time.Time
		want   bool
	}{
		{name: "inside plain window", window: "08:00-22:00", when: at(12, 0), want: true},
		{name: "before plain window", window: "08:00-22:00", when: at(7, 59), want: false},
		{name: "at plain window end", window: "08:00-22:00", when: at(22, 0), want: false},
		{name: "wrap window late evening", window: "22:00-06:00", when: at(23, 30), want: true},
		{name: "wrap window early morning", window: "22:00-06:00", when: at(2, 0), want: true},
		{name: "wrap window midday", window: "22:00-06:00", when: at(10, 0), want: false},
		{name: "always open", window: "00:00-00:00", when: at(10, 0), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, err := ParseWindow(tc.window)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.window, err)
			}
			if got := w.Contains(tc.when); got != tc.want {
				t.Fatalf("window %s at %s = %v, expected %v", tc.window, tc.when.Format("15:04"), got, tc.want)
			}
		})
	}
}

func TestParseWindowRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "08:00", "8am-10pm", "25:00-26:00"} {
		if _, err := ParseWindow(input); err == nil {
			t.Fatalf("ParseWindow(%q) accepted invalid input", input)
		}
	}
}
