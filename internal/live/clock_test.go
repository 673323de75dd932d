package live

import "testing"

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"73'", 73},
		{"45+2", 45},
		{"90+4", 90},
		{"HT", 45},
		{"Intervalo", 45},
		{"FT", 90},
		{"Final", 90},
		{"Fim", 90},
		{"Terminado", 90},
		{"Ended", 90},
		{"12:34", 12},
		{"", 0},
		{"ao vivo", 0},
		{"  88 ", 88},
	}
	for _, tt := range tests {
		if got := ParseClock(tt.raw); got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestIsFinished(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"FT", true},
		{"Final", true},
		{"fim", true},
		{"Terminado", true},
		{"ENDED", true},
		{"90+3", true},
		{"90", false}, // stoppage time may still be running
		{"89'", false},
		{"HT", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsFinished(tt.raw); got != tt.want {
			t.Errorf("IsFinished(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
