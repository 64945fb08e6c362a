package quota

import "testing"

func TestRequiresCursillo(t *testing.T) {
	tests := []struct {
		grade string
		want  bool
	}{
		{"8vo EGB", true},
		{"8VO", true},
		{"  8vo egb ", true},
		{"1ro BGU", true},
		{"1RO BGU", true},
		{"1ero BGU", true},
		{"7mo EGB", false},
		{"9no EGB", false},
		{"2do BGU", false},
		{"3ro BGU", false},
		{"Inicial 1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.grade, func(t *testing.T) {
			if got := RequiresCursillo(tt.grade); got != tt.want {
				t.Errorf("RequiresCursillo(%q) = %v, want %v", tt.grade, got, tt.want)
			}
		})
	}
}
