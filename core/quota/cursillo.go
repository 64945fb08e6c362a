package quota

import "strings"

// cursillo grade markers; entry to 8vo EGB and 1ro BGU requires the entrance exam.
var cursilloMarkers = []string{"8VO", "1RO BGU", "1ERO BGU"}

// RequiresCursillo reports whether admission into the given grade is gated by
// the entrance exam.
func RequiresCursillo(gradeLevel string) bool {
	grade := strings.ToUpper(strings.TrimSpace(gradeLevel))
	for _, marker := range cursilloMarkers {
		if strings.Contains(grade, marker) {
			return true
		}
	}
	return false
}
