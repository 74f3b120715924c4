package plan

import (
	"regexp"
	"strings"

	"github.com/claude/gymplan/internal/models"
)

// dayRe matches a day marker: "MONDAY (Hinge/Push)", "Tuesday ( Sprint Conditioning)"
var dayRe = regexp.MustCompile(`(?i)(MONDAY|TUESDAY|WEDNESDAY|THURSDAY|FRIDAY|SATURDAY|SUNDAY)\s*\(([^)]+)\)`)

// SplitDays cuts the document into one span per day marker. Each span runs
// from its marker to the next marker; text before the first marker is
// dropped. Without any marker the whole document is a single span.
func SplitDays(text string) []models.DaySpan {
	matches := dayRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []models.DaySpan{{Text: text}}
	}

	spans := make([]models.DaySpan, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		span := models.DaySpan{
			DayLabel: ptr(strings.ToUpper(text[m[2]:m[3]])),
			Text:     text[m[0]:end],
		}
		if workoutType := strings.TrimSpace(text[m[4]:m[5]]); workoutType != "" {
			span.WorkoutType = &workoutType
		}
		spans = append(spans, span)
	}
	return spans
}
