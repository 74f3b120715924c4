package plan

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/claude/gymplan/internal/models"
)

var (
	// setsHeaderRe matches a leading round count: "x 2", "E2MOM x 4 Rounds", `E90" x 5`
	setsHeaderRe = regexp.MustCompile(`(?i)^(?:x\s*(\d+)|E2MOM\s*x?\s*(\d+)|E90\s*"?\s*x?\s*(\d+))`)

	// spacedLineRe matches: "Clean + Hang Clean x 3", "Box Jumps X 5"
	spacedLineRe = regexp.MustCompile(`(?i)^(.+?)\s+x\s+(.+)$`)

	// gluedLineRe matches text where extraction lost the space before the x: "Pigeon Push Upx 30 sec"
	gluedLineRe = regexp.MustCompile(`(?i)^(.+?)x\s+(.+)$`)

	// notesRe matches a trailing remark: "Goblet Squat (tempo 3010)"
	notesRe = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)$`)

	// restRepsRe matches rep fields that only describe rest.
	restRepsRe = regexp.MustCompile(`(?i)^(rest|sec rest)$`)
)

// structuralPrefixes mark header and layout lines rather than exercises.
var structuralPrefixes = []string{
	"warmup", "buy-in", "block", "cool down", "cooldown", "tour de france",
	"score", "equipment", "round", "min amrap", "minute amrap", "rest",
	"repeat", "e2mom", "e90",
}

// structuralWords are rejected only as the whole name ("Alternate Lunges" is an exercise).
var structuralWords = map[string]bool{
	"x": true, "min": true, "minute": true, "alternate": true, "main": true,
}

const minNameLength = 3

// DefaultSets reads the round count from a category's leading header,
// defaulting to 1.
func DefaultSets(text string) int {
	m := setsHeaderRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 1
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if n, err := strconv.Atoi(g); err == nil && n >= 1 {
			return n
		}
	}
	return 1
}

// ParseExercises converts the exercise lines of one category into records.
// Lines that do not look like "<name> x <reps>" are skipped silently.
func (p *Parser) ParseExercises(text, category string) []models.ParsedExercise {
	sets := DefaultSets(text)
	exercises := []models.ParsedExercise{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		name, reps, notes, ok := splitExerciseLine(line)
		if !ok {
			continue
		}
		exercises = append(exercises, models.ParsedExercise{
			ID:        p.newID(),
			Name:      name,
			Sets:      sets,
			Reps:      reps,
			Category:  category,
			Notes:     notes,
			CreatedAt: p.now(),
		})
	}
	return exercises
}

// splitExerciseLine extracts name, reps and notes from a single line.
// ok is false for anything that is not an exercise.
func splitExerciseLine(line string) (name, reps string, notes *string, ok bool) {
	m := spacedLineRe.FindStringSubmatch(line)
	if m == nil {
		m = gluedLineRe.FindStringSubmatch(line)
	}
	if m == nil {
		return "", "", nil, false
	}

	name = strings.TrimSpace(m[1])
	reps = strings.TrimSpace(m[2])
	if isStructural(name) || restRepsRe.MatchString(reps) {
		return "", "", nil, false
	}

	if n := notesRe.FindStringSubmatch(name); n != nil {
		name = strings.TrimSpace(n[1])
		notes = ptr(strings.TrimSpace(n[2]))
	}

	if utf8.RuneCountInString(name) < minNameLength || isStructural(name) {
		return "", "", nil, false
	}
	return name, reps, notes, true
}

func isStructural(name string) bool {
	lower := strings.ToLower(name)
	if structuralWords[lower] || mainSetKw.MatchString(name) {
		return true
	}
	for _, prefix := range structuralPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
