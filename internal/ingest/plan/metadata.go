package plan

import (
	"regexp"
	"strings"

	"github.com/claude/gymplan/internal/models"
)

var (
	// metadataRe matches a plan header on a single line: "GYM DAILY - IN SEASON WEEK 11"
	metadataRe = regexp.MustCompile(`(?i)([A-Z][A-Z \t]*?)[ \t]*-[ \t]*([A-Z][A-Z \t]*?)[ \t]+WEEK[ \t]+(\d+)`)

	// equipmentRe matches: Equipment: Barbell, Bands; Mat (one line only)
	equipmentRe = regexp.MustCompile(`(?i)Equipment[: \t]+([^\n]+)`)
)

// ExtractMetadata finds the program, phase and week from the plan header.
// A document without a header yields empty metadata.
func ExtractMetadata(text string) models.PlanMetadata {
	m := metadataRe.FindStringSubmatch(text)
	if m == nil {
		return models.PlanMetadata{}
	}
	return models.PlanMetadata{
		Program: ptr(strings.TrimSpace(m[1])),
		Phase:   ptr(strings.TrimSpace(m[2])),
		Week:    ptr("Week " + m[3]),
	}
}

// ExtractEquipment returns the comma/semicolon separated list from the first
// "Equipment:" line, or an empty list.
func ExtractEquipment(text string) []string {
	equipment := []string{}
	m := equipmentRe.FindStringSubmatch(text)
	if m == nil {
		return equipment
	}
	for _, item := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ';' }) {
		if item = strings.TrimSpace(item); item != "" {
			equipment = append(equipment, item)
		}
	}
	return equipment
}

func ptr(s string) *string {
	return &s
}
