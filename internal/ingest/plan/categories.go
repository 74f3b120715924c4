package plan

import (
	"fmt"
	"regexp"

	"github.com/claude/gymplan/internal/models"
)

// categoryRule locates one training segment. The segment starts after the
// opening keyword and ends at the nearest stop keyword, or end of text.
type categoryRule struct {
	category string
	open     *regexp.Regexp
	stops    []*regexp.Regexp
}

var (
	buyInKw    = keyword(`BUY-IN`)
	anyBlockKw = keyword(`BLOCK`)
	coolDownKw = keyword(`Cool\s*Down`)
	mainSetKw  = keyword(mainSetPattern)
	scoreKw    = keyword(`SCORE`)
	repeatKw   = keyword(`REPEAT`)
)

const mainSetPattern = `TOUR\s*DE\s*FRANCE|24\s*Min\s*AMRAP`

// categoryRules are evaluated independently, in merge order.
var categoryRules = []categoryRule{
	{models.CategoryWarmup, opening(`Warmup`), []*regexp.Regexp{buyInKw, anyBlockKw, coolDownKw, mainSetKw, scoreKw}},
	{models.CategoryBuyIn, opening(`BUY-IN`), []*regexp.Regexp{anyBlockKw, coolDownKw, mainSetKw, scoreKw}},
	blockRule(models.CategoryBlock1, 1),
	blockRule(models.CategoryBlock2, 2),
	blockRule(models.CategoryBlock3, 3),
	blockRule(models.CategoryBlock4, 4),
	{models.CategoryMain, opening(mainSetPattern), []*regexp.Regexp{anyBlockKw, coolDownKw, scoreKw}},
	{models.CategoryCooldown, opening(`Cool\s*Down`), nil},
}

// maxBlock is the highest block number recognised as a boundary. Blocks
// numbered above 4 only ever end another block; their own content is not
// captured.
const maxBlock = 5

func keyword(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:` + pattern + `)`)
}

func opening(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:` + pattern + `)[:\s]+`)
}

// blockRule builds "BLOCK n", bounded by any higher-numbered block or the
// main set.
func blockRule(category string, n int) categoryRule {
	return categoryRule{
		category: category,
		open:     opening(fmt.Sprintf(`BLOCK\s*%d`, n)),
		stops: []*regexp.Regexp{
			keyword(fmt.Sprintf(`BLOCK\s*[%d-%d]`, n+1, maxBlock)),
			repeatKw,
			mainSetKw,
			coolDownKw,
			scoreKw,
		},
	}
}

// SplitCategories extracts every category present in a day's text, in
// category order. Missing categories produce no span.
func SplitCategories(text string) []models.CategorySpan {
	var spans []models.CategorySpan
	for _, rule := range categoryRules {
		if body, ok := rule.capture(text); ok {
			spans = append(spans, models.CategorySpan{Category: rule.category, Text: body})
		}
	}
	return spans
}

func (r categoryRule) capture(text string) (string, bool) {
	loc := r.open.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]

	end := len(rest)
	for _, stop := range r.stops {
		if hit := stop.FindStringIndex(rest); hit != nil && hit[0] < end {
			end = hit[0]
		}
	}
	return rest[:end], true
}
