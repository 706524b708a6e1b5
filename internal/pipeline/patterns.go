package pipeline

import (
	"regexp"

	"github.com/probelab/discovery-cli/internal/model"
)

// patternFamily binds a signal type to the phrases that suggest it. A
// result contributes at most one match per family; the first pattern that
// hits wins.
type patternFamily struct {
	signalType model.SignalType
	patterns   []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

var patternFamilies = []patternFamily{
	{
		signalType: model.SignalBuildVsBuy,
		patterns: compileAll(
			`(?:ended up|had to|decided to) build(?:ing)? (?:our|their|my) own`,
			`no (?:vendor|tool|product) (?:did|does|covered|supports) what we need`,
			`built (?:this|it) in.?house because`,
		),
	},
	{
		signalType: model.SignalExcessiveHiring,
		patterns: compileAll(
			`hiring (?:our|a|another) (?:\d+\w*|second|third|fourth) .{0,30}ops`,
			`(?:doubled|tripled) (?:our|the) (?:ops|operations|support) team`,
			`hiring \d+ people (?:just )?to (?:handle|manage|keep up)`,
		),
	},
	{
		signalType: model.SignalWorkaroundSharing,
		patterns: compileAll(
			`(?:hacky|ugly|fragile|janky) workaround`,
			`(?:duct.?tape|glue(?:d)? together) (?:a|some|our)`,
			`here'?s how (?:we|i) got around`,
		),
	},
	{
		signalType: model.SignalMigration,
		patterns: compileAll(
			`(?:migrating|migrated|moving|moved|switching|switched) (?:away )?(?:off|from) \w+`,
			`finally ditched`,
			`ripped out (?:our|the)`,
		),
	},
	{
		signalType: model.SignalOpenSourceCreation,
		patterns: compileAll(
			`open.?sourc(?:ed|ing) (?:our|a|the) (?:internal|in.?house)`,
			`released (?:our|the) internal tool`,
			`couldn'?t find (?:a|any) (?:library|tool).{0,40}so (?:we|i) (?:wrote|made|built)`,
		),
	},
	{
		signalType: model.SignalIntegrationComplaint,
		patterns: compileAll(
			`(?:api|integration|webhook)s? (?:is|are|was|were) (?:a )?(?:nightmare|painful|broken|flaky)`,
			`(?:doesn'?t|won'?t|will not) (?:integrate|sync|talk) (?:with|to)`,
			`spent (?:days|weeks|months) (?:on|fighting) (?:the )?integration`,
		),
	},
	{
		signalType: model.SignalScaleBreakpoint,
		patterns: compileAll(
			`(?:fell over|broke|falls apart|stopped working) (?:at|past|beyond|once we hit) \d+`,
			`(?:doesn'?t|won'?t|can'?t) scale (?:past|beyond|to)`,
			`outgrew (?:our|the)`,
		),
	},
	{
		signalType: model.SignalManualProcess,
		patterns: compileAll(
			`(?:still|currently) (?:doing|do(?:es)?|tracking|managing) .{0,40}(?:manually|by hand|in (?:a )?spreadsheets?)`,
			`copy.?past(?:e|ing) (?:between|from|into)`,
			`someone (?:has|had) to manually`,
		),
	},
}

// excerptRadius is how many bytes of context surround a pattern hit.
const excerptRadius = 150

// scanPatterns runs phase one of signal detection: every family is tested
// against the result's title and body, case-insensitively, and the first
// matching pattern per family yields one candidate.
func scanPatterns(results []model.SearchResult) []model.PatternMatch {
	var matches []model.PatternMatch
	for _, r := range results {
		text := r.Title + "\n" + r.Text
		for _, family := range patternFamilies {
			for _, re := range family.patterns {
				loc := re.FindStringIndex(text)
				if loc == nil {
					continue
				}
				matches = append(matches, model.PatternMatch{
					Type:      family.signalType,
					Pattern:   re.String(),
					Excerpt:   excerptAround(text, loc[0], loc[1]),
					SourceURL: r.URL,
					Title:     r.Title,
				})
				break
			}
		}
	}
	return matches
}

func excerptAround(text string, start, end int) string {
	lo := max(start-excerptRadius, 0)
	hi := min(end+excerptRadius, len(text))
	return text[lo:hi]
}
