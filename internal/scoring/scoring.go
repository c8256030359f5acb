package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/types"
)

var (
	insertPattern = regexp.MustCompile(`\binsert\s+into\b`)
	updatePattern = regexp.MustCompile(`\bupdate\b(\s+statistics)?`)
	deletePattern = regexp.MustCompile(`\bdelete\s+from\b`)
	mergePattern  = regexp.MustCompile(`\bmerge\s+into\b`)
	joinPattern   = regexp.MustCompile(`\b(inner\s+join|left\s+join|right\s+join|full\s+join|cross\s+join|join)\b`)
)

// CountLines counts non-empty lines of a definition.
func CountLines(definition string) int {
	if definition == "" {
		return 0
	}
	count := 0
	for _, line := range strings.Split(definition, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// CountDML counts data-modifying statements. UPDATE STATISTICS is
// maintenance, not DML, and is not counted.
func CountDML(definition string) int {
	if definition == "" {
		return 0
	}
	lower := strings.ToLower(definition)

	count := len(insertPattern.FindAllString(lower, -1))
	for _, m := range updatePattern.FindAllStringSubmatch(lower, -1) {
		if m[1] == "" {
			count++
		}
	}
	count += len(deletePattern.FindAllString(lower, -1))
	count += len(mergePattern.FindAllString(lower, -1))
	return count
}

// CountJoins counts JOIN clauses of any flavor.
func CountJoins(definition string) int {
	if definition == "" {
		return 0
	}
	return len(joinPattern.FindAllString(strings.ToLower(definition), -1))
}

// Analyze computes the complexity score for one definition.
// dependencyCount is the number of distinct objects the definition was
// found to reference. The score saturates at 100.
//
// Tier overrides are absolute: dynamic SQL or cursors force HIGH no
// matter how small the object, and three or more DML statements force
// at least MEDIUM.
func Analyze(definition string, dependencyCount int) types.ComplexityScore {
	patterns := MatchPatterns(definition)
	dml := CountDML(definition)
	joins := CountJoins(definition)
	lines := CountLines(definition)

	score := 0
	if definition != "" {
		// Lines of code, up to 30 points
		score += min(30, lines/10)

		// Hard constructs, up to 33 points
		weights := map[string]int{
			PatternCursor:     10,
			PatternDynamicSQL: 8,
			PatternLoop:       6,
			PatternXML:        5,
			PatternPivot:      4,
		}
		for name, points := range weights {
			if hasPattern(patterns, name) {
				score += points
			}
		}

		// Write pressure, up to 20 points
		score += min(20, dml*3)

		// Join fan-out, up to 10 points
		score += min(10, joins*2)

		// Dependency fan-out, up to 10 points
		score += min(10, dependencyCount*2)

		score = min(100, score)
	}

	return types.ComplexityScore{
		Value:           score,
		Tier:            classify(score, dml, patterns),
		MatchedPatterns: patterns,
		DMLCount:        dml,
		JoinCount:       joins,
		DependencyCount: dependencyCount,
		LineCount:       lines,
	}
}

func classify(score, dmlCount int, patterns []string) types.Tier {
	switch {
	case score >= 70 || hasPattern(patterns, PatternDynamicSQL) || hasPattern(patterns, PatternCursor):
		return types.TierHigh
	case score >= 40 || dmlCount >= 3:
		return types.TierMedium
	default:
		return types.TierLow
	}
}

// Describe produces a short human-readable summary of what a
// definition does, for the migration report.
func Describe(definition string, score types.ComplexityScore, tableCount, objectCount int) string {
	if definition == "" {
		return "definition not available"
	}

	var parts []string

	if score.DMLCount > 0 {
		parts = append(parts, "modifies data")
		parts = append(parts, fmt.Sprintf("%d DML statements", score.DMLCount))
	} else {
		parts = append(parts, "reads data")
	}

	if score.JoinCount > 5 {
		parts = append(parts, fmt.Sprintf("%d complex joins", score.JoinCount))
	} else if score.JoinCount > 0 {
		parts = append(parts, fmt.Sprintf("%d joins", score.JoinCount))
	}

	labels := []struct {
		pattern string
		text    string
	}{
		{PatternCursor, "uses cursors"},
		{PatternDynamicSQL, "dynamic SQL"},
		{PatternTransaction, "transaction handling"},
		{PatternTempTable, "temporary tables"},
		{PatternTableVariable, "temporary tables"},
		{PatternErrorHandling, "error handling"},
		{PatternLoop, "iterative loops"},
		{PatternCTE, "CTEs"},
		{PatternXML, "XML operations"},
		{PatternWindowFunc, "window functions"},
	}
	seen := map[string]bool{}
	for _, l := range labels {
		if hasPattern(score.MatchedPatterns, l.pattern) && !seen[l.text] {
			parts = append(parts, l.text)
			seen[l.text] = true
		}
	}

	switch {
	case tableCount > 3 || objectCount > 3:
		parts = append(parts, fmt.Sprintf("touches %d tables and %d SQL objects", tableCount, objectCount))
	case tableCount > 0:
		parts = append(parts, fmt.Sprintf("touches %d tables", tableCount))
	case objectCount > 0:
		parts = append(parts, fmt.Sprintf("calls %d SQL objects", objectCount))
	}

	if score.LineCount > 200 {
		parts = append(parts, fmt.Sprintf("very large (%d lines)", score.LineCount))
	} else if score.LineCount > 100 {
		parts = append(parts, fmt.Sprintf("large (%d lines)", score.LineCount))
	}

	return strings.Join(parts, "; ")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
