// Package scoring analyzes SQL object definitions and assigns migration
// complexity scores.
package scoring

import (
	"regexp"
	"sort"
	"strings"
)

// Pattern names reported in MatchedPatterns.
const (
	PatternCursor        = "CURSOR"
	PatternDynamicSQL    = "DYNAMIC_SQL"
	PatternTransaction   = "TRANSACTION"
	PatternTempTable     = "TEMP_TABLE"
	PatternTableVariable = "TABLE_VARIABLE"
	PatternErrorHandling = "ERROR_HANDLING"
	PatternLoop          = "LOOP"
	PatternCTE           = "CTE"
	PatternPivot         = "PIVOT"
	PatternXML           = "XML"
	PatternWindowFunc    = "WINDOW_FUNCTION"
)

var patternMatchers = map[string]*regexp.Regexp{
	PatternCursor:        regexp.MustCompile(`\bdeclare\s+\w+\s+cursor\b`),
	PatternDynamicSQL:    regexp.MustCompile(`\bexec\s*\(\s*@|\bsp_executesql\b`),
	PatternTransaction:   regexp.MustCompile(`\bbegin\s+tran(saction)?\b`),
	PatternTableVariable: regexp.MustCompile(`\bdeclare\s+@\w+\s+table\b`),
	PatternErrorHandling: regexp.MustCompile(`\bbegin\s+try\b`),
	PatternLoop:          regexp.MustCompile(`\bwhile\b`),
	PatternCTE:           regexp.MustCompile(`\bwith\s+\w+\s+as\s*\(`),
	PatternPivot:         regexp.MustCompile(`\b(pivot|unpivot)\b`),
	PatternXML:           regexp.MustCompile(`\b(for\s+xml|openxml)\b|\.query\(|\.value\(`),
	PatternWindowFunc:    regexp.MustCompile(`\b(row_number|rank|dense_rank|partition\s+by)\b`),
}

// Temp tables are matched case-sensitively on the raw text, '#' has no
// case.
var tempTablePattern = regexp.MustCompile(`#\w+`)

// MatchPatterns returns the sorted list of T-SQL constructs found in a
// definition.
func MatchPatterns(definition string) []string {
	if definition == "" {
		return nil
	}

	lower := strings.ToLower(definition)

	var matched []string
	for name, re := range patternMatchers {
		if re.MatchString(lower) {
			matched = append(matched, name)
		}
	}
	if tempTablePattern.MatchString(definition) {
		matched = append(matched, PatternTempTable)
	}

	sort.Strings(matched)
	return matched
}

func hasPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
	}
	return false
}
