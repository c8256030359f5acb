package scoring

import (
	"regexp"
	"sort"
	"strings"
)

var (
	tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+(?:\[?\w+\]?\.)?\[?(\w+)\]?`)
	execPattern     = regexp.MustCompile(`\bexec(?:ute)?\s+(\[?\w+\]?(?:\.\[?\w+\]?){0,2})`)
	funcCallPattern = regexp.MustCompile(`(\[?\w+\]?\.\[?[a-z_]\w+\]?)\s*\(`)
)

// Pseudo-tables and keywords that show up in FROM/JOIN position but are
// not real tables.
var tableStopWords = map[string]bool{
	"select":             true,
	"deleted":            true,
	"inserted":           true,
	"dual":               true,
	"information_schema": true,
}

// System procedures that appear in EXEC position but are never worth
// following.
var systemProcs = map[string]bool{
	"sp_executesql": true,
	"xp_cmdshell":   true,
	"sp_who":        true,
	"sp_help":       true,
}

var builtinFuncPrefixes = []string{
	"cast", "convert", "isnull", "coalesce", "len", "substring",
	"getdate", "count", "sum", "max", "min", "avg",
}

// ExtractTables pulls table names out of FROM and JOIN clauses.
// Temp tables and trigger pseudo-tables are skipped. Names are
// lowercased and deduplicated.
func ExtractTables(definition string) []string {
	if definition == "" {
		return nil
	}

	seen := map[string]bool{}
	for _, m := range tableRefPattern.FindAllStringSubmatch(definition, -1) {
		name := strings.ToLower(m[1])
		if tableStopWords[name] {
			continue
		}
		seen[name] = true
	}

	return sortedKeys(seen)
}

// ExtractCalledObjects pulls procedure and function references out of
// EXEC statements and qualified call sites. Returned names are raw
// reference text, lowercased and deduplicated; callers normalize them.
func ExtractCalledObjects(definition string) []string {
	if definition == "" {
		return nil
	}

	lower := strings.ToLower(definition)
	seen := map[string]bool{}

	for _, m := range execPattern.FindAllStringSubmatch(lower, -1) {
		name := strings.TrimSpace(m[1])
		if systemProcs[strings.Trim(name, "[]")] {
			continue
		}
		seen[name] = true
	}

	for _, m := range funcCallPattern.FindAllStringSubmatch(lower, -1) {
		name := strings.TrimSpace(m[1])
		if isBuiltinCall(name) {
			continue
		}
		seen[name] = true
	}

	return sortedKeys(seen)
}

func isBuiltinCall(name string) bool {
	for _, prefix := range builtinFuncPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
