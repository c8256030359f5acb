package crawler

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// matchResolved maps each requested reference to the catalog row that
// resolved it, keyed by the request's canonical Key. Qualified requests
// match on full identity. Schema-bare requests match on database and
// name; when several schemas hold an object by that name, the first
// matching entry of defaultSchemas wins, then the alphabetically first
// schema. Requests with no matching row are absent from the map.
func matchResolved(refs []sqlname.ObjectReference, resolved []types.ResolvedObject, defaultSchemas []string) map[string]types.ResolvedObject {
	byKey := make(map[string]types.ResolvedObject, len(resolved))
	byName := make(map[string][]types.ResolvedObject)
	for _, obj := range resolved {
		byKey[obj.Ref.Key()] = obj
		nameKey := obj.Ref.NameKey()
		byName[nameKey] = append(byName[nameKey], obj)
	}

	out := make(map[string]types.ResolvedObject, len(refs))
	for _, ref := range refs {
		if ref.HasSchema() {
			if obj, ok := byKey[ref.Key()]; ok {
				out[ref.Key()] = obj
			}
			continue
		}
		candidates := byName[ref.NameKey()]
		if len(candidates) == 0 {
			continue
		}
		out[ref.Key()] = pickBySchema(candidates, defaultSchemas)
	}
	return out
}

func pickBySchema(candidates []types.ResolvedObject, defaultSchemas []string) types.ResolvedObject {
	if len(candidates) == 1 {
		return candidates[0]
	}
	for _, schema := range defaultSchemas {
		for _, obj := range candidates {
			if strings.EqualFold(obj.Ref.Schema, schema) {
				return obj
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return strings.ToLower(candidates[i].Ref.Schema) < strings.ToLower(candidates[j].Ref.Schema)
	})
	return candidates[0]
}

// ConfirmReference reports whether the definition text actually
// references the named object. The catalog LIKE scan that produced the
// candidate matches substrings, so "Orders" would also surface
// "OrdersArchive"; the word-boundary match here rejects those.
func ConfirmReference(definition, name string) bool {
	if definition == "" || name == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(definition)
}
