package sqlname

import (
	"fmt"
	"strings"
)

// Kind classifies a catalog object.
type Kind string

const (
	KindProcedure Kind = "procedure"
	KindFunction  Kind = "function"
	KindTrigger   Kind = "trigger"
	KindView      Kind = "view"
	KindTable     Kind = "table"
	KindUnknown   Kind = "unknown"
)

// KindFromTypeCode maps sys.objects type codes to a Kind.
// FN, IF, and TF are all functions (scalar, inline table-valued, table-valued).
func KindFromTypeCode(code string) Kind {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "P":
		return KindProcedure
	case "FN", "IF", "TF":
		return KindFunction
	case "TR":
		return KindTrigger
	case "V":
		return KindView
	case "U":
		return KindTable
	default:
		return KindUnknown
	}
}

// ClassifyName guesses a Kind from naming conventions. Used only for names
// that appear in free-text definitions and have not yet been resolved against
// the catalog; resolution always overrides the guess.
func ClassifyName(name string) Kind {
	lower := strings.ToLower(name)

	if strings.Contains(lower, "trigger") || strings.HasPrefix(lower, "tr_") || strings.Contains(lower, "_tr_") {
		return KindTrigger
	}
	for _, p := range []string{"sp_", "usp_", "asp_", "proc_"} {
		if strings.HasPrefix(lower, p) || strings.Contains(lower, "_"+p) {
			return KindProcedure
		}
	}
	for _, p := range []string{"fn_", "udf_", "tf_", "if_", "tvf_"} {
		if strings.HasPrefix(lower, p) || strings.Contains(lower, "_"+p) {
			return KindFunction
		}
	}
	if strings.HasPrefix(lower, "vw_") || strings.HasPrefix(lower, "v_") {
		return KindView
	}
	return KindUnknown
}

// MalformedReferenceError is returned when a raw reference cannot be parsed
// into an ObjectReference.
type MalformedReferenceError struct {
	Raw    string
	Reason string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("malformed object reference %q: %s", e.Raw, e.Reason)
}

// ObjectReference identifies a catalog object. Schema may be empty before
// resolution ("resolve against default schema candidates at lookup time").
// Identity is case-insensitive on (Database, Schema, Name); use Key for
// map keys and comparisons, never the raw fields.
type ObjectReference struct {
	Database string `json:"database"`
	Schema   string `json:"schema,omitempty"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Resolved bool   `json:"resolved"`
}

// Key returns the canonical identity of the reference: lowercase
// database.schema.name. A schema-bare reference keeps an empty middle
// segment so it never collides with a qualified key.
func (r ObjectReference) Key() string {
	return strings.ToLower(r.Database) + "." + strings.ToLower(r.Schema) + "." + strings.ToLower(r.Name)
}

// NameKey returns the schema-agnostic identity: lowercase database.name.
// Used to match schema-bare references against resolved qualified ones.
func (r ObjectReference) NameKey() string {
	return strings.ToLower(r.Database) + "." + strings.ToLower(r.Name)
}

// HasSchema reports whether the reference is schema-qualified.
func (r ObjectReference) HasSchema() bool {
	return r.Schema != ""
}

// String renders the reference in canonical bracketed notation. The output
// re-parses to an equal reference, so Normalize is idempotent over it.
func (r ObjectReference) String() string {
	if r.Schema == "" {
		return QuoteIdentifier(r.Database) + ".." + QuoteIdentifier(r.Name)
	}
	return QuoteIdentifier(r.Database) + "." + QuoteIdentifier(r.Schema) + "." + QuoteIdentifier(r.Name)
}

// Equal reports case-insensitive identity. A schema-bare reference equals a
// qualified one with the same database and name.
func (r ObjectReference) Equal(o ObjectReference) bool {
	if !strings.EqualFold(r.Database, o.Database) || !strings.EqualFold(r.Name, o.Name) {
		return false
	}
	if r.Schema == "" || o.Schema == "" {
		return true
	}
	return strings.EqualFold(r.Schema, o.Schema)
}

// Normalize parses a raw reference as it appears in SQL text or an input
// file into an ObjectReference. Handled notations, all case-insensitive:
//
//	[schema].[name]          bracket-delimited
//	"schema"."name"          quote-delimited
//	database..name           empty schema segment (resolve at lookup time)
//	database.schema.name     three-part
//	server.database.schema.name   four-part (server segment dropped)
//	name                     bare (schema unknown)
//
// defaultDatabase fills the database segment when the reference carries none.
// Empty identifiers yield a MalformedReferenceError.
func Normalize(raw, defaultDatabase string) (ObjectReference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ObjectReference{}, &MalformedReferenceError{Raw: raw, Reason: "empty reference"}
	}

	parts, err := splitReference(trimmed)
	if err != nil {
		return ObjectReference{}, err
	}

	ref := ObjectReference{Database: strings.TrimSpace(defaultDatabase), Kind: KindUnknown}

	switch len(parts) {
	case 1:
		ref.Name = parts[0]
	case 2:
		ref.Schema = parts[0]
		ref.Name = parts[1]
	case 3:
		if parts[0] != "" {
			ref.Database = parts[0]
		}
		ref.Schema = parts[1]
		ref.Name = parts[2]
	case 4:
		// server.database.schema.name: the crawl is single-server, drop it
		if parts[1] != "" {
			ref.Database = parts[1]
		}
		ref.Schema = parts[2]
		ref.Name = parts[3]
	default:
		return ObjectReference{}, &MalformedReferenceError{Raw: raw, Reason: fmt.Sprintf("%d name parts", len(parts))}
	}

	if ref.Name == "" {
		return ObjectReference{}, &MalformedReferenceError{Raw: raw, Reason: "empty object name"}
	}
	if ref.Database == "" {
		return ObjectReference{}, &MalformedReferenceError{Raw: raw, Reason: "no database and no default"}
	}

	return ref, nil
}

// splitReference splits a dotted reference into its identifier parts,
// honoring [bracket] and "quote" delimiters. Dots inside delimiters do not
// split. Each part is returned stripped of its delimiters and surrounding
// whitespace; a doubled closing delimiter inside a delimited part is
// unescaped.
func splitReference(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	inBracket := false
	inQuote := false

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inBracket:
			if c == ']' {
				if i+1 < len(runes) && runes[i+1] == ']' {
					cur.WriteRune(']')
					i++
					continue
				}
				inBracket = false
				continue
			}
			cur.WriteRune(c)
		case inQuote:
			if c == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cur.WriteRune('"')
					i++
					continue
				}
				inQuote = false
				continue
			}
			cur.WriteRune(c)
		case c == '[':
			inBracket = true
		case c == '"':
			inQuote = true
		case c == '.':
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}

	if inBracket || inQuote {
		return nil, &MalformedReferenceError{Raw: s, Reason: "unterminated delimiter"}
	}

	parts = append(parts, strings.TrimSpace(cur.String()))
	return parts, nil
}
