package crawler

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
)

// LoadRoots reads the root table list from a CSV file. Accepted rows:
//
//	server,database,schema,table
//	database,schema,table
//
// The server column is ignored, the crawl runs against one server. A
// header row is detected by column names and skipped, as are blank
// lines and lines starting with '#'. Duplicate rows collapse to one
// reference.
func LoadRoots(path string) ([]sqlname.ObjectReference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening root list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing root list %s: %w", path, err)
	}

	var roots []sqlname.ObjectReference
	seen := make(map[string]bool)
	for i, row := range records {
		if isBlankRow(row) {
			continue
		}
		if i == 0 && isHeaderRow(row) {
			continue
		}

		var database, schema, table string
		switch len(row) {
		case 4:
			database, schema, table = row[1], row[2], row[3]
		case 3:
			database, schema, table = row[0], row[1], row[2]
		default:
			return nil, &sqlname.MalformedReferenceError{
				Raw:    strings.Join(row, ","),
				Reason: fmt.Sprintf("line %d: expected 3 or 4 columns, got %d", i+1, len(row)),
			}
		}

		raw := fmt.Sprintf("%s.%s.%s", strings.TrimSpace(database), strings.TrimSpace(schema), strings.TrimSpace(table))
		ref, err := sqlname.Normalize(raw, "")
		if err != nil {
			return nil, fmt.Errorf("root list %s line %d: %w", path, i+1, err)
		}
		ref.Kind = sqlname.KindTable
		ref.Resolved = true

		if seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		roots = append(roots, ref)
	}

	if len(roots) == 0 {
		return nil, fmt.Errorf("root list %s contains no tables", path)
	}
	return roots, nil
}

func isBlankRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isHeaderRow(row []string) bool {
	for _, field := range row {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "server", "database", "schema", "table", "table_name", "instance":
			return true
		}
	}
	return false
}
