package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// CatalogUnavailableError indicates the catalog could not serve a
// query. It poisons the whole partition the query belonged to, not
// just one object.
type CatalogUnavailableError struct {
	Database string
	Err      error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable for database %s: %v", e.Database, e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error {
	return e.Err
}

// Client runs catalog queries against a single database.
type Client struct {
	db       *sql.DB
	database string
}

// NewClient creates a Client bound to one database pool.
func NewClient(db *sql.DB, database string) *Client {
	return &Client{db: db, database: database}
}

// Database returns the database this client is bound to.
func (c *Client) Database() string {
	return c.database
}

// placeholders returns @pN placeholders for n values starting at
// offset+1.
func placeholders(offset, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("@p%d", offset+i+1)
	}
	return out
}

// LookupDefinitions resolves a batch of references to catalog objects
// in a bounded number of queries regardless of batch size: one for
// schema-qualified names and one for bare names. Objects absent from
// the result simply do not exist in this database; that is not an
// error.
func (c *Client) LookupDefinitions(ctx context.Context, refs []sqlname.ObjectReference) ([]types.ResolvedObject, error) {
	var qualified, bare []sqlname.ObjectReference
	for _, ref := range refs {
		if ref.HasSchema() {
			qualified = append(qualified, ref)
		} else {
			bare = append(bare, ref)
		}
	}

	var resolved []types.ResolvedObject

	if len(qualified) > 0 {
		objs, err := c.lookupQualified(ctx, qualified)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, objs...)
	}

	if len(bare) > 0 {
		objs, err := c.lookupBare(ctx, bare)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, objs...)
	}

	return resolved, nil
}

func (c *Client) lookupQualified(ctx context.Context, refs []sqlname.ObjectReference) ([]types.ResolvedObject, error) {
	pairs := make([]string, 0, len(refs))
	args := make([]interface{}, 0, len(refs)*2)
	for i, ref := range refs {
		pairs = append(pairs, fmt.Sprintf("(s.name = @p%d AND o.name = @p%d)", i*2+1, i*2+2))
		args = append(args, ref.Schema, ref.Name)
	}

	query := fmt.Sprintf(`
		SELECT s.name, o.name, o.type, ISNULL(m.definition, '')
		FROM sys.objects o
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		LEFT JOIN sys.sql_modules m ON m.object_id = o.object_id
		WHERE o.type IN ('P', 'FN', 'IF', 'TF', 'TR', 'V', 'U')
		  AND (%s)`, strings.Join(pairs, " OR "))

	return c.queryObjects(ctx, query, args)
}

func (c *Client) lookupBare(ctx context.Context, refs []sqlname.ObjectReference) ([]types.ResolvedObject, error) {
	names := make(map[string]bool, len(refs))
	args := make([]interface{}, 0, len(refs))
	for _, ref := range refs {
		if names[strings.ToLower(ref.Name)] {
			continue
		}
		names[strings.ToLower(ref.Name)] = true
		args = append(args, ref.Name)
	}

	query := fmt.Sprintf(`
		SELECT s.name, o.name, o.type, ISNULL(m.definition, '')
		FROM sys.objects o
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		LEFT JOIN sys.sql_modules m ON m.object_id = o.object_id
		WHERE o.type IN ('P', 'FN', 'IF', 'TF', 'TR', 'V', 'U')
		  AND o.name IN (%s)`, strings.Join(placeholders(0, len(args)), ", "))

	return c.queryObjects(ctx, query, args)
}

func (c *Client) queryObjects(ctx context.Context, query string, args []interface{}) ([]types.ResolvedObject, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &CatalogUnavailableError{Database: c.database, Err: err}
	}
	defer rows.Close()

	var objs []types.ResolvedObject
	for rows.Next() {
		var schema, name, typeCode, definition string
		if err := rows.Scan(&schema, &name, &typeCode, &definition); err != nil {
			return nil, &CatalogUnavailableError{Database: c.database, Err: err}
		}
		objs = append(objs, types.ResolvedObject{
			Ref: sqlname.ObjectReference{
				Database: c.database,
				Schema:   schema,
				Name:     name,
				Kind:     sqlname.KindFromTypeCode(strings.TrimSpace(typeCode)),
				Resolved: true,
			},
			DefinitionText: definition,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogUnavailableError{Database: c.database, Err: err}
	}

	return objs, nil
}

// Reference pairs a referencing object with the frontier name its
// definition was matched against.
type Reference struct {
	Referencing sqlname.ObjectReference
	Target      string
}

// LookupReferencingObjects finds objects whose definitions structurally
// reference any of the given entity names, using the dependency
// tracking the server maintains itself.
func (c *Client) LookupReferencingObjects(ctx context.Context, names []string) ([]Reference, error) {
	if len(names) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT s.name, o.name, o.type, d.referenced_entity_name
		FROM sys.sql_expression_dependencies d
		JOIN sys.objects o ON d.referencing_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE o.type IN ('P', 'FN', 'IF', 'TF', 'TR', 'V')
		  AND d.referenced_entity_name IN (%s)`, strings.Join(placeholders(0, len(args)), ", "))

	return c.queryReferences(ctx, query, args)
}

// LookupReferencingByText finds objects whose module text mentions the
// given name. Fallback for references the dependency catalog misses,
// dynamic SQL in particular. The LIKE scan is only a pre-filter;
// callers confirm the match against the resolved definition.
func (c *Client) LookupReferencingByText(ctx context.Context, name string) ([]Reference, error) {
	query := `
		SELECT DISTINCT s.name, o.name, o.type, @p1
		FROM sys.sql_modules m
		JOIN sys.objects o ON m.object_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE o.type IN ('P', 'FN', 'IF', 'TF', 'TR', 'V')
		  AND m.definition LIKE '%' + @p1 + '%'`

	return c.queryReferences(ctx, query, []interface{}{name})
}

// LookupTriggersOn finds triggers defined on any of the given tables.
// Triggers never show up as referencing objects in the dependency
// catalog, so table frontiers need this extra pass.
func (c *Client) LookupTriggersOn(ctx context.Context, tableNames []string) ([]Reference, error) {
	if len(tableNames) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(tableNames))
	for i, n := range tableNames {
		args[i] = n
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ps.name, tr.name, 'TR', pt.name
		FROM sys.triggers tr
		JOIN sys.tables pt ON tr.parent_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		WHERE tr.is_ms_shipped = 0
		  AND pt.name IN (%s)`, strings.Join(placeholders(0, len(args)), ", "))

	return c.queryReferences(ctx, query, args)
}

func (c *Client) queryReferences(ctx context.Context, query string, args []interface{}) ([]Reference, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &CatalogUnavailableError{Database: c.database, Err: err}
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var schema, name, typeCode, target string
		if err := rows.Scan(&schema, &name, &typeCode, &target); err != nil {
			return nil, &CatalogUnavailableError{Database: c.database, Err: err}
		}
		refs = append(refs, Reference{
			Referencing: sqlname.ObjectReference{
				Database: c.database,
				Schema:   schema,
				Name:     name,
				Kind:     sqlname.KindFromTypeCode(strings.TrimSpace(typeCode)),
				Resolved: true,
			},
			Target: target,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogUnavailableError{Database: c.database, Err: err}
	}

	return refs, nil
}
