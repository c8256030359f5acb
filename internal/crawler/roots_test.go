package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
)

func writeRootList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roots.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRoots(t *testing.T) {
	path := writeRootList(t, `server,database,schema,table
PRODSQL01,SalesDB,dbo,Orders
PRODSQL01,SalesDB,dbo,OrderItems
PRODSQL01,WarehouseDB,wh,Stock
`)

	roots, err := LoadRoots(path)
	require.NoError(t, err)
	require.Len(t, roots, 3)

	assert.Equal(t, "SalesDB", roots[0].Database)
	assert.Equal(t, "dbo", roots[0].Schema)
	assert.Equal(t, "Orders", roots[0].Name)
	assert.Equal(t, sqlname.KindTable, roots[0].Kind)
	assert.True(t, roots[0].Resolved)

	assert.Equal(t, "wh", roots[2].Schema)
}

func TestLoadRoots_ThreeColumns(t *testing.T) {
	path := writeRootList(t, "SalesDB,dbo,Orders\n")

	roots, err := LoadRoots(path)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Orders", roots[0].Name)
}

func TestLoadRoots_CommentsAndBlanks(t *testing.T) {
	path := writeRootList(t, `# production roots
SalesDB,dbo,Orders

SalesDB,dbo,Customers
`)

	roots, err := LoadRoots(path)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
}

func TestLoadRoots_DuplicatesCollapse(t *testing.T) {
	path := writeRootList(t, `SalesDB,dbo,Orders
salesdb,DBO,ORDERS
`)

	roots, err := LoadRoots(path)
	require.NoError(t, err)
	assert.Len(t, roots, 1)
}

func TestLoadRoots_BadColumnCount(t *testing.T) {
	path := writeRootList(t, "SalesDB,Orders\n")

	_, err := LoadRoots(path)
	require.Error(t, err)
	var malformed *sqlname.MalformedReferenceError
	assert.ErrorAs(t, err, &malformed)
}

func TestLoadRoots_EmptyIdentifier(t *testing.T) {
	path := writeRootList(t, "SalesDB,dbo,\n")

	_, err := LoadRoots(path)
	assert.Error(t, err)
}

func TestLoadRoots_EmptyFile(t *testing.T) {
	path := writeRootList(t, "")

	_, err := LoadRoots(path)
	assert.Error(t, err)
}

func TestLoadRoots_MissingFile(t *testing.T) {
	_, err := LoadRoots(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
