package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

func record(database, schema, name string, kind sqlname.Kind, level int) types.DiscoveredObjectRecord {
	return types.DiscoveredObjectRecord{
		Object: types.ResolvedObject{
			Ref: sqlname.ObjectReference{
				Database: database,
				Schema:   schema,
				Name:     name,
				Kind:     kind,
				Resolved: true,
			},
		},
		Level: level,
	}
}

func edge(fromDB, fromName string, toDB, toName string, level int) types.DependencyEdge {
	return types.DependencyEdge{
		From: sqlname.ObjectReference{
			Database: fromDB, Schema: "dbo", Name: fromName,
			Kind: sqlname.KindProcedure, Resolved: true,
		},
		To: sqlname.ObjectReference{
			Database: toDB, Schema: "dbo", Name: toName,
			Kind: sqlname.KindTable, Resolved: true,
		},
		Level: level,
	}
}

func cleanFixture() ([]types.DiscoveredObjectRecord, map[string]int, []types.DependencyEdge, []string) {
	records := []types.DiscoveredObjectRecord{
		record("SalesDB", "dbo", "usp_UpdateOrders", sqlname.KindProcedure, 1),
		record("SalesDB", "dbo", "usp_NightlyJob", sqlname.KindProcedure, 2),
	}
	transcript := map[string]int{
		"salesdb.dbo.usp_updateorders": 1,
		"salesdb.dbo.usp_nightlyjob":   2,
	}
	edges := []types.DependencyEdge{
		edge("SalesDB", "usp_UpdateOrders", "SalesDB", "Orders", 1),
	}
	roots := []string{"salesdb.dbo.orders"}
	return records, transcript, edges, roots
}

func TestVerifyCleanOutput(t *testing.T) {
	v := NewVerifier(nil)
	records, transcript, edges, roots := cleanFixture()

	report := v.Verify(records, transcript, edges, roots)

	assert.True(t, report.OK())
	assert.Empty(t, report.Issues)
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 2, report.TranscriptKeys)
	assert.Equal(t, 1, report.Edges)
	assert.Contains(t, report.Summary(), "OK")
}

func TestVerifyDuplicateRecord(t *testing.T) {
	v := NewVerifier(nil)
	records, transcript, edges, roots := cleanFixture()
	records = append(records, record("SalesDB", "dbo", "usp_UpdateOrders", sqlname.KindProcedure, 2))

	report := v.Verify(records, transcript, edges, roots)

	assert.False(t, report.OK())
	assert.Len(t, report.Issues, 1)
	assert.Equal(t, IssueDuplicateRecord, report.Issues[0].Kind)
	assert.Equal(t, "salesdb.dbo.usp_updateorders", report.Issues[0].Key)
	assert.Contains(t, report.Summary(), "duplicate_record=1")
}

func TestVerifyMissingRecord(t *testing.T) {
	v := NewVerifier(nil)
	records, transcript, edges, roots := cleanFixture()
	transcript["salesdb.dbo.usp_ghost"] = 1

	report := v.Verify(records, transcript, edges, roots)

	assert.False(t, report.OK())
	assert.Len(t, report.Issues, 1)
	assert.Equal(t, IssueMissingRecord, report.Issues[0].Kind)
	assert.Equal(t, "salesdb.dbo.usp_ghost", report.Issues[0].Key)
}

func TestVerifyLevelMismatch(t *testing.T) {
	v := NewVerifier(nil)
	records, transcript, edges, roots := cleanFixture()
	transcript["salesdb.dbo.usp_nightlyjob"] = 3

	report := v.Verify(records, transcript, edges, roots)

	assert.False(t, report.OK())
	assert.Len(t, report.Issues, 1)
	assert.Equal(t, IssueLevelMismatch, report.Issues[0].Kind)
	assert.Contains(t, report.Issues[0].Detail, "level 2 in chunks, level 3 in transcript")
}

func TestVerifyDanglingEdge(t *testing.T) {
	v := NewVerifier(nil)
	records, transcript, edges, roots := cleanFixture()
	edges = append(edges, edge("HrDB", "usp_Unknown", "SalesDB", "Orders", 1))

	report := v.Verify(records, transcript, edges, roots)

	assert.False(t, report.OK())
	assert.Len(t, report.Issues, 1)
	assert.Equal(t, IssueDanglingEdge, report.Issues[0].Kind)
	assert.Equal(t, "hrdb.dbo.usp_unknown", report.Issues[0].Key)
}

func TestVerifyRootKeysCaseInsensitive(t *testing.T) {
	v := NewVerifier(nil)
	records, transcript, edges, _ := cleanFixture()

	// Mixed-case root keys still cover their edges
	report := v.Verify(records, transcript, edges, []string{"SalesDB.dbo.Orders"})

	assert.True(t, report.OK())
}

func TestVerifyEmptyOutput(t *testing.T) {
	v := NewVerifier(nil)

	report := v.Verify(nil, nil, nil, nil)

	assert.True(t, report.OK())
	assert.Equal(t, 0, report.Records)
}

func TestIssueString(t *testing.T) {
	issue := Issue{
		Kind:   IssueMissingRecord,
		Key:    "salesdb.dbo.usp_ghost",
		Detail: "transcribed at level 1 but absent from chunks",
	}
	assert.Equal(t,
		"missing_record: salesdb.dbo.usp_ghost (transcribed at level 1 but absent from chunks)",
		issue.String())
}
