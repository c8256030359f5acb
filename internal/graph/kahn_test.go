package graph

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func chainGraph(keys ...string) *Graph {
	g := NewGraph()
	for _, key := range keys {
		g.AddNode(objectNode(key))
	}
	for i := 0; i+1 < len(keys); i++ {
		g.AddEdge(keys[i], keys[i+1])
	}
	return g
}

func TestCalculateInDegrees(t *testing.T) {
	g := chainGraph("orders", "usp_update", "usp_nightly")
	g.AddNode(objectNode("trg_audit"))
	g.AddEdge("orders", "trg_audit")

	inDegrees := g.CalculateInDegrees()

	if inDegrees["orders"] != 0 {
		t.Errorf("Expected orders in-degree 0, got %d", inDegrees["orders"])
	}
	if inDegrees["usp_update"] != 1 {
		t.Errorf("Expected usp_update in-degree 1, got %d", inDegrees["usp_update"])
	}
	if inDegrees["trg_audit"] != 1 {
		t.Errorf("Expected trg_audit in-degree 1, got %d", inDegrees["trg_audit"])
	}
}

func TestProcessingQueue(t *testing.T) {
	pq := NewProcessingQueue()
	if !pq.IsEmpty() {
		t.Error("New queue should be empty")
	}

	pq.Enqueue("a")
	pq.Enqueue("b")
	if pq.Len() != 2 {
		t.Errorf("Expected length 2, got %d", pq.Len())
	}

	node, ok := pq.Dequeue()
	if !ok || node != "a" {
		t.Errorf("Expected a, got %q (%v)", node, ok)
	}
	node, ok = pq.Dequeue()
	if !ok || node != "b" {
		t.Errorf("Expected b, got %q (%v)", node, ok)
	}
	if _, ok := pq.Dequeue(); ok {
		t.Error("Dequeue on empty queue should return false")
	}
}

func TestTopologicalSort_Chain(t *testing.T) {
	g := chainGraph("orders", "usp_update", "usp_nightly")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}

	expected := []string{"orders", "usp_update", "usp_nightly"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("Expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Deterministic(t *testing.T) {
	build := func() *Graph {
		g := NewGraph()
		for _, key := range []string{"orders", "zz_proc", "aa_proc", "mm_proc"} {
			g.AddNode(objectNode(key))
		}
		g.AddEdge("orders", "zz_proc")
		g.AddEdge("orders", "aa_proc")
		g.AddEdge("orders", "mm_proc")
		return g
	}

	first, err := build().TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := build().TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Order not deterministic: %v vs %v", first, again)
		}
	}

	// Siblings unlocked by the same node come out in edge insertion order.
	expected := []string{"orders", "zz_proc", "aa_proc", "mm_proc"}
	if !reflect.DeepEqual(first, expected) {
		t.Errorf("Expected %v, got %v", expected, first)
	}
}

func TestMigrationAndDecommissionOrder(t *testing.T) {
	g := chainGraph("orders", "usp_update", "usp_nightly")

	migration, err := g.MigrationOrder()
	if err != nil {
		t.Fatalf("MigrationOrder failed: %v", err)
	}
	decommission, err := g.DecommissionOrder()
	if err != nil {
		t.Fatalf("DecommissionOrder failed: %v", err)
	}

	for i := range migration {
		if migration[i] != decommission[len(decommission)-1-i] {
			t.Fatalf("Decommission order is not the reverse of migration order: %v vs %v", migration, decommission)
		}
	}
}

func TestStages(t *testing.T) {
	g := NewGraph()
	for _, key := range []string{"orders", "customers", "usp_update", "usp_report", "usp_nightly"} {
		g.AddNode(objectNode(key))
	}
	g.AddEdge("orders", "usp_update")
	g.AddEdge("customers", "usp_report")
	g.AddEdge("usp_update", "usp_nightly")
	g.AddEdge("usp_report", "usp_nightly")

	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages failed: %v", err)
	}

	expected := [][]string{
		{"customers", "orders"},
		{"usp_report", "usp_update"},
		{"usp_nightly"},
	}
	if !reflect.DeepEqual(stages, expected) {
		t.Errorf("Expected stages %v, got %v", expected, stages)
	}
}

func TestCycleDetection(t *testing.T) {
	g := chainGraph("orders", "usp_a", "usp_b")
	g.AddEdge("usp_b", "usp_a")

	if !g.HasCycle() {
		t.Fatal("Expected cycle")
	}

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("Expected TopologicalSort to fail")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected CycleError, got %T", err)
	}

	info := cycleErr.Info
	if info.TotalNodes != 3 || info.ProcessedNodes != 1 {
		t.Errorf("Unexpected counts: %+v", info)
	}
	if !reflect.DeepEqual(info.CycleParticipants, []string{"usp_a", "usp_b"}) {
		t.Errorf("Unexpected participants %v", info.CycleParticipants)
	}
	if len(info.CyclePath) == 0 || info.CyclePath[0] != info.CyclePath[len(info.CyclePath)-1] {
		t.Errorf("Cycle path should close on itself: %v", info.CyclePath)
	}
}

func TestCycleDetection_BlockedNodes(t *testing.T) {
	g := chainGraph("orders", "usp_a", "usp_b")
	g.AddEdge("usp_b", "usp_a")
	g.AddNode(objectNode("usp_downstream"))
	g.AddEdge("usp_b", "usp_downstream")

	info := g.DetectIncompleteProcessing()
	if info == nil {
		t.Fatal("Expected cycle info")
	}
	if len(info.UnprocessedNodes) != 3 {
		t.Errorf("Expected 3 unprocessed nodes, got %v", info.UnprocessedNodes)
	}
	if len(info.CycleParticipants) != 2 {
		t.Errorf("Expected 2 cycle participants, got %v", info.CycleParticipants)
	}

	var cycleErr error = &CycleError{Info: info}
	msg := cycleErr.Error()
	if !strings.Contains(msg, "usp_downstream") {
		t.Errorf("Error message should name blocked objects: %s", msg)
	}
}

func TestValidate(t *testing.T) {
	g := chainGraph("orders", "usp_update")
	if err := g.Validate(); err != nil {
		t.Errorf("Expected valid graph, got %v", err)
	}

	g.AddEdge("usp_update", "orders")
	if err := g.Validate(); err == nil {
		t.Error("Expected validation failure on cycle")
	}
}
