package graph

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ProcessingQueue wraps a list-based queue for Kahn's algorithm processing.
// It holds nodes that are ready to be processed (have in-degree of 0).
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// InitializeQueue creates a processing queue populated with all nodes that
// have in-degree of 0. These are the objects with no unmigrated dependencies.
// Keys are enqueued in sorted order so the resulting plan is deterministic.
func (g *Graph) InitializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := NewProcessingQueue()

	var ready []string
	for key, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)
	for _, key := range ready {
		pq.Enqueue(key)
	}

	return pq
}

// Enqueue adds a node to the back of the queue.
func (pq *ProcessingQueue) Enqueue(key string) {
	pq.queue.PushBack(key)
}

// Dequeue removes and returns the node at the front of the queue.
// Returns empty string and false if queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of nodes in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no nodes.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees computes the number of incoming edges for each node.
// This is the first step of Kahn's algorithm for topological sorting.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int)

	for key := range g.Nodes {
		inDegree[key] = 0
	}
	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// ErrCycleDetected is returned when the dependency graph contains a cycle,
// making a strict migration order impossible.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo contains information about incomplete processing due to cycles.
type CycleInfo struct {
	TotalNodes        int      // Total number of nodes in the graph
	ProcessedNodes    int      // Number of nodes successfully ordered
	UnprocessedNodes  []string // Nodes that couldn't be ordered (part of or blocked by a cycle)
	CycleParticipants []string // Nodes that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// CycleError reports which objects form a reference cycle and which are
// blocked behind it. Mutually recursive procedures produce these; the plan
// surfaces them as a group that has to be migrated together.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d objects could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}
	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nObjects in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}
		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}
		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nObjects blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns information
// about any nodes that couldn't be ordered. If all nodes are ordered,
// returns nil (no cycle).
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	processed := make(map[string]bool)
	for !queue.IsEmpty() {
		key, _ := queue.Dequeue()
		processed[key] = true

		for _, child := range g.GetChildren(key) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(processed) == len(g.Nodes) {
		return nil
	}

	var unprocessed []string
	for key := range g.Nodes {
		if !processed[key] {
			unprocessed = append(unprocessed, key)
		}
	}
	sort.Strings(unprocessed)

	unprocessedSet := make(map[string]bool)
	for _, key := range unprocessed {
		unprocessedSet[key] = true
	}

	var cycleParticipants []string
	for _, key := range unprocessed {
		if g.canReachSelf(key, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, key)
		}
	}

	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// HasCycle returns true if the dependency graph contains a cycle.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCyclePath finds the actual path that forms a cycle starting from the
// given node. Returns the ordered list of nodes forming the cycle, with the
// start node at both ends.
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}
	return nil
}

func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}
		if child == target {
			*path = append(*path, target)
			return true
		}
		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)
		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

// canReachSelf checks if a node can reach itself through the subgraph
// defined by the allowedNodes set.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target node.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}
	if visited[current] {
		return false
	}
	if !allowedNodes[current] {
		return false
	}
	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}
	return false
}

// TopologicalSort returns objects in topological order using Kahn's
// algorithm: every object appears after everything it references.
// Returns a CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	var result []string
	processed := 0

	for !queue.IsEmpty() {
		key, _ := queue.Dequeue()
		result = append(result, key)
		processed++

		for _, child := range g.GetChildren(key) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if processed != len(g.Nodes) {
		return nil, &CycleError{Info: g.DetectIncompleteProcessing()}
	}
	return result, nil
}

// MigrationOrder returns the order in which objects should be recreated on
// the target platform: root tables first, then each object after everything
// its definition references.
func (g *Graph) MigrationOrder() ([]string, error) {
	return g.TopologicalSort()
}

// DecommissionOrder returns the order in which objects can be dropped on the
// source: dependents before their dependencies, the reverse of the migration
// order.
func (g *Graph) DecommissionOrder() ([]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	reversed := make([]string, len(order))
	for i, key := range order {
		reversed[len(order)-1-i] = key
	}
	return reversed, nil
}

// Stages groups the migration order into waves: stage N contains the objects
// whose dependencies are all in stages before N, so a stage can be migrated
// as one batch. Returns a CycleError if the graph contains a cycle.
func (g *Graph) Stages() ([][]string, error) {
	inDegree := g.CalculateInDegrees()

	remaining := len(g.Nodes)
	var stages [][]string
	for remaining > 0 {
		var stage []string
		for key, degree := range inDegree {
			if degree == 0 {
				stage = append(stage, key)
			}
		}
		if len(stage) == 0 {
			return nil, &CycleError{Info: g.DetectIncompleteProcessing()}
		}
		sort.Strings(stage)

		for _, key := range stage {
			inDegree[key] = -1
			for _, child := range g.GetChildren(key) {
				inDegree[child]--
			}
		}
		stages = append(stages, stage)
		remaining -= len(stage)
	}
	return stages, nil
}

// Validate checks the graph for cycles so a plan can fail fast with the full
// cycle report instead of surfacing it mid-output.
func (g *Graph) Validate() error {
	if info := g.DetectIncompleteProcessing(); info != nil {
		return &CycleError{Info: info}
	}
	return nil
}
