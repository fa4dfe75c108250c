// Package graph orders services by their dependencies and detects cycles.
package graph

import (
	"reflect"
	"sort"
	"sync"
)

// DependencyGraph manages the dependency relationships between services.
// It provides cycle detection and dependency-first ordering.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[reflect.Type]*Node
	next  int
}

// Node represents a service in the dependency graph
type Node struct {
	Type reflect.Type

	// Dependencies are the services this node depends on
	Dependencies []reflect.Type

	// order is the insertion order, used to keep sorting deterministic
	order int
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[reflect.Type]*Node),
	}
}

// AddNode adds or replaces a node and its dependencies. Dependencies that
// have no node of their own are created as leaves.
func (g *DependencyGraph) AddNode(t reflect.Type, dependencies []reflect.Type) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.ensure(t)
	node.Dependencies = append([]reflect.Type(nil), dependencies...)

	for _, dep := range dependencies {
		g.ensure(dep)
	}
}

func (g *DependencyGraph) ensure(t reflect.Type) *Node {
	node, ok := g.nodes[t]
	if !ok {
		node = &Node{Type: t, order: g.next}
		g.next++
		g.nodes[t] = node
	}
	return node
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// TopologicalSort returns node types in dependency order (dependencies first).
// Ties are broken by insertion order.
func (g *DependencyGraph) TopologicalSort() ([]reflect.Type, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm over the reversed edges: a node is ready once all of
	// its dependencies have been emitted.
	remaining := make(map[reflect.Type]int, len(g.nodes))
	dependents := make(map[reflect.Type][]reflect.Type, len(g.nodes))
	for t, node := range g.nodes {
		remaining[t] = len(node.Dependencies)
		for _, dep := range node.Dependencies {
			dependents[dep] = append(dependents[dep], t)
		}
	}

	queue := make([]*Node, 0)
	for t, n := range remaining {
		if n == 0 {
			queue = append(queue, g.nodes[t])
		}
	}
	g.sortByOrder(queue)

	result := make([]reflect.Type, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current.Type)

		var ready []*Node
		for _, dependent := range dependents[current.Type] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, g.nodes[dependent])
			}
		}
		g.sortByOrder(ready)
		queue = append(queue, ready...)
	}

	if len(result) != len(g.nodes) {
		return nil, g.cycleError()
	}

	return result, nil
}

func (g *DependencyGraph) sortByOrder(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].order < nodes[j].order
	})
}

// cycleError returns a *CircularDependencyError for the first cycle found,
// or nil. Must be called with the lock held.
func (g *DependencyGraph) cycleError() error {
	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[reflect.Type]int, len(g.nodes))
	var path []reflect.Type
	var found *CircularDependencyError

	var visit func(t reflect.Type) bool
	visit = func(t reflect.Type) bool {
		switch state[t] {
		case visiting:
			// Trim the path to the cycle itself.
			for i, p := range path {
				if p == t {
					found = &CircularDependencyError{
						Node: t,
						Path: append([]reflect.Type(nil), path[i:]...),
					}
					break
				}
			}
			return true
		case visited:
			return false
		}

		state[t] = visiting
		path = append(path, t)

		if node := g.nodes[t]; node != nil {
			for _, dep := range node.Dependencies {
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		state[t] = visited
		return false
	}

	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	g.sortByOrder(nodes)

	for _, node := range nodes {
		if state[node.Type] == unvisited && visit(node.Type) {
			return found
		}
	}

	return nil
}
