// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// arena is the indexed form of a LogicFlow used by the traversal passes.
//
// Nodes are addressed by their position in declaration order; adjacency is
// a slice of int slices so the DFS and Kahn passes never chase pointers or
// hash node ids in their inner loops. Neighbor order preserves edge
// declaration order, which is what makes cycle reports and topological
// orders deterministic for identical input bytes.
type arena struct {
	seq  []*datatypes.GraphNode // declaration order
	byID map[string]int         // node_id -> index in seq
	adj  [][]int                // outgoing neighbors per node, edge order
}

// newArena indexes a flow. Edges whose endpoints do not resolve are
// dropped; callers that care run the edge-integrity pass first.
func newArena(flow *datatypes.LogicFlow) *arena {
	a := &arena{
		seq:  make([]*datatypes.GraphNode, 0, len(flow.Nodes)),
		byID: make(map[string]int, len(flow.Nodes)),
		adj:  make([][]int, len(flow.Nodes)),
	}
	for i := range flow.Nodes {
		n := &flow.Nodes[i]
		// First declaration wins on duplicate ids; the shape pass has
		// already reported the duplicate.
		if _, seen := a.byID[n.NodeID]; seen {
			continue
		}
		a.byID[n.NodeID] = len(a.seq)
		a.seq = append(a.seq, n)
	}
	a.adj = a.adj[:len(a.seq)]
	for _, e := range flow.Edges {
		src, okSrc := a.byID[e.SourceNodeID]
		dst, okDst := a.byID[e.TargetNodeID]
		if !okSrc || !okDst {
			continue
		}
		a.adj[src] = append(a.adj[src], dst)
	}
	return a
}

// findCycle runs a depth-first search with an on-stack set, visiting roots
// in declaration order and neighbors in edge order. On the first back-edge
// it reconstructs the cycle as the current path suffix starting at the
// repeated node; the back-edge from the last id to the first closes the
// loop. Returns nil when the graph is acyclic.
func (a *arena) findCycle() []string {
	n := len(a.seq)
	visited := make([]bool, n)
	onStack := make([]bool, n)
	path := make([]int, 0, n)
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		visited[i] = true
		onStack[i] = true
		path = append(path, i)

		for _, j := range a.adj[i] {
			if !visited[j] {
				if visit(j) {
					return true
				}
				continue
			}
			if onStack[j] {
				start := 0
				for k, p := range path {
					if p == j {
						start = k
						break
					}
				}
				cycle = make([]string, 0, len(path)-start)
				for _, p := range path[start:] {
					cycle = append(cycle, a.seq[p].NodeID)
				}
				return true
			}
		}

		path = path[:len(path)-1]
		onStack[i] = false
		return false
	}

	for i := 0; i < n; i++ {
		if !visited[i] && visit(i) {
			return cycle
		}
	}
	return nil
}

// kahn produces a topological order using Kahn's algorithm. The
// zero-in-degree queue is seeded in declaration order and processed FIFO;
// newly freed nodes enter the queue in the edge order of the node that
// freed them. On a cyclic graph the returned order is shorter than the
// node count.
func (a *arena) kahn() []string {
	n := len(a.seq)
	indeg := make([]int, n)
	for _, outs := range a.adj {
		for _, j := range outs {
			indeg[j]++
		}
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]string, 0, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, a.seq[i].NodeID)
		for _, j := range a.adj[i] {
			indeg[j]--
			if indeg[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	return order
}

// isolated reports node ids with no incident edges at all. These are legal
// but almost always a builder mistake, so validation surfaces them as
// warnings.
func (a *arena) isolated() []string {
	n := len(a.seq)
	touched := make([]bool, n)
	for i, outs := range a.adj {
		if len(outs) > 0 {
			touched[i] = true
		}
		for _, j := range outs {
			touched[j] = true
		}
	}
	var ids []string
	for i := 0; i < n; i++ {
		if !touched[i] {
			ids = append(ids, a.seq[i].NodeID)
		}
	}
	return ids
}
