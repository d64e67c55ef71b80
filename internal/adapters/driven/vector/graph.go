package vector

import (
	"container/heap"
	"hash/fnv"
	"math"
	"sort"
)

// Graph construction parameters. M is the number of bidirectional links
// per node on the upper layers; layer 0 keeps twice as many.
const (
	graphM              = 16
	graphEfConstruction = 200
)

// candidate is a scored position in the index entry list.
type candidate struct {
	pos   int
	score float64
}

// node is one vertex of the small-world graph. links[l] holds the
// neighbour positions on layer l.
type node struct {
	level int
	links [][]int
}

// graph is a hierarchical navigable small-world index over the flat
// entry list of its owning Index. Nodes reference entries by position,
// so any compaction of the entry list invalidates the whole graph.
type graph struct {
	ix        *Index
	levelMult float64

	entryPoint int
	maxLevel   int
	nodes      []node
}

func newGraph(ix *Index) *graph {
	return &graph{
		ix:         ix,
		levelMult:  1 / math.Log(float64(graphM)),
		entryPoint: -1,
		maxLevel:   -1,
	}
}

// levelFor derives the layer for an entry from a hash of its chunk ID,
// so a rebuilt graph assigns the same levels and stays deterministic.
func (g *graph) levelFor(id string) int {
	h := fnv.New64a()
	h.Write([]byte(id))
	// Map the hash to (0, 1] and apply the standard exponential decay.
	u := (float64(h.Sum64()>>11) + 1) / float64(1<<53)
	return int(math.Floor(-math.Log(u) * g.levelMult))
}

// add inserts the entry at position pos into the graph.
// Caller holds the index write lock.
func (g *graph) add(pos int) {
	level := g.levelFor(g.ix.entries[pos].id)
	n := node{level: level, links: make([][]int, level+1)}

	if g.entryPoint < 0 {
		g.nodes = append(g.nodes, n)
		g.entryPoint = pos
		g.maxLevel = level
		return
	}

	q := g.ix.entries[pos].vec
	ep := g.entryPoint

	// Greedy descent through layers above the new node's level.
	for lc := g.maxLevel; lc > level; lc-- {
		ep = g.greedyClosest(q, ep, lc)
	}

	// Insert with beam search on each layer the node participates in.
	top := level
	if g.maxLevel < top {
		top = g.maxLevel
	}
	for lc := top; lc >= 0; lc-- {
		cands := g.searchLayer(q, []int{ep}, graphEfConstruction, lc)
		neighbours := selectClosest(cands, g.maxConn(lc))
		n.links[lc] = make([]int, 0, len(neighbours))
		for _, nb := range neighbours {
			n.links[lc] = append(n.links[lc], nb.pos)
		}
		if len(cands) > 0 {
			ep = cands[0].pos
		}
		// Bidirectional links; prune overfull neighbour lists.
		for _, nb := range neighbours {
			g.link(nb.pos, pos, lc)
		}
	}

	g.nodes = append(g.nodes, n)
	if level > g.maxLevel {
		g.maxLevel = level
		g.entryPoint = pos
	}
}

// link adds target to the neighbour list of pos on the given layer,
// pruning to the layer's connection limit by similarity.
func (g *graph) link(pos, target, level int) {
	nd := &g.nodes[pos]
	if level >= len(nd.links) {
		return
	}
	nd.links[level] = append(nd.links[level], target)

	limit := g.maxConn(level)
	if len(nd.links[level]) <= limit {
		return
	}

	base := g.ix.entries[pos].vec
	links := nd.links[level]
	sort.Slice(links, func(i, j int) bool {
		si := dot(base, g.ix.entries[links[i]].vec)
		sj := dot(base, g.ix.entries[links[j]].vec)
		if si != sj {
			return si > sj
		}
		return links[i] < links[j]
	})
	nd.links[level] = links[:limit]
}

func (g *graph) maxConn(level int) int {
	if level == 0 {
		return graphM * 2
	}
	return graphM
}

// greedyClosest walks a single layer towards the position closest to q.
func (g *graph) greedyClosest(q []float32, start, level int) int {
	cur := start
	curScore := dot(q, g.ix.entries[cur].vec)
	for {
		improved := false
		for _, nb := range g.nodes[cur].links[level] {
			if s := dot(q, g.ix.entries[nb].vec); s > curScore {
				cur, curScore = nb, s
				improved = true
			}
		}
		if !improved {
			return cur
		}
	}
}

// searchLayer runs a beam search of width ef on one layer and returns
// the candidates found, best first.
func (g *graph) searchLayer(q []float32, entryPoints []int, ef, level int) []candidate {
	visited := make(map[int]struct{}, ef*4)

	var frontier maxHeap // best candidate first
	var results minHeap  // worst result first, capped at ef

	for _, ep := range entryPoints {
		if _, ok := visited[ep]; ok {
			continue
		}
		visited[ep] = struct{}{}
		c := candidate{pos: ep, score: dot(q, g.ix.entries[ep].vec)}
		heap.Push(&frontier, c)
		heap.Push(&results, c)
	}

	for frontier.Len() > 0 {
		cur := heap.Pop(&frontier).(candidate)
		if results.Len() >= ef && cur.score < results[0].score {
			break
		}
		for _, nb := range g.nodes[cur.pos].links[level] {
			if _, ok := visited[nb]; ok {
				continue
			}
			visited[nb] = struct{}{}
			c := candidate{pos: nb, score: dot(q, g.ix.entries[nb].vec)}
			if results.Len() < ef || c.score > results[0].score {
				heap.Push(&frontier, c)
				heap.Push(&results, c)
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&results).(candidate)
	}
	return out
}

// search returns the approximate k nearest neighbours of q, descending
// by similarity with insertion-order tie-breaking.
func (g *graph) search(q []float32, k, ef int) []candidate {
	if g.entryPoint < 0 {
		return nil
	}

	ep := g.entryPoint
	for lc := g.maxLevel; lc > 0; lc-- {
		ep = g.greedyClosest(q, ep, lc)
	}

	cands := g.searchLayer(q, []int{ep}, ef, 0)
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].pos < cands[j].pos
	})
	if k < len(cands) {
		cands = cands[:k]
	}
	return cands
}

// selectClosest keeps the n best candidates (cands arrive best first).
func selectClosest(cands []candidate, n int) []candidate {
	if len(cands) <= n {
		return cands
	}
	return cands[:n]
}

// maxHeap pops the highest-score candidate first.
type maxHeap []candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].score > h[j].score }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(candidate)) }

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// minHeap pops the lowest-score candidate first.
type minHeap []candidate

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].score < h[j].score }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(candidate)) }

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
