package graph

import (
	"container/list"

	"github.com/dbsmedya/custrecon/internal/types"
)

// ProcessingQueue is a FIFO of customer identifiers used for breadth-first
// traversal.
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// Enqueue adds an identifier to the back of the queue.
func (pq *ProcessingQueue) Enqueue(id string) {
	pq.queue.PushBack(id)
}

// Dequeue removes and returns the identifier at the front of the queue.
// Returns empty string and false if queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of identifiers in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue is empty.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// undirected returns the adjacency of the graph with edge direction ignored.
func (g *Graph) undirected() map[string][]string {
	adj := make(map[string][]string, len(g.related))
	for from, set := range g.related {
		if _, ok := adj[from]; !ok {
			adj[from] = nil
		}
		for to := range set {
			adj[from] = append(adj[from], to)
			adj[to] = append(adj[to], from)
		}
	}
	return adj
}

// Family returns every customer connected to id, in either direction,
// including id itself. The result is sorted. Unknown ids return nil.
func (g *Graph) Family(id string) []string {
	if !g.HasNode(id) {
		return nil
	}
	return bfs(g.undirected(), id, make(map[string]bool))
}

// Families partitions the graph into connected customer families. Families
// are ordered by their smallest member.
func (g *Graph) Families() [][]string {
	adj := g.undirected()
	visited := make(map[string]bool, len(adj))

	var families [][]string
	for _, id := range g.Nodes() {
		if visited[id] {
			continue
		}
		families = append(families, bfs(adj, id, visited))
	}
	return families
}

func bfs(adj map[string][]string, start string, visited map[string]bool) []string {
	pq := NewProcessingQueue()
	pq.Enqueue(start)
	visited[start] = true

	var members []string
	for !pq.IsEmpty() {
		id, _ := pq.Dequeue()
		members = append(members, id)
		for _, next := range adj[id] {
			if !visited[next] {
				visited[next] = true
				pq.Enqueue(next)
			}
		}
	}
	types.SortIDs(members)
	return members
}
