package repo

import (
	"container/heap"
	"fmt"

	"github.com/trakvc/trak/pkg/object"
)

// Traversal ceiling. Histories are single-rooted and append-only, so the
// limit is unreachable in practice; it turns a corrupted cyclic graph into
// a checked failure instead of a hang.
const maxAncestrySteps = 1_000_000

type ancestryQueueItem struct {
	hash       object.Hash
	generation uint64
}

// ancestryMaxHeap pops the deepest (highest-generation) commit first, with
// the hash as a deterministic tie-break.
type ancestryMaxHeap []ancestryQueueItem

func (h ancestryMaxHeap) Len() int { return len(h) }

func (h ancestryMaxHeap) Less(i, j int) bool {
	if h[i].generation == h[j].generation {
		return h[i].hash < h[j].hash
	}
	return h[i].generation > h[j].generation
}

func (h ancestryMaxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *ancestryMaxHeap) Push(x any) {
	*h = append(*h, x.(ancestryQueueItem))
}

func (h *ancestryMaxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h ancestryMaxHeap) Peek() (ancestryQueueItem, bool) {
	if len(h) == 0 {
		return ancestryQueueItem{}, false
	}
	return h[0], true
}

// generationTracker memoizes generation numbers (distance-from-root, root=1)
// for one traversal. Generations are computed with an explicit stack so
// long histories cannot overflow the call stack.
type generationTracker struct {
	repo    *Repo
	gens    map[object.Hash]uint64
	commits map[object.Hash]*object.CommitObj
}

func newGenerationTracker(r *Repo) *generationTracker {
	return &generationTracker{
		repo:    r,
		gens:    make(map[object.Hash]uint64),
		commits: make(map[object.Hash]*object.CommitObj),
	}
}

func (g *generationTracker) commit(h object.Hash) (*object.CommitObj, error) {
	if c, ok := g.commits[h]; ok {
		return c, nil
	}
	c, err := g.repo.Store.ReadCommit(h)
	if err != nil {
		return nil, err
	}
	g.commits[h] = c
	return c, nil
}

func (g *generationTracker) generation(h object.Hash) (uint64, error) {
	if gen, ok := g.gens[h]; ok {
		return gen, nil
	}

	stack := []object.Hash{h}
	steps := 0
	for len(stack) > 0 {
		steps++
		if steps > maxAncestrySteps {
			return 0, fmt.Errorf("generation of %s: traversal exceeded %d steps", h.Short(), maxAncestrySteps)
		}

		cur := stack[len(stack)-1]
		if _, done := g.gens[cur]; done {
			stack = stack[:len(stack)-1]
			continue
		}

		c, err := g.commit(cur)
		if err != nil {
			return 0, err
		}

		ready := true
		var maxParent uint64
		for _, p := range c.Parents {
			if p == "" {
				continue
			}
			pg, ok := g.gens[p]
			if !ok {
				stack = append(stack, p)
				ready = false
				continue
			}
			if pg > maxParent {
				maxParent = pg
			}
		}
		if !ready {
			continue
		}

		g.gens[cur] = maxParent + 1
		stack = stack[:len(stack)-1]
	}

	return g.gens[h], nil
}

// FindMergeBase finds the lowest common ancestor of two commits in the
// parent DAG: a simultaneous best-first search from both tips, ordered by
// generation number, where the first commit reached from both sides at the
// highest generation wins. Returns ErrAncestorNotFound when the two commits
// share no history.
func (r *Repo) FindMergeBase(a, b object.Hash) (object.Hash, error) {
	if a == "" || b == "" {
		return "", fmt.Errorf("find merge base: %w", ErrAncestorNotFound)
	}
	if a == b {
		return a, nil
	}

	tracker := newGenerationTracker(r)
	genA, err := tracker.generation(a)
	if err != nil {
		return "", fmt.Errorf("find merge base: %w", err)
	}
	genB, err := tracker.generation(b)
	if err != nil {
		return "", fmt.Errorf("find merge base: %w", err)
	}

	visitedA := map[object.Hash]bool{a: true}
	visitedB := map[object.Hash]bool{b: true}

	queueA := ancestryMaxHeap{{hash: a, generation: genA}}
	queueB := ancestryMaxHeap{{hash: b, generation: genB}}
	heap.Init(&queueA)
	heap.Init(&queueB)

	best := object.Hash("")
	var bestGeneration uint64
	steps := 0

	for queueA.Len() > 0 || queueB.Len() > 0 {
		// Stop once neither frontier can improve on the best candidate.
		if best != "" {
			topA, okA := queueA.Peek()
			topB, okB := queueB.Peek()
			if (!okA || topA.generation < bestGeneration) && (!okB || topB.generation < bestGeneration) {
				break
			}
		}

		// Advance the side whose frontier is deeper.
		traverseA := false
		switch {
		case queueA.Len() == 0:
			traverseA = false
		case queueB.Len() == 0:
			traverseA = true
		default:
			topA := queueA[0]
			topB := queueB[0]
			if topA.generation != topB.generation {
				traverseA = topA.generation > topB.generation
			} else {
				traverseA = topA.hash <= topB.hash
			}
		}

		var item ancestryQueueItem
		if traverseA {
			item = heap.Pop(&queueA).(ancestryQueueItem)
		} else {
			item = heap.Pop(&queueB).(ancestryQueueItem)
		}

		steps++
		if steps > maxAncestrySteps {
			return "", fmt.Errorf("find merge base: traversal exceeded %d steps", maxAncestrySteps)
		}
		if best != "" && item.generation < bestGeneration {
			continue
		}

		if traverseA && visitedB[item.hash] || !traverseA && visitedA[item.hash] {
			best, bestGeneration = betterMergeBase(best, bestGeneration, item.hash, item.generation)
		}

		commit, err := tracker.commit(item.hash)
		if err != nil {
			return "", fmt.Errorf("find merge base: %w", err)
		}

		for _, p := range commit.Parents {
			if p == "" {
				continue
			}
			parentGen, err := tracker.generation(p)
			if err != nil {
				return "", fmt.Errorf("find merge base: %w", err)
			}
			if best != "" && parentGen < bestGeneration {
				continue
			}

			if traverseA {
				if visitedA[p] {
					continue
				}
				visitedA[p] = true
				heap.Push(&queueA, ancestryQueueItem{hash: p, generation: parentGen})
				if visitedB[p] {
					best, bestGeneration = betterMergeBase(best, bestGeneration, p, parentGen)
				}
			} else {
				if visitedB[p] {
					continue
				}
				visitedB[p] = true
				heap.Push(&queueB, ancestryQueueItem{hash: p, generation: parentGen})
				if visitedA[p] {
					best, bestGeneration = betterMergeBase(best, bestGeneration, p, parentGen)
				}
			}
		}
	}

	if best == "" {
		return "", fmt.Errorf("find merge base %s..%s: %w", a.Short(), b.Short(), ErrAncestorNotFound)
	}
	return best, nil
}

func betterMergeBase(best object.Hash, bestGen uint64, candidate object.Hash, candidateGen uint64) (object.Hash, uint64) {
	if best == "" || candidateGen > bestGen {
		return candidate, candidateGen
	}
	if candidateGen == bestGen && candidate < best {
		return candidate, candidateGen
	}
	return best, bestGen
}
