package docstore

import "container/heap"

// candidateHeap is a bounded min-heap over record positions: the root is the
// weakest kept candidate, so a better score (or an equal score with a lower
// ID) evicts it. Keeping k entries instead of sorting the full score slice
// bounds the per-query allocation by k.
type candidateHeap struct {
	idx     []int
	scores  []float32
	records []Record
}

func (h *candidateHeap) Len() int { return len(h.idx) }

func (h *candidateHeap) Less(i, j int) bool {
	a, b := h.idx[i], h.idx[j]
	if h.scores[a] != h.scores[b] {
		return h.scores[a] < h.scores[b]
	}
	return h.records[a].ID > h.records[b].ID
}

func (h *candidateHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }

func (h *candidateHeap) Push(x any) { h.idx = append(h.idx, x.(int)) }

func (h *candidateHeap) Pop() any {
	last := h.idx[len(h.idx)-1]
	h.idx = h.idx[:len(h.idx)-1]
	return last
}

// beats reports whether candidate a outranks candidate b.
func (h *candidateHeap) beats(a, b int) bool {
	if h.scores[a] != h.scores[b] {
		return h.scores[a] > h.scores[b]
	}
	return h.records[a].ID < h.records[b].ID
}

// selectTop returns the positions of the k best-scoring records, ordered by
// descending score with ties broken by ascending ID.
func selectTop(records []Record, scores []float32, k int) []int {
	if k > len(records) {
		k = len(records)
	}

	h := &candidateHeap{
		idx:     make([]int, 0, k),
		scores:  scores,
		records: records,
	}
	for i := range records {
		if h.Len() < k {
			heap.Push(h, i)
			continue
		}
		if h.beats(i, h.idx[0]) {
			h.idx[0] = i
			heap.Fix(h, 0)
		}
	}

	out := make([]int, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(int)
	}

	return out
}
