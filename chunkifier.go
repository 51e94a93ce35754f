package main

// Chunkify splits text into fixed-size chunks with the given overlap between
// consecutive chunks.
func Chunkify(text string, size int, overlap int) []string {
	l := len(text)
	if l == 0 {
		return []string{}
	}

	// degenerate sizes would stall or panic the loop; config validates them,
	// but Chunkify stays total for any input
	if size < 1 {
		size = 1
	}
	step := size - overlap
	if step < 1 {
		step = 1
	}
	pos := 0
	res := make([]string, 0, l/step+1)

	for {
		end := min(pos+size, l)
		res = append(res, text[pos:end])
		if end >= l {
			break
		}

		pos += step
	}

	return res
}

type DefaultChunkifier struct {
	chunkSize    int
	chunkOverlap int
}

func (c *DefaultChunkifier) Chunkify(text string) []string {
	return Chunkify(text, c.chunkSize, c.chunkOverlap)
}
