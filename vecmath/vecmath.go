// Package vecmath provides bulk float32 vector math for similarity search.
// Batch kernels operate on a flattened row-major matrix so the whole index is
// scored in one pass instead of one call per record.
package vecmath

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Rows below this count are scored on the calling goroutine even on an
// accelerated device; fan-out overhead dominates otherwise.
const parallelThreshold = 1024

// Dot returns the dot product of a and b.
//
// SAFETY: assumes len(a) == len(b); callers must ensure lengths match.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// CosineBatch scores query against every row of a flattened row-major matrix
// and writes cosine similarities to out. rows holds len(out) vectors of
// length dim. A zero-magnitude query or row scores exactly 0.
//
// When accelerated is true the unrolled kernel runs and large batches are
// sharded across GOMAXPROCS goroutines; results agree with the generic path
// up to float32 rounding.
func CosineBatch(query []float32, rows []float32, dim int, out []float32, accelerated bool) {
	if dim <= 0 || len(out) == 0 || len(query) < dim {
		return
	}

	n := len(out)
	if rowCount := len(rows) / dim; rowCount < n {
		n = rowCount
	}

	q := query[:dim]
	qNorm := Norm(q)
	if qNorm == 0 {
		for i := 0; i < n; i++ {
			out[i] = 0
		}
		return
	}

	if !accelerated {
		for i := 0; i < n; i++ {
			out[i] = cosineScalar(q, rows[i*dim:(i+1)*dim], qNorm)
		}
		return
	}

	if n < parallelThreshold {
		cosineUnrolled(q, rows, dim, out[:n], qNorm)
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var g errgroup.Group
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			cosineUnrolled(q, rows[start*dim:end*dim], dim, out[start:end], qNorm)
			return nil
		})
	}
	_ = g.Wait() // shards never fail
}

func cosineScalar(q, v []float32, qNorm float32) float32 {
	var dot, vv float32
	for i := range q {
		dot += q[i] * v[i]
		vv += v[i] * v[i]
	}
	if vv == 0 {
		return 0
	}
	return dot / (qNorm * float32(math.Sqrt(float64(vv))))
}

// cosineUnrolled is the accelerated kernel: four independent accumulators per
// row keep the FP pipelines busy and let the compiler vectorize.
func cosineUnrolled(q, rows []float32, dim int, out []float32, qNorm float32) {
	for i := range out {
		v := rows[i*dim : (i+1)*dim]

		var dot0, dot1, dot2, dot3 float32
		var vv0, vv1, vv2, vv3 float32

		j := 0
		for ; j+4 <= dim; j += 4 {
			dot0 += q[j] * v[j]
			dot1 += q[j+1] * v[j+1]
			dot2 += q[j+2] * v[j+2]
			dot3 += q[j+3] * v[j+3]
			vv0 += v[j] * v[j]
			vv1 += v[j+1] * v[j+1]
			vv2 += v[j+2] * v[j+2]
			vv3 += v[j+3] * v[j+3]
		}
		for ; j < dim; j++ {
			dot0 += q[j] * v[j]
			vv0 += v[j] * v[j]
		}

		dot := dot0 + dot1 + dot2 + dot3
		vv := vv0 + vv1 + vv2 + vv3
		if vv == 0 {
			out[i] = 0
			continue
		}
		out[i] = dot / (qNorm * float32(math.Sqrt(float64(vv))))
	}
}
