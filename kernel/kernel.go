// Package kernel implements the dense distance kernels the index runs on
// every insertion and search: inner product, squared L2, and normalization,
// dispatched for the element types the vector space declares (f32, bf16,
// f16). Reductions are not associative across lane widths, so callers must
// compare kernel output within a tolerance, never bit-exactly.
package kernel

import (
	"math"

	"github.com/viant/vec/search"
)

// normEpsilon guards the normalization denominator against division by zero.
// It must not be changed independently of the contract documented on
// Normalize.
const normEpsilon = 1e-30

// InnerProduct returns Σ a[i]*b[i]. When a and b alias the same backing
// array it takes the self-product fast path (a plain squared-sum); otherwise
// it runs a four-way unrolled multiply-add reduction with a pairwise tree
// combine and a one-element-at-a-time scalar tail for the remaining lanes.
func InnerProduct(a, b []float32) float32 {
	n := len(a)
	if n == 0 {
		return 0
	}
	if &a[0] == &b[0] && n == len(b) {
		return selfSum(a)
	}
	return fmaReduce(a, b)
}

// InnerProductDistance is 1 - InnerProduct(a, b). On empty input it returns
// 1.0, a contract inherited unchanged from the upstream ANN library this
// index is modeled on.
func InnerProductDistance(a, b []float32) float32 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	return 1 - InnerProduct(a, b)
}

// L2Squared returns Σ (a[i]-b[i])^2. Returns 0 exactly when a and b alias.
func L2Squared(a, b []float32) float32 {
	n := len(a)
	if n == 0 {
		return 0
	}
	if &a[0] == &b[0] && n == len(b) {
		return 0
	}
	var acc0, acc1, acc2, acc3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		acc0 += d0 * d0
		acc1 += d1 * d1
		acc2 += d2 * d2
		acc3 += d3 * d3
	}
	sum := (acc0 + acc1) + (acc2 + acc3)
	for ; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// L2SquaredMixed computes squared L2 distance between an f32 vector and a
// bf16 vector, widening b to f32 lane by lane. a and b must not alias (mixed
// precision is only legal cross-type, so aliasing is meaningless here).
func L2SquaredMixed(a []float32, b []BF16) float32 {
	n := len(a)
	if n != len(b) {
		return float32(math.NaN())
	}
	var sum float32
	for i := 0; i < n; i++ {
		d := a[i] - b[i].Float32()
		sum += d * d
	}
	return sum
}

func fmaReduce(a, b []float32) float32 {
	n := len(a)
	var acc0, acc1, acc2, acc3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		acc0 += a[i] * b[i]
		acc1 += a[i+1] * b[i+1]
		acc2 += a[i+2] * b[i+2]
		acc3 += a[i+3] * b[i+3]
	}
	sum := (acc0 + acc1) + (acc2 + acc3)
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func selfSum(a []float32) float32 {
	n := len(a)
	var acc0, acc1, acc2, acc3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		acc0 += a[i] * a[i]
		acc1 += a[i+1] * a[i+1]
		acc2 += a[i+2] * a[i+2]
		acc3 += a[i+3] * a[i+3]
	}
	sum := (acc0 + acc1) + (acc2 + acc3)
	for ; i < n; i++ {
		sum += a[i] * a[i]
	}
	return sum
}

// Magnitude returns the L2 norm of v, delegating to the SIMD-backed search
// package.
func Magnitude(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return search.Float32s(v).Magnitude()
}

// Normalize rescales v to unit L2 norm in place, computing
// 1/(sqrt(Σ v[i]^2) + normEpsilon) once and multiplying every lane by it. The
// additive epsilon in the denominator must be preserved; it is the guard
// against division by zero on an all-zero vector.
func Normalize(v []float32) {
	if len(v) == 0 {
		return
	}
	mag := Magnitude(v)
	inv := 1 / (mag + normEpsilon)
	for i := range v {
		v[i] *= inv
	}
}

// Normalized returns a normalized copy of v, leaving v untouched.
func Normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	Normalize(out)
	return out
}

// CosineDistance computes 1 - cosine_similarity(a, b) using precomputed
// magnitudes via the search package.
func CosineDistance(a, b []float32, magA, magB float32) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 1.0
	}
	return search.Float32s(a).CosineDistanceWithMagnitude(b, magA, magB)
}

// EuclideanDistance returns sqrt(L2Squared(a, b)) via the search package.
func EuclideanDistance(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return search.Float32s(a).EuclideanDistance(b)
}
