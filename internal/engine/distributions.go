package engine

import (
	"fmt"
	"math/rand"

	"github.com/kevichi7/bench-sort/internal/model"
)

// Numeric is the set of element types the generic generators and sort
// algorithms are instantiated over (everything but string).
type Numeric interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// genNumeric produces an input array of T values shaped by dist. The
// shape is computed in float64 "rank space" and cast to T at the end,
// so every numeric element type shares one generator body, per the
// spec's design note to generate per-type code paths via
// instantiation rather than runtime casts scattered through the body.
func genNumeric[T Numeric](call Call) ([]T, error) {
	n := call.N
	rng := rand.New(rand.NewSource(call.Seed))
	vals := make([]float64, n)

	switch call.Distribution {
	case model.DistRandom:
		for i := range vals {
			vals[i] = rng.Float64() * float64(n)
		}
	case model.DistSorted:
		for i := range vals {
			vals[i] = float64(i)
		}
	case model.DistReverseSorted:
		for i := range vals {
			vals[i] = float64(n - i)
		}
	case model.DistNearlySorted:
		for i := range vals {
			vals[i] = float64(i)
		}
		swaps := n / 100
		for s := 0; s < swaps; s++ {
			a, b := rng.Intn(n), rng.Intn(n)
			vals[a], vals[b] = vals[b], vals[a]
		}
	case model.DistRuns:
		alpha := call.RunsAlpha
		if alpha <= 0 {
			alpha = 0.1
		}
		runLen := maxInt(1, int(alpha*float64(n)))
		v := 0.0
		for i := 0; i < n; {
			for j := 0; j < runLen && i < n; j, i = j+1, i+1 {
				vals[i] = v
				v++
			}
		}
	case model.DistZipf:
		s := call.ZipfS
		if s <= 0 {
			s = 1.1
		}
		z := rand.NewZipf(rng, s, 1, uint64(n))
		for i := range vals {
			vals[i] = float64(z.Uint64())
		}
	case model.DistDupHeavy:
		distinct := call.DupValues
		if distinct <= 0 {
			distinct = maxInt(1, n/100)
		}
		for i := range vals {
			vals[i] = float64(rng.Intn(distinct))
		}
	case model.DistPartialShuffle:
		for i := range vals {
			vals[i] = float64(i)
		}
		pct := call.PartialShufflePct
		if pct <= 0 {
			pct = 10
		}
		swaps := int(float64(n) * pct / 100.0)
		for s := 0; s < swaps; s++ {
			a, b := rng.Intn(n), rng.Intn(n)
			vals[a], vals[b] = vals[b], vals[a]
		}
	case model.DistAllEqual:
		for i := range vals {
			vals[i] = 1
		}
	case model.DistSawtooth:
		period := maxInt(2, n/10)
		for i := range vals {
			vals[i] = float64(i % period)
		}
	case model.DistStagger:
		block := call.StaggerBlock
		if block <= 0 {
			block = maxInt(1, n/20)
		}
		for i := range vals {
			vals[i] = float64((i*7 + i/block) % n)
		}
	case model.DistOrganPipe:
		half := n / 2
		for i := 0; i < n; i++ {
			if i <= half {
				vals[i] = float64(i)
			} else {
				vals[i] = float64(n - i)
			}
		}
	case model.DistStringRandom:
		return nil, newErr(InvalidConfig, "string_random distribution requires elem_type=str")
	default:
		return nil, newErr(InvalidConfig, fmt.Sprintf("unsupported distribution %q", call.Distribution))
	}

	out := make([]T, n)
	for i, v := range vals {
		out[i] = T(v)
	}
	return out, nil
}

// genStrings generates a []string input, the element type the numeric
// generator above deliberately excludes.
func genStrings(call Call) ([]string, error) {
	n := call.N
	rng := rand.New(rand.NewSource(call.Seed))
	out := make([]string, n)

	switch call.Distribution {
	case model.DistSorted:
		for i := range out {
			out[i] = fmt.Sprintf("%08d", i)
		}
	case model.DistReverseSorted:
		for i := range out {
			out[i] = fmt.Sprintf("%08d", n-i)
		}
	case model.DistAllEqual:
		for i := range out {
			out[i] = "same-value"
		}
	case model.DistDupHeavy:
		distinct := call.DupValues
		if distinct <= 0 {
			distinct = maxInt(1, n/100)
		}
		for i := range out {
			out[i] = fmt.Sprintf("dup-%06d", rng.Intn(distinct))
		}
	case model.DistRandom, model.DistStringRandom:
		for i := range out {
			out[i] = randomString(rng, 12)
		}
	default:
		// Fall back to a numeric shape rendered as zero-padded strings,
		// so every distribution tunable remains meaningful for strings.
		nums, err := genNumeric[int64](call)
		if err != nil {
			return nil, err
		}
		for i, v := range nums {
			out[i] = fmt.Sprintf("%020d", v)
		}
	}
	return out, nil
}

func randomString(rng *rand.Rand, n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
