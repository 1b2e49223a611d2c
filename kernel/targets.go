package kernel

import "github.com/klauspost/cpuid/v2"

// SupportedTargets returns the SIMD extensions the running CPU supports, in
// the fixed order the kernels would consider them for dispatch: widest
// first. This mirrors the compile-time enumeration the upstream ANN library
// exposes, realized here as a runtime probe since Go kernels don't compile
// one variant per target.
func SupportedTargets() []string {
	var targets []string
	add := func(ok bool, name string) {
		if ok {
			targets = append(targets, name)
		}
	}
	add(cpuid.CPU.Supports(cpuid.AVX512F), "avx512")
	add(cpuid.CPU.Supports(cpuid.AVX2), "avx2")
	add(cpuid.CPU.Supports(cpuid.AVX), "avx")
	add(cpuid.CPU.Supports(cpuid.SSE4), "sse4")
	add(cpuid.CPU.Supports(cpuid.ASIMD), "neon")
	targets = append(targets, "scalar")
	return targets
}

// RuntimeTarget returns the single target the current process would pick:
// the first (widest) entry of SupportedTargets.
func RuntimeTarget() string {
	targets := SupportedTargets()
	if len(targets) == 0 {
		return "scalar"
	}
	return targets[0]
}
