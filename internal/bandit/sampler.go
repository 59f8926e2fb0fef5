package bandit

import (
	"math"
	"math/rand/v2"
)

// sampleBeta draws one sample from Beta(alpha, beta) via the standard
// Gamma-ratio construction: if X ~ Gamma(alpha, 1) and Y ~ Gamma(beta, 1)
// independently, X/(X+Y) ~ Beta(alpha, beta). No Beta/Gamma sampler exists
// among this module's dependencies, so this is implemented directly on
// math/rand/v2 (Marsaglia-Tsang for shape >= 1, boosted per Ahrens-Dieter
// for shape < 1).
func sampleBeta(alpha, beta float64) float64 {
	x := sampleGamma(alpha)
	y := sampleGamma(beta)

	if x+y == 0 {
		return 0.5
	}

	return x / (x + y)
}

// sampleGamma draws one sample from Gamma(shape, 1) using the
// Marsaglia-Tsang method, boosted for shape < 1 per Ahrens & Dieter (1982).
func sampleGamma(shape float64) float64 {
	if shape < 1 {
		u := rand.Float64()
		return sampleGamma(shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)

	for {
		x := rand.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}

		v = v * v * v
		u := rand.Float64()

		if u < 1-0.0331*(x*x)*(x*x) {
			return d * v
		}

		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
