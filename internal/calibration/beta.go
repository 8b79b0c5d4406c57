package calibration

import "math"

// lgamma returns the natural log of the absolute value of Gamma(x).
func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// regularizedIncompleteBeta computes I_x(a, b), the regularized incomplete
// beta function, via the standard continued-fraction expansion (Numerical
// Recipes §6.4). No statistics library in the example pack offers this, so
// it is implemented directly against math.Lgamma.
func regularizedIncompleteBeta(x, a, b float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lbeta := lgamma(a) + lgamma(b) - lgamma(a+b)
	front := math.Exp(math.Log(x)*a + math.Log(1-x)*b - lbeta)

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(x, a, b) / a
	}
	return 1 - front*betaContinuedFraction(1-x, b, a)/b
}

// betaContinuedFraction evaluates the continued fraction used by the
// incomplete beta function, via Lentz's algorithm.
func betaContinuedFraction(x, a, b float64) float64 {
	const maxIterations = 200
	const epsilon = 3e-12
	const tiny = 1e-30

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIterations; m++ {
		m2 := float64(2 * m)

		aa := float64(m) * (b - float64(m)) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + float64(m)) * (qab + float64(m)) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		delta := d * c
		h *= delta

		if math.Abs(delta-1) < epsilon {
			break
		}
	}
	return h
}

// betaQuantile computes Beta.ppf(p; a, b), the inverse regularized
// incomplete beta function, via bisection on regularizedIncompleteBeta.
func betaQuantile(p, a, b float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		if regularizedIncompleteBeta(mid, a, b) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// Mean returns the Beta(alpha, beta) distribution's mean.
func Mean(alpha, beta float64) float64 {
	return alpha / (alpha + beta)
}

// Variance returns the Beta(alpha, beta) distribution's variance.
func Variance(alpha, beta float64) float64 {
	sum := alpha + beta
	return (alpha * beta) / (sum * sum * (sum + 1))
}

// SampleSize returns the effective sample size implied by the posterior,
// i.e. the number of observations folded into the prior.
func SampleSize(alpha, beta float64) float64 {
	return alpha + beta - 2
}

// CredibleInterval95 returns the [2.5th, 97.5th] percentile bounds of the
// Beta(alpha, beta) posterior.
func CredibleInterval95(alpha, beta float64) (low, high float64) {
	return betaQuantile(0.025, alpha, beta), betaQuantile(0.975, alpha, beta)
}
