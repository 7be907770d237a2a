package scoring

// Default recommendation curve: points(n) = base + factor*sqrt(n).
const (
	defaultRecommendationBase   = 5.0
	defaultRecommendationFactor = 5.0
)

// Option configures an Engine.
type Option func(*Engine)

// WithRecommendationCurve overrides the base and factor of the
// recommendation curve. Non-positive values are ignored.
func WithRecommendationCurve(base, factor float64) Option {
	return func(e *Engine) {
		if base > 0 {
			e.recBase = base
		}
		if factor > 0 {
			e.recFactor = factor
		}
	}
}
