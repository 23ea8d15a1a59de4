package trader

// StrategyResult summarizes a finished strategy run. Read-only once built.
type StrategyResult struct {
	Attempted           int
	Succeeded           int
	ExecutedQuantity    float64
	VolumeWeightedAvg   float64
	NoFills             bool
	ReferencePriceStart float64
	ReferencePriceEnd   float64
}

// PriceImpactPct is the reference-price move over the run, in percent.
func (r *StrategyResult) PriceImpactPct() float64 {
	if r.ReferencePriceStart == 0 {
		return 0
	}
	return (r.ReferencePriceEnd - r.ReferencePriceStart) / r.ReferencePriceStart * 100
}

// SlippagePct compares achieved average price against the starting reference.
func (r *StrategyResult) SlippagePct() float64 {
	if r.ReferencePriceStart == 0 || r.NoFills {
		return 0
	}
	return (r.VolumeWeightedAvg - r.ReferencePriceStart) / r.ReferencePriceStart * 100
}

// resultBuilder accumulates per-order outcomes while a strategy runs.
type resultBuilder struct {
	attempted int
	succeeded int
	quantity  float64
	notional  float64
	refStart  float64
	refEnd    float64
}

func (b *resultBuilder) attempt() {
	b.attempted++
}

// fill records one executed order. The average is volume-weighted over
// succeeded orders only.
func (b *resultBuilder) fill(quantity, price float64) {
	b.succeeded++
	b.quantity += quantity
	b.notional += quantity * price
}

func (b *resultBuilder) build() *StrategyResult {
	result := &StrategyResult{
		Attempted:           b.attempted,
		Succeeded:           b.succeeded,
		ExecutedQuantity:    b.quantity,
		ReferencePriceStart: b.refStart,
		ReferencePriceEnd:   b.refEnd,
	}
	if b.quantity > 0 {
		result.VolumeWeightedAvg = b.notional / b.quantity
	} else {
		// Explicit flag instead of a divide-by-zero average.
		result.NoFills = true
	}
	return result
}
