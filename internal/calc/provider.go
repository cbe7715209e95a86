package calc

// ValueProvider resolves a bare identifier (no time suffix handling — that
// is the evaluator's job) to a numeric value under a given Context.
// FormulaEvaluator walks a chain of these in order and uses the first one
// that reports HasValue.
type ValueProvider interface {
	// HasValue reports whether this provider can resolve code under ctx.
	HasValue(code string, ctx Context) bool

	// GetValue resolves code under ctx. Only called after HasValue returns true.
	GetValue(code string, ctx Context) (float64, error)
}

// CustomFunction evaluates a function call the grammar's built-ins (MIN,
// MAX, ABS, IF) don't cover, e.g. "tax:FLAT_RATE" dispatched with already
// evaluated argument values.
type CustomFunction func(name string, args []float64, ctx Context) (float64, error)
