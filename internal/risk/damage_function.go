package risk

import (
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"

	"finmodel/internal/apperrors"
	"finmodel/internal/model"
)

// Point is one (intensity, damage) knot of a piecewise-linear damage curve.
type Point struct {
	X float64
	Y float64
}

// DamageFunction is a piecewise-linear curve mapping peril intensity to a
// damage fraction (or, for business-interruption curves, downtime days).
// Outside its defined range, the curve holds its boundary value constant.
type DamageFunction struct {
	Code   string
	Points []Point

	// interior interpolates strictly between the first and last knot.
	// interp.PiecewiseLinear requires strictly increasing x values, so it's
	// only fit (and only consulted) when at least two distinct x's survive
	// deduplication; a curve with a single distinct x falls back to the
	// boundary constant, same as the flat-segment case did before.
	interior    interp.PiecewiseLinear
	hasInterior bool
}

// NewDamageFunction builds a function from def, parsing its JSON-encoded
// curve_definition field and validating it: points sorted by non-decreasing
// x, and non-negative y.
func NewDamageFunction(def model.DamageFunctionDef) (*DamageFunction, error) {
	var raw [][2]float64
	if err := json.Unmarshal([]byte(def.CurveDefinition), &raw); err != nil {
		return nil, fmt.Errorf("%w: damage function %q curve: %v", apperrors.ErrParse, def.FunctionCode, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: damage function %q has no curve points", apperrors.ErrDomain, def.FunctionCode)
	}

	points := make([]Point, len(raw))
	for i, p := range raw {
		points[i] = Point{X: p[0], Y: p[1]}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].X < points[j].X })

	for i, p := range points {
		if p.Y < 0 {
			return nil, fmt.Errorf("%w: damage function %q has negative y at x=%g", apperrors.ErrDomain, def.FunctionCode, p.X)
		}
		if i > 0 && points[i].X < points[i-1].X {
			return nil, fmt.Errorf("%w: damage function %q curve not sorted", apperrors.ErrDomain, def.FunctionCode)
		}
	}

	fn := &DamageFunction{Code: def.FunctionCode, Points: points}

	// interp.PiecewiseLinear.Fit requires strictly increasing x; collapse any
	// run of equal-x points to its first y, matching the old manual lookup's
	// "hi.X == lo.X" flat-segment behavior.
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if len(xs) > 0 && xs[len(xs)-1] == p.X {
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}

	if len(xs) >= 2 {
		if err := fn.interior.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("%w: damage function %q: fitting interpolant: %v", apperrors.ErrDomain, def.FunctionCode, err)
		}
		fn.hasInterior = true
	}

	return fn, nil
}

// Calculate evaluates the curve at x: constant extrapolation below the first
// point and above the last, piecewise-linear interpolation in between.
func (f *DamageFunction) Calculate(x float64) float64 {
	if x <= f.Points[0].X {
		return f.Points[0].Y
	}
	last := len(f.Points) - 1
	if x >= f.Points[last].X {
		return f.Points[last].Y
	}

	if !f.hasInterior {
		return f.Points[last].Y
	}
	return f.interior.Predict(x)
}
