package formula

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"finmodel/internal/apperrors"
	"finmodel/internal/calc"

	"github.com/shopspring/decimal"
)

// Grammar (recursive descent, matching the evaluator this module is grounded on):
//
//	expression → term (('+' | '-') term)*
//	term       → power (('*' | '/') power)*
//	power      → unary ('^' unary)?
//	unary      → '-' unary | factor
//	factor     → number | '(' expression ')' | identifier tail
//	tail       → '(' arglist ')' | '[' time_ref ']' | ε
//	time_ref   → 't' (('+' | '-') integer)?
//
// Built-ins: MIN(a,b), MAX(a,b), ABS(x), IF(cond,a,b). Any other identifier
// used as a function call (tail = '(' arglist ')') is dispatched through the
// custom-function callback, e.g. "tax:FLAT_RATE(PRE_TAX_INCOME)".
type Evaluator struct{}

// NewEvaluator returns a stateless formula evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses and evaluates formula against the given provider chain and
// context. Providers are tried in order; the first one whose HasValue
// returns true resolves the identifier, matching the first-match-wins
// ordering spec.md requires of the provider chain.
func (e *Evaluator) Evaluate(
	formula string,
	providers []calc.ValueProvider,
	ctx calc.Context,
	customFn calc.CustomFunction,
) (float64, error) {
	p := &parser{
		input:     formula,
		providers: providers,
		ctx:       ctx,
		customFn:  customFn,
	}

	result, err := p.parseExpression()
	if err != nil {
		return 0, err
	}

	p.skipWhitespace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: unexpected trailing input at position %d in %q", apperrors.ErrParse, p.pos, formula)
	}

	f, _ := result.Float64()
	return f, nil
}

// Dependency describes one identifier a formula references.
type Dependency struct {
	Code        string
	HasTimeRef  bool
	TimeOffset  int // valid only when HasTimeRef is true
}

// ExtractDependencies parses formula and returns every distinct identifier
// it references, along with whether (and by how much) each reference is
// time-shifted. Order follows first appearance in the formula.
func (e *Evaluator) ExtractDependencies(formula string) ([]Dependency, error) {
	p := &parser{input: formula, extractOnly: true}

	if err := p.scanExpression(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(p.deps))
	var out []Dependency
	for _, d := range p.deps {
		key := fmt.Sprintf("%s|%v|%d", d.Code, d.HasTimeRef, d.TimeOffset)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}

	return out, nil
}

type parser struct {
	input     string
	pos       int
	providers []calc.ValueProvider
	ctx       calc.Context
	customFn  calc.CustomFunction

	// extractOnly switches the parser into a dependency-scan mode where
	// identifiers are recorded instead of resolved.
	extractOnly bool
	deps        []Dependency
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) next() byte {
	c := p.peek()
	if c != 0 {
		p.pos++
	}
	return c
}

func (p *parser) skipWhitespace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n') {
		p.pos++
	}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == ':'
}

// ---- evaluating parse ----

func (p *parser) parseExpression() (decimal.Decimal, error) {
	result, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		p.skipWhitespace()
		switch p.peek() {
		case '+':
			p.next()
			rhs, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			result = result.Add(rhs)
		case '-':
			p.next()
			rhs, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			result = result.Sub(rhs)
		default:
			return result, nil
		}
	}
}

func (p *parser) parseTerm() (decimal.Decimal, error) {
	result, err := p.parsePower()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		p.skipWhitespace()
		switch p.peek() {
		case '*':
			p.next()
			rhs, err := p.parsePower()
			if err != nil {
				return decimal.Zero, err
			}
			result = result.Mul(rhs)
		case '/':
			p.next()
			rhs, err := p.parsePower()
			if err != nil {
				return decimal.Zero, err
			}
			if rhs.IsZero() {
				return decimal.Zero, fmt.Errorf("%w: division by zero in %q", apperrors.ErrDomain, p.input)
			}
			result = result.Div(rhs)
		default:
			return result, nil
		}
	}
}

func (p *parser) parsePower() (decimal.Decimal, error) {
	base, err := p.parseUnary()
	if err != nil {
		return decimal.Zero, err
	}

	p.skipWhitespace()
	if p.peek() == '^' {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		baseF, _ := base.Float64()
		expF, _ := exp.Float64()
		return decimal.NewFromFloat(math.Pow(baseF, expF)), nil
	}

	return base, nil
}

func (p *parser) parseUnary() (decimal.Decimal, error) {
	p.skipWhitespace()
	if p.peek() == '-' {
		p.next()
		val, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		return val.Neg(), nil
	}
	return p.parseFactor()
}

func (p *parser) parseFactor() (decimal.Decimal, error) {
	p.skipWhitespace()

	c := p.peek()
	switch {
	case c == '(':
		p.next()
		val, err := p.parseExpression()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipWhitespace()
		if p.next() != ')' {
			return decimal.Zero, fmt.Errorf("%w: expected ')' in %q at position %d", apperrors.ErrParse, p.input, p.pos)
		}
		return val, nil

	case isDigit(c), c == '.':
		return p.readNumber()

	case isAlpha(c):
		id := p.readIdentifier()
		return p.parseIdentifierTail(id)

	default:
		return decimal.Zero, fmt.Errorf("%w: unexpected character %q in %q at position %d", apperrors.ErrParse, string(c), p.input, p.pos)
	}
}

func (p *parser) readNumber() (decimal.Decimal, error) {
	start := p.pos
	for isDigit(p.peek()) {
		p.next()
	}
	if p.peek() == '.' {
		p.next()
		for isDigit(p.peek()) {
			p.next()
		}
	}
	text := p.input[start:p.pos]
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid number %q", apperrors.ErrParse, text)
	}
	return d, nil
}

func (p *parser) readIdentifier() string {
	start := p.pos
	for isAlnum(p.peek()) {
		p.next()
	}
	return p.input[start:p.pos]
}

func (p *parser) parseIdentifierTail(id string) (decimal.Decimal, error) {
	p.skipWhitespace()

	switch p.peek() {
	case '(':
		p.next()
		var args []decimal.Decimal
		p.skipWhitespace()
		if p.peek() != ')' {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return decimal.Zero, err
				}
				args = append(args, arg)
				p.skipWhitespace()
				if p.peek() == ',' {
					p.next()
					continue
				}
				break
			}
		}
		p.skipWhitespace()
		if p.next() != ')' {
			return decimal.Zero, fmt.Errorf("%w: expected ')' after arguments to %q", apperrors.ErrParse, id)
		}
		return p.callFunction(id, args)

	case '[':
		p.next()
		offset, err := p.parseTimeRef()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipWhitespace()
		if p.next() != ']' {
			return decimal.Zero, fmt.Errorf("%w: expected ']' after time reference on %q", apperrors.ErrParse, id)
		}
		return p.resolveVariable(id, offset)

	default:
		return p.resolveVariable(id, 0)
	}
}

func (p *parser) parseTimeRef() (int, error) {
	p.skipWhitespace()
	if p.next() != 't' {
		return 0, fmt.Errorf("%w: expected 't' in time reference", apperrors.ErrParse)
	}
	p.skipWhitespace()

	sign := 1
	switch p.peek() {
	case '+':
		p.next()
	case '-':
		sign = -1
		p.next()
	default:
		return 0, nil
	}

	p.skipWhitespace()
	start := p.pos
	for isDigit(p.peek()) {
		p.next()
	}
	if p.pos == start {
		return 0, fmt.Errorf("%w: expected integer offset in time reference", apperrors.ErrParse)
	}
	n, _ := strconv.Atoi(p.input[start:p.pos])
	return sign * n, nil
}

func (p *parser) callFunction(name string, args []decimal.Decimal) (decimal.Decimal, error) {
	switch strings.ToUpper(name) {
	case "MIN":
		if len(args) != 2 {
			return decimal.Zero, fmt.Errorf("%w: MIN requires exactly 2 arguments", apperrors.ErrParse)
		}
		if args[0].LessThan(args[1]) {
			return args[0], nil
		}
		return args[1], nil

	case "MAX":
		if len(args) != 2 {
			return decimal.Zero, fmt.Errorf("%w: MAX requires exactly 2 arguments", apperrors.ErrParse)
		}
		if args[0].GreaterThan(args[1]) {
			return args[0], nil
		}
		return args[1], nil

	case "ABS":
		if len(args) != 1 {
			return decimal.Zero, fmt.Errorf("%w: ABS requires exactly 1 argument", apperrors.ErrParse)
		}
		return args[0].Abs(), nil

	case "IF":
		if len(args) != 3 {
			return decimal.Zero, fmt.Errorf("%w: IF requires exactly 3 arguments", apperrors.ErrParse)
		}
		if !args[0].IsZero() {
			return args[1], nil
		}
		return args[2], nil
	}

	if p.customFn == nil {
		return decimal.Zero, fmt.Errorf("%w: unknown function %q", apperrors.ErrResolution, name)
	}

	floatArgs := make([]float64, len(args))
	for i, a := range args {
		floatArgs[i], _ = a.Float64()
	}

	result, err := p.customFn(name, floatArgs, p.ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("custom function %q: %w", name, err)
	}
	return decimal.NewFromFloat(result), nil
}

func (p *parser) resolveVariable(code string, offset int) (decimal.Decimal, error) {
	lookupCtx := p.ctx.WithOffset(offset)

	for _, provider := range p.providers {
		if provider.HasValue(code, lookupCtx) {
			val, err := provider.GetValue(code, lookupCtx)
			if err != nil {
				return decimal.Zero, fmt.Errorf("resolving %q: %w", code, err)
			}
			return decimal.NewFromFloat(val), nil
		}
	}

	return decimal.Zero, fmt.Errorf("%w: no provider resolved %q", apperrors.ErrResolution, code)
}

// ---- dependency-scan parse (mirrors the grammar above, but records
// identifiers instead of resolving them) ----

func (p *parser) scanExpression() error {
	if err := p.scanTerm(); err != nil {
		return err
	}
	for {
		p.skipWhitespace()
		switch p.peek() {
		case '+', '-':
			p.next()
			if err := p.scanTerm(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) scanTerm() error {
	if err := p.scanPower(); err != nil {
		return err
	}
	for {
		p.skipWhitespace()
		switch p.peek() {
		case '*', '/':
			p.next()
			if err := p.scanPower(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) scanPower() error {
	if err := p.scanUnary(); err != nil {
		return err
	}
	p.skipWhitespace()
	if p.peek() == '^' {
		p.next()
		return p.scanUnary()
	}
	return nil
}

func (p *parser) scanUnary() error {
	p.skipWhitespace()
	if p.peek() == '-' {
		p.next()
		return p.scanUnary()
	}
	return p.scanFactor()
}

func (p *parser) scanFactor() error {
	p.skipWhitespace()
	c := p.peek()
	switch {
	case c == '(':
		p.next()
		if err := p.scanExpression(); err != nil {
			return err
		}
		p.skipWhitespace()
		if p.next() != ')' {
			return fmt.Errorf("%w: expected ')' in %q", apperrors.ErrParse, p.input)
		}
		return nil

	case isDigit(c) || c == '.':
		for isDigit(p.peek()) {
			p.next()
		}
		if p.peek() == '.' {
			p.next()
			for isDigit(p.peek()) {
				p.next()
			}
		}
		return nil

	case isAlpha(c):
		id := p.readIdentifier()
		return p.scanIdentifierTail(id)

	default:
		return fmt.Errorf("%w: unexpected character %q in %q", apperrors.ErrParse, string(c), p.input)
	}
}

func (p *parser) scanIdentifierTail(id string) error {
	p.skipWhitespace()

	switch p.peek() {
	case '(':
		p.next()
		p.skipWhitespace()
		if p.peek() != ')' {
			for {
				if err := p.scanExpression(); err != nil {
					return err
				}
				p.skipWhitespace()
				if p.peek() == ',' {
					p.next()
					continue
				}
				break
			}
		}
		p.skipWhitespace()
		if p.next() != ')' {
			return fmt.Errorf("%w: expected ')' after arguments to %q", apperrors.ErrParse, id)
		}
		// Function names are not dependencies themselves.
		return nil

	case '[':
		p.next()
		offset, err := p.parseTimeRef()
		if err != nil {
			return err
		}
		p.skipWhitespace()
		if p.next() != ']' {
			return fmt.Errorf("%w: expected ']' after time reference on %q", apperrors.ErrParse, id)
		}
		p.deps = append(p.deps, Dependency{Code: id, HasTimeRef: true, TimeOffset: offset})
		return nil

	default:
		p.deps = append(p.deps, Dependency{Code: id, HasTimeRef: false})
		return nil
	}
}

// SortedCodes is a small helper the dependency-graph wiring uses to build
// deterministic edge lists from a dependency slice.
func SortedCodes(deps []Dependency) []string {
	codes := make([]string, len(deps))
	for i, d := range deps {
		codes[i] = d.Code
	}
	sort.Strings(codes)
	return codes
}
