package generators

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrNotExpression  = errors.New("not an arithmetic expression")
)

var (
	mathLead = regexp.MustCompile(`^(?:please\s+)?(?:what\s+is|what's|whats|calculate|compute|evaluate|solve|how\s+much\s+is|tell\s+me)\s+`)
	mathTail = regexp.MustCompile(`[\s?=!.]+$`)

	percentOf = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent)\s+of\s+(\d+(?:\.\d+)?)`)

	// an embedded expression only counts when the sentence also asks for a calculation
	mathCue  = regexp.MustCompile(`\b(?:what\s+is|what's|whats|calculate|compute|evaluate|solve|equals|how\s+much\s+is)\b|=\s*\??\s*$`)
	mathSpan = regexp.MustCompile(`[-(]?\s*\d[\d\s.,+\-*/^%()×÷]*[\d)]`)

	// 2024-01-15, 555-123-4567: identifiers, not subtraction
	dashedDigits = regexp.MustCompile(`^\d+(?:-\d+){2,}$`)

	wordOps = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\bsquare\s+root\s+of\b`), " sqrt "},
		{regexp.MustCompile(`\bto\s+the\s+power\s+of\b`), "^"},
		{regexp.MustCompile(`\bmultiplied\s+by\b`), "*"},
		{regexp.MustCompile(`\bdivided\s+by\b`), "/"},
		{regexp.MustCompile(`\bplus\b`), "+"},
		{regexp.MustCompile(`\bminus\b`), "-"},
		{regexp.MustCompile(`\btimes\b`), "*"},
		{regexp.MustCompile(`\bover\b`), "/"},
		{regexp.MustCompile(`\b(?:mod|modulo)\b`), "%"},
		{regexp.MustCompile(`\bsquared\b`), "^2"},
		{regexp.MustCompile(`\bcubed\b`), "^3"},
		{regexp.MustCompile(`(\d)\s*x\s*(\d)`), "$1*$2"},
	}
	symbolOps = strings.NewReplacer("×", "*", "÷", "/", "−", "-", "**", "^")
)

type tokKind int

const (
	tokNum tokKind = iota
	tokOp
	tokLParen
	tokRParen
	tokSqrt
)

type token struct {
	kind  tokKind
	text  string
	val   float64
	unary bool
}

// Expression is a parsed arithmetic expression ready for evaluation.
type Expression struct {
	toks []token
}

// ParseExpression normalizes a natural-language arithmetic question ("what is 25 plus 17?")
// into tokens. It returns ErrNotExpression when the text is not purely arithmetic or has no
// operator.
func ParseExpression(lower string) (*Expression, error) {
	s := strings.TrimSpace(strings.ToLower(lower))
	s = mathLead.ReplaceAllString(s, "")
	s = mathTail.ReplaceAllString(s, "")
	s = symbolOps.Replace(s)
	for _, w := range wordOps {
		s = w.re.ReplaceAllString(s, w.repl)
	}
	s = strings.ReplaceAll(s, ",", "")
	if dashedDigits.MatchString(s) {
		return nil, ErrNotExpression
	}

	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	for _, t := range toks {
		if t.kind == tokNum && len(t.text) > 1 && t.text[0] == '0' && t.text[1] != '.' {
			return nil, ErrNotExpression
		}
	}
	ops := 0
	for _, t := range toks {
		if (t.kind == tokOp && !t.unary) || t.kind == tokSqrt {
			ops++
		}
	}
	if ops == 0 {
		return nil, ErrNotExpression
	}
	e := &Expression{toks: toks}
	if _, err := e.Eval(); errors.Is(err, ErrNotExpression) {
		return nil, err
	}
	return e, nil
}

func tokenize(s string) ([]token, error) {
	var toks []token
	prevOperand := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case (c >= '0' && c <= '9') || c == '.':
			j := i
			for j < len(s) && ((s[j] >= '0' && s[j] <= '9') || s[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return nil, ErrNotExpression
			}
			toks = append(toks, token{kind: tokNum, text: s[i:j], val: v})
			prevOperand = true
			i = j
		case strings.HasPrefix(s[i:], "sqrt"):
			toks = append(toks, token{kind: tokSqrt, text: "sqrt"})
			prevOperand = false
			i += 4
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			prevOperand = false
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			prevOperand = true
			i++
		case strings.IndexByte("+-*/^%", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c), unary: !prevOperand && (c == '-' || c == '+')})
			prevOperand = false
			i++
		default:
			return nil, ErrNotExpression
		}
	}
	if len(toks) == 0 {
		return nil, ErrNotExpression
	}
	return toks, nil
}

// String renders the expression with canonical spacing: "25+17" becomes "25 + 17".
func (e *Expression) String() string {
	var b strings.Builder
	for i, t := range e.toks {
		switch {
		case t.kind == tokOp && !t.unary:
			b.WriteString(" " + t.text + " ")
		case t.kind == tokSqrt:
			b.WriteString("sqrt")
			if i+1 < len(e.toks) && e.toks[i+1].kind != tokLParen {
				b.WriteString(" ")
			}
		default:
			b.WriteString(t.text)
		}
	}
	return b.String()
}

// Eval computes the value with the usual precedence: parentheses, sqrt and unary signs, then
// right-associative ^, then * / %, then + -.
func (e *Expression) Eval() (float64, error) {
	p := &parser{toks: e.toks}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, ErrNotExpression
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result out of range")
	}
	return v, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() *token {
	if p.pos < len(p.toks) {
		return &p.toks[p.pos]
	}
	return nil
}

func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for t := p.peek(); t != nil && t.kind == tokOp && !t.unary && (t.text == "+" || t.text == "-"); t = p.peek() {
		p.pos++
		r, err := p.term()
		if err != nil {
			return 0, err
		}
		if t.text == "+" {
			v += r
		} else {
			v -= r
		}
	}
	return v, nil
}

func (p *parser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for t := p.peek(); t != nil && t.kind == tokOp && (t.text == "*" || t.text == "/" || t.text == "%"); t = p.peek() {
		p.pos++
		r, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch t.text {
		case "*":
			v *= r
		case "/":
			if r == 0 {
				return 0, ErrDivisionByZero
			}
			v /= r
		case "%":
			if r == 0 {
				return 0, ErrDivisionByZero
			}
			v = math.Mod(v, r)
		}
	}
	return v, nil
}

func (p *parser) unary() (float64, error) {
	t := p.peek()
	if t != nil && t.kind == tokOp && t.unary {
		p.pos++
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if t.text == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.power()
}

func (p *parser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t != nil && t.kind == tokOp && t.text == "^" {
		p.pos++
		exp, err := p.unary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary() (float64, error) {
	t := p.peek()
	if t == nil {
		return 0, ErrNotExpression
	}
	switch t.kind {
	case tokNum:
		p.pos++
		return t.val, nil
	case tokSqrt:
		p.pos++
		v, err := p.power()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("square root of a negative number")
		}
		return math.Sqrt(v), nil
	case tokLParen:
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if c := p.peek(); c == nil || c.kind != tokRParen {
			return 0, ErrNotExpression
		}
		p.pos++
		return v, nil
	}
	return 0, ErrNotExpression
}

// FormatNumber prints v without float noise: 0.1+0.2 prints as 0.3 and 42.0 as 42.
func FormatNumber(v float64) string {
	r := math.Round(v*1e10) / 1e10
	if r == 0 {
		r = 0 // drop negative zero
	}
	if math.Abs(r) >= 1e15 {
		return strconv.FormatFloat(r, 'g', 12, 64)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// IsArithmetic reports whether lower is a calculation request the math generator can answer.
func IsArithmetic(lower string) bool {
	if percentOf.MatchString(lower) {
		return true
	}
	_, err := findExpression(lower)
	return err == nil
}

// findExpression parses the whole text, or failing that the longest numeric span inside a
// sentence that asks for a calculation ("thanks! now what is 12 * 3?").
func findExpression(lower string) (*Expression, error) {
	expr, err := ParseExpression(lower)
	if err == nil || !mathCue.MatchString(lower) {
		return expr, err
	}
	var best string
	for _, span := range mathSpan.FindAllString(lower, -1) {
		if len(span) > len(best) {
			best = span
		}
	}
	if best == "" {
		return nil, ErrNotExpression
	}
	return ParseExpression(best)
}

// Calculate answers a calculation request. ok is false when lower holds no arithmetic.
func Calculate(lower string) (answer string, ok bool) {
	if m := percentOf.FindStringSubmatch(lower); m != nil {
		pct, _ := strconv.ParseFloat(m[1], 64)
		of, _ := strconv.ParseFloat(m[2], 64)
		res := pct / 100 * of
		return fmt.Sprintf("**%s%% of %s = %s**\n\n%s ÷ 100 × %s = %s",
			m[1], m[2], FormatNumber(res), m[1], m[2], FormatNumber(res)), true
	}

	expr, err := findExpression(lower)
	if err != nil {
		return "", false
	}
	v, err := expr.Eval()
	switch {
	case errors.Is(err, ErrDivisionByZero):
		return fmt.Sprintf("**%s** is undefined: division by zero has no result.", expr), true
	case err != nil:
		return fmt.Sprintf("I couldn't compute **%s**: %v.", expr, err), true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s = %s**", expr, FormatNumber(v))
	if expr.mixedPrecedence() {
		b.WriteString("\n\nOrder of operations applied: parentheses, exponents, multiplication and division, then addition and subtraction.")
	}
	return b.String(), true
}

func (e *Expression) mixedPrecedence() bool {
	var add, mul bool
	for _, t := range e.toks {
		if t.kind == tokOp && !t.unary {
			switch t.text {
			case "+", "-":
				add = true
			default:
				mul = true
			}
		}
		if t.kind == tokLParen {
			return true
		}
	}
	return add && mul
}
