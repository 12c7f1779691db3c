package valuefmt

import (
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/ardnew/ftl/arith"
)

// decimalPattern is a compiled decimal format pattern such as "#,##0.00",
// optionally followed by ";;" and extended parameters.
type decimalPattern struct {
	src string
	sym symbols

	posPrefix, posSuffix []affixPart
	negPrefix, negSuffix []affixPart
	hasNeg               bool

	minInt, minFrac, maxFrac int
	grouping                 int
	exponent                 bool
	minExp                   int
	multiplier               int64
	rounding                 arith.Rounding
	currency                 bool
}

// affixPart is literal text or one of the special characters of a prefix
// or suffix.
type affixPart struct {
	lit     string
	special rune
}

const (
	specialPercent  = '%'
	specialPerMill  = '‰'
	specialCurrency = '¤'
	specialCode     = 'C'
	specialMinus    = '-'
)

func parsePattern(src string, tag language.Tag) (*decimalPattern, error) {
	std, ext := splitExtension(src)

	p := &decimalPattern{
		src:        src,
		sym:        localeSymbols(tag),
		multiplier: 1,
		rounding:   arith.RoundHalfEven,
	}

	if err := p.parseStandard(std); err != nil {
		return nil, err
	}

	if err := p.parseExtension(ext, tag); err != nil {
		return nil, err
	}

	return p, nil
}

func invalidPattern(src, reason string, attrs ...slog.Attr) error {
	return ErrInvalidFormatParameters.
		Wrap(fmt.Errorf("malformed number format %q: %s", src, reason)).
		With(attrs...)
}

// splitExtension separates the standard pattern from the parameters that
// follow the second unquoted ';'.
func splitExtension(src string) (std, ext string) {
	semicolons, quoted := 0, false

	for i := 0; i < len(src); i++ {
		switch src[i] {
		case ';':
			if quoted {
				continue
			}

			semicolons++
			if semicolons < 2 {
				continue
			}

			end := i
			if src[i-1] == ';' {
				end--
			}

			return src[:end], src[i+1:]
		case '\'':
			if quoted && i+1 < len(src) && src[i+1] == '\'' {
				i++

				continue
			}

			quoted = !quoted
		}
	}

	return src, ""
}

func (p *decimalPattern) parseStandard(std string) error {
	pos, neg, hasNeg := splitSubpattern(std)

	prefix, body, suffix, err := p.splitAffixes(pos)
	if err != nil {
		return err
	}

	if p.posPrefix, err = p.parseAffix(prefix); err != nil {
		return err
	}

	if p.posSuffix, err = p.parseAffix(suffix); err != nil {
		return err
	}

	if err := p.parseBody(body); err != nil {
		return err
	}

	if !hasNeg {
		return nil
	}

	prefix, _, suffix, err = p.splitAffixes(neg)
	if err != nil {
		return err
	}

	p.hasNeg = true

	if p.negPrefix, err = p.parseAffix(prefix); err != nil {
		return err
	}

	p.negSuffix, err = p.parseAffix(suffix)

	return err
}

func splitSubpattern(std string) (pos, neg string, ok bool) {
	quoted := false

	for i := 0; i < len(std); i++ {
		switch std[i] {
		case '\'':
			quoted = !quoted
		case ';':
			if !quoted {
				return std[:i], std[i+1:], i+1 < len(std)
			}
		}
	}

	return std, "", false
}

func isBodyChar(c byte) bool {
	return c == '#' || c == '0' || c == ',' || c == '.'
}

// splitAffixes cuts a subpattern into prefix, digit body and suffix.
func (p *decimalPattern) splitAffixes(sub string) (prefix, body, suffix string, err error) {
	quoted := false
	start, end := -1, -1

	for i := 0; i < len(sub); i++ {
		c := sub[i]

		switch {
		case c == '\'':
			quoted = !quoted
		case quoted:
		case isBodyChar(c):
			if end >= 0 {
				return "", "", "", invalidPattern(p.src, "digits after the suffix started")
			}

			if start < 0 {
				start = i
			}
		case c == 'E' && start >= 0 && end < 0:
			j := i + 1
			for j < len(sub) && sub[j] == '0' {
				j++
			}

			if j == i+1 {
				return "", "", "", invalidPattern(p.src, "exponent needs at least one '0'")
			}

			i = j - 1
		default:
			if start >= 0 && end < 0 {
				end = i
			}
		}
	}

	if start < 0 {
		return "", "", "", invalidPattern(p.src, "no digit placeholders")
	}

	if quoted {
		return "", "", "", invalidPattern(p.src, "unterminated quote")
	}

	if end < 0 {
		end = len(sub)
	}

	return sub[:start], sub[start:end], sub[end:], nil
}

func (p *decimalPattern) parseBody(body string) error {
	intPart, expPart, _ := strings.Cut(body, "E")
	if expPart != "" {
		p.exponent, p.minExp = true, len(expPart)
	}

	intPart, fracPart, hasDot := strings.Cut(intPart, ".")
	if strings.Contains(fracPart, ".") {
		return invalidPattern(p.src, "multiple decimal separators")
	}

	if hasDot && strings.Contains(fracPart, ",") {
		return invalidPattern(p.src, "grouping separator in the fraction")
	}

	seenZero := false

	for _, c := range intPart {
		switch c {
		case '0':
			seenZero = true
			p.minInt++
		case '#':
			if seenZero {
				return invalidPattern(p.src, "'#' after '0' in the integer part")
			}
		}
	}

	if i := strings.LastIndexByte(intPart, ','); i >= 0 {
		p.grouping = len(intPart) - i - 1
		if p.grouping == 0 {
			return invalidPattern(p.src, "grouping separator at the end of the integer part")
		}
	}

	seenHash := false

	for _, c := range fracPart {
		switch c {
		case '0':
			if seenHash {
				return invalidPattern(p.src, "'0' after '#' in the fraction")
			}

			p.minFrac++
		case '#':
			seenHash = true
		}

		p.maxFrac++
	}

	if p.exponent && p.minInt == 0 {
		p.minInt = 1
	}

	return nil
}

func (p *decimalPattern) parseAffix(s string) ([]affixPart, error) {
	var (
		parts []affixPart
		lit   strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, affixPart{lit: lit.String()})
			lit.Reset()
		}
	}

	special := func(r rune) {
		flush()
		parts = append(parts, affixPart{special: r})
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		switch r {
		case '\'':
			if i < len(s) && s[i] == '\'' {
				lit.WriteByte('\'')
				i++

				continue
			}

			end := strings.IndexByte(s[i:], '\'')
			for end >= 0 && i+end+1 < len(s) && s[i+end+1] == '\'' {
				lit.WriteString(s[i : i+end+1])
				i += end + 2
				end = strings.IndexByte(s[i:], '\'')
			}

			if end < 0 {
				return nil, invalidPattern(p.src, "unterminated quote")
			}

			lit.WriteString(s[i : i+end])
			i += end + 1
		case '%':
			p.multiplier = 100
			special(specialPercent)
		case '‰':
			p.multiplier = 1000
			special(specialPerMill)
		case '¤':
			p.currency = true
			if strings.HasPrefix(s[i:], "¤") {
				i += len("¤")
				special(specialCode)
			} else {
				special(specialCurrency)
			}
		case '-':
			special(specialMinus)
		default:
			lit.WriteRune(r)
		}
	}

	flush()

	return parts, nil
}

var roundingParam = map[string]arith.Rounding{
	"up":          arith.RoundUp,
	"down":        arith.RoundDown,
	"ceiling":     arith.RoundCeiling,
	"floor":       arith.RoundFloor,
	"halfDown":    arith.RoundHalfDown,
	"halfEven":    arith.RoundHalfEven,
	"halfUp":      arith.RoundHalfUp,
	"unnecessary": arith.RoundUnnecessary,
}

// parseExtension applies "name=value" parameters separated by whitespace or
// commas. Values may be quoted with ' or ", doubling the quote to escape
// it.
func (p *decimalPattern) parseExtension(ext string, tag language.Tag) error {
	var currencySymbol *string

	s := &scanner{src: ext}
	s.skipWS()

	for !s.done() {
		name := s.ident()
		if name == "" {
			return s.expected(p.src, "name")
		}

		s.skipWS()

		if !s.accept('=') {
			return s.expected(p.src, `"="`)
		}

		s.skipWS()

		value, err := s.value()
		if err != nil {
			return invalidPattern(p.src, err.Error())
		}

		if value == "" {
			return s.expected(p.src, "value")
		}

		end := s.pos

		if name == "currencySymbol" {
			currencySymbol = &value
		} else if err := p.setParam(name, value, tag); err != nil {
			return err
		}

		s.skipWS()

		if s.accept(',') {
			s.skipWS()
		} else if !s.done() && s.pos == end {
			return s.expected(p.src, "parameter separator whitespace or comma")
		}
	}

	if currencySymbol != nil {
		p.sym.currency = *currencySymbol
	}

	return nil
}

func (p *decimalPattern) setParam(name, value string, tag language.Tag) error {
	invalid := func(reason string) error {
		return invalidPattern(p.src,
			fmt.Sprintf("%q is an invalid value for the %q parameter: %s", value, name, reason),
			slog.String("parameter", name),
		)
	}

	single := func(dst *string) error {
		if utf8.RuneCountInString(value) != 1 {
			return invalid("must contain exactly 1 character")
		}

		*dst = value

		return nil
	}

	switch name {
	case "roundingMode":
		r, ok := roundingParam[value]
		if !ok {
			return invalid("should be one of: up, down, ceiling, floor, halfDown, halfEven, halfUp, unnecessary")
		}

		p.rounding = r
	case "multiplier", "multipier":
		m, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return invalid("malformed integer")
		}

		p.multiplier = m
	case "decimalSeparator":
		return single(&p.sym.decimal)
	case "monetaryDecimalSeparator":
		if p.currency {
			return single(&p.sym.decimal)
		}
	case "groupingSeparator":
		return single(&p.sym.group)
	case "minusSign":
		return single(&p.sym.minus)
	case "percent":
		return single(&p.sym.percent)
	case "perMill":
		return single(&p.sym.perMill)
	case "exponentSeparator":
		p.sym.exponent = value
	case "infinity":
		p.sym.infinity = value
	case "nan":
		p.sym.nan = value
	case "zeroDigit":
		var z string
		if err := single(&z); err != nil {
			return err
		}

		p.sym.zero, _ = utf8.DecodeRuneInString(z)
	case "currencyCode":
		sym, err := p.sym.withCurrency(value, tag)
		if err != nil {
			return invalid("not a known ISO 4217 code")
		}

		p.sym = sym
	default:
		return invalidPattern(p.src,
			fmt.Sprintf("unsupported parameter name %q; the supported names are: "+
				"currencyCode, currencySymbol, decimalSeparator, exponentSeparator, groupingSeparator, "+
				"infinity, minusSign, monetaryDecimalSeparator, multiplier, nan, perMill, percent, "+
				"roundingMode, zeroDigit", name),
			slog.String("parameter", name),
		)
	}

	return nil
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) skipWS() {
	for !s.done() {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			if strings.HasPrefix(s.src[s.pos:], "\u00a0") {
				s.pos += len("\u00a0")

				continue
			}

			return
		}
	}
}

func (s *scanner) accept(c byte) bool {
	if !s.done() && s.src[s.pos] == c {
		s.pos++

		return true
	}

	return false
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (s *scanner) ident() string {
	start := s.pos

	for !s.done() {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !isIdentPart(r) || (s.pos == start && unicode.IsDigit(r)) {
			break
		}

		s.pos += size
	}

	return s.src[start:s.pos]
}

func (s *scanner) value() (string, error) {
	if s.done() {
		return "", nil
	}

	if q := s.src[s.pos]; q == '\'' || q == '"' {
		var sb strings.Builder

		for i := s.pos + 1; i < len(s.src); i++ {
			if s.src[i] != q {
				sb.WriteByte(s.src[i])

				continue
			}

			if i+1 < len(s.src) && s.src[i+1] == q {
				sb.WriteByte(q)
				i++

				continue
			}

			s.pos = i + 1

			return sb.String(), nil
		}

		return "", fmt.Errorf("the %c quotation wasn't closed when the end of the source was reached", q)
	}

	start := s.pos

	for !s.done() {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if r == '\'' || r == '"' {
			return "", fmt.Errorf("the %c character can only be used for quoting values", r)
		}

		if !isIdentPart(r) {
			break
		}

		s.pos += size
	}

	return s.src[start:s.pos], nil
}

func (s *scanner) expected(src, what string) error {
	found := "reached the end of the input"

	if rest := strings.TrimRightFunc(s.src[s.pos:], unicode.IsSpace); rest != "" {
		if len(rest) > 10 {
			rest = rest[:5] + "[...]"
		}

		found = "found: " + rest
	}

	return invalidPattern(src, fmt.Sprintf("expected a(n) %s, but %s", what, found))
}

// Format implements [NumberFormat].
func (p *decimalPattern) Format(n arith.Number) (string, error) {
	if n.IsNaN() {
		return p.sym.nan, nil
	}

	negative := n.Sign() < 0

	var body string

	if n.IsFinite() {
		d := n.Dec().Abs()
		if p.multiplier != 1 {
			d = d.Mul(decimal.NewFromInt(p.multiplier))
			if p.multiplier < 0 {
				negative, d = !negative, d.Abs()
			}
		}

		var err error
		if body, err = p.digits(d, negative); err != nil {
			return "", err
		}
	} else {
		body = p.sym.infinity
	}

	var sb strings.Builder

	switch {
	case !negative:
		p.writeAffix(&sb, p.posPrefix)
		sb.WriteString(body)
		p.writeAffix(&sb, p.posSuffix)
	case p.hasNeg:
		p.writeAffix(&sb, p.negPrefix)
		sb.WriteString(body)
		p.writeAffix(&sb, p.negSuffix)
	default:
		sb.WriteString(p.sym.minus)
		p.writeAffix(&sb, p.posPrefix)
		sb.WriteString(body)
		p.writeAffix(&sb, p.posSuffix)
	}

	return sb.String(), nil
}

func (p *decimalPattern) writeAffix(sb *strings.Builder, parts []affixPart) {
	for _, a := range parts {
		switch a.special {
		case 0:
			sb.WriteString(a.lit)
		case specialPercent:
			sb.WriteString(p.sym.percent)
		case specialPerMill:
			sb.WriteString(p.sym.perMill)
		case specialCurrency:
			sb.WriteString(p.sym.currency)
		case specialCode:
			sb.WriteString(p.sym.currencyID)
		case specialMinus:
			sb.WriteString(p.sym.minus)
		}
	}
}

// digits renders the magnitude d of a number without affixes.
func (p *decimalPattern) digits(d decimal.Decimal, negative bool) (string, error) {
	mode := p.rounding
	if negative {
		switch mode {
		case arith.RoundCeiling:
			mode = arith.RoundFloor
		case arith.RoundFloor:
			mode = arith.RoundCeiling
		}
	}

	if !p.exponent {
		r, err := p.round(d, mode)
		if err != nil {
			return "", err
		}

		return p.mantissa(r, p.grouping), nil
	}

	exp := int64(0)
	if !d.IsZero() {
		exp = magnitude(d) - int64(p.minInt-1)
	}

	m, err := p.round(d.Shift(int32(-exp)), mode)
	if err != nil {
		return "", err
	}

	if magnitude(m) >= int64(p.minInt) {
		exp++

		if m, err = p.round(d.Shift(int32(-exp)), mode); err != nil {
			return "", err
		}
	}

	var sb strings.Builder

	sb.WriteString(p.mantissa(m, 0))
	sb.WriteString(p.sym.exponent)

	if exp < 0 {
		sb.WriteString(p.sym.minus)
		exp = -exp
	}

	e := strconv.FormatInt(exp, 10)
	for range p.minExp - len(e) {
		sb.WriteRune(p.sym.zero)
	}

	sb.WriteString(p.localDigits(e))

	return sb.String(), nil
}

// magnitude returns floor(log10(d)) of a nonzero d.
func magnitude(d decimal.Decimal) int64 {
	digits := len(new(big.Int).Abs(d.Coefficient()).String())

	return int64(d.Exponent()) + int64(digits) - 1
}

func (p *decimalPattern) round(d decimal.Decimal, mode arith.Rounding) (decimal.Decimal, error) {
	r, err := arith.Round(d, int32(p.maxFrac), mode)
	if err != nil {
		return r, ErrInvalidFormatParameters.
			Wrap(fmt.Errorf("%s cannot be formatted with %q without rounding", d, p.src)).
			With(slog.String("format", p.src))
	}

	return r, nil
}

// mantissa renders a rounded d with at most maxFrac fraction digits.
func (p *decimalPattern) mantissa(d decimal.Decimal, grouping int) string {
	intPart, frac, _ := strings.Cut(d.StringFixed(int32(p.maxFrac)), ".")

	frac = strings.TrimRight(frac, "0")
	for len(frac) < p.minFrac {
		frac += "0"
	}

	intPart = strings.TrimLeft(intPart, "0")
	for len(intPart) < p.minInt {
		intPart = "0" + intPart
	}

	if intPart == "" && frac == "" {
		intPart = "0"
	}

	var sb strings.Builder

	for i, c := range intPart {
		if i > 0 && grouping > 0 && (len(intPart)-i)%grouping == 0 {
			sb.WriteString(p.sym.group)
		}

		sb.WriteRune(c)
	}

	if frac != "" {
		sb.WriteString(p.sym.decimal)
		sb.WriteString(frac)
	}

	return p.localDigits(sb.String())
}

func (p *decimalPattern) localDigits(s string) string {
	if p.sym.zero == '0' {
		return s
	}

	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return p.sym.zero + (r - '0')
		}

		return r
	}, s)
}

func (p *decimalPattern) String() string { return p.src }
