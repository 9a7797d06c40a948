package units

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

// Normalizer parses raw property values into Quantities.
type Normalizer struct {
	numberPattern   *regexp.Regexp
	leadingNumber   *regexp.Regexp
	fraction        *regexp.Regexp
	thousands       *regexp.Regexp
	parenthetical   *regexp.Regexp
	rangeSeparators []string
	qualifiers      []qualifier
}

type qualifier struct {
	prefix string
	note   string
}

// numberExpr matches a signed number in one of three shapes:
// a bare power of ten ("10^12"), a mantissa with optional e-notation, and an
// optional "× 10^n" factor.
const numberExpr = `([+-]?)\s*(?:10\s*\^\s*([+-]?\d+)|(\d+(?:\.\d*)?|\.\d+)(?:[eE]([+-]?\d+))?(?:\s*[×xX*·]\s*10\s*\^\s*([+-]?\d+))?)`

// NewNormalizer creates a normalizer with its patterns compiled.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		numberPattern: regexp.MustCompile(numberExpr),
		leadingNumber: regexp.MustCompile(`^\s*` + numberExpr),
		fraction:      regexp.MustCompile(`^\s*/\s*(\d+)\b`),
		thousands:     regexp.MustCompile(`(\d),(\d{3})`),
		parenthetical: regexp.MustCompile(`\(([^()]*)\)`),
		rangeSeparators: []string{
			"–", "—", "‒", "-", "...", "..", "to ",
		},
		qualifiers: []qualifier{
			{"~", "approximately"},
			{"≈", "approximately"},
			{"ca.", "approximately"},
			{"approx.", "approximately"},
			{"approximately", "approximately"},
			{"about", "approximately"},
			{"≤", "upper bound"},
			{"<", "upper bound"},
			{"≥", "lower bound"},
			{">", "lower bound"},
		},
	}
}

var defaultNormalizer = NewNormalizer()

// Parse normalizes a raw value with the package default normalizer.
func Parse(raw any) Quantity {
	return defaultNormalizer.Parse(raw)
}

// ParseAll normalizes every property of a raw mapping. A bad property never
// blocks the others.
func ParseAll(data map[string]any) map[string]Quantity {
	out := make(map[string]Quantity, len(data))
	for name, raw := range data {
		out[name] = defaultNormalizer.Parse(raw)
	}
	return out
}

// Parse normalizes one raw value: JSON numbers, free text, or nil.
func (n *Normalizer) Parse(raw any) Quantity {
	switch v := raw.(type) {
	case nil:
		return Missing()
	case float64:
		return numberOrText(v, fmt.Sprint(v))
	case float32:
		return numberOrText(float64(v), fmt.Sprint(v))
	case int:
		return Quantity{Kind: KindNumber, Value: float64(v), Raw: strconv.Itoa(v)}
	case int64:
		return Quantity{Kind: KindNumber, Value: float64(v), Raw: strconv.FormatInt(v, 10)}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return numberOrText(f, v.String())
		}
		return Text(v.String())
	case string:
		q, _ := n.ParseString(v)
		return q
	case Quantity:
		return v
	default:
		return Text(fmt.Sprint(v))
	}
}

func numberOrText(v float64, raw string) Quantity {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Text(raw)
	}
	return Quantity{Kind: KindNumber, Value: v, Raw: raw}
}

// ParseString parses a free-text quantity. It always returns a usable
// Quantity; the error explains why the value degraded to text and is meant
// for diagnostics only.
func (n *Normalizer) ParseString(raw string) (Quantity, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing(), nil
	}

	var notes []string
	s = n.parenthetical.ReplaceAllStringFunc(s, func(m string) string {
		if inner := strings.TrimSpace(m[1 : len(m)-1]); inner != "" {
			notes = append(notes, inner)
		}
		return " "
	})
	s, qualifierNotes := n.stripQualifiers(strings.TrimSpace(s))
	notes = append(qualifierNotes, notes...)
	s = canonicalNumeric(s)
	s = n.removeThousands(s)

	loc := n.numberPattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return Text(raw), &errors.ParseError{Raw: raw, Reason: "no numeric token"}
	}
	if hyphenated(s, loc) {
		// "spin-1/2", "Carbon-14": the hyphen joins the label, it is no sign.
		loc[0], loc[2] = loc[3], loc[3]
	}
	if prefix := strings.TrimSpace(strings.TrimRight(s[:loc[0]], "+-")); prefix != "" {
		notes = append(notes, prefix)
	}

	first, err := n.numberAt(s, loc)
	if err != nil {
		return Text(raw), err
	}
	rest := s[loc[1]:]

	if m := n.fraction.FindStringSubmatchIndex(rest); m != nil && first.power == 0 {
		den, _ := strconv.ParseFloat(rest[m[2]:m[3]], 64)
		if den != 0 {
			first.value /= den
			rest = rest[m[1]:]
		}
	}

	q := Quantity{Kind: KindNumber, Value: first.value, Raw: raw}

	if second, after, ok := n.rangeTail(rest); ok {
		lo := first.value
		if first.power == 0 && !first.scientific && second.power != 0 {
			lo *= math.Pow10(second.power)
		}
		hi := second.value
		q.Value = (lo + hi) / 2
		q.Spread = math.Abs(hi-lo) / 2
		q.IsRange = true
		rest = after
	}

	if math.IsNaN(q.Value) || math.IsInf(q.Value, 0) {
		return Text(raw), &errors.ParseError{Raw: raw, Reason: "value out of range"}
	}

	unit, trailing := splitUnit(rest)
	q.Unit = unit
	if trailing != "" {
		notes = append(notes, trailing)
	}
	q.Annotation = strings.Join(notes, "; ")
	return q, nil
}

type parsedNumber struct {
	value      float64
	power      int
	scientific bool
}

// numberAt evaluates the submatches of numberExpr at loc.
// hyphenated reports whether the sign of the matched number directly follows
// a letter or digit.
func hyphenated(s string, loc []int) bool {
	if loc[2] < 0 || loc[3] == loc[2] || loc[2] == 0 {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:loc[2]])
	return unicode.IsLetter(prev) || unicode.IsDigit(prev)
}

func (n *Normalizer) numberAt(s string, loc []int) (parsedNumber, error) {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return s[loc[2*i]:loc[2*i+1]]
	}
	sign := 1.0
	if group(1) == "-" {
		sign = -1
	}

	var out parsedNumber
	if exp := group(2); exp != "" {
		p, err := strconv.Atoi(exp)
		if err != nil {
			return out, &errors.ParseError{Raw: s, Reason: "bad exponent"}
		}
		out.value = sign * math.Pow10(p)
		out.power = p
		out.scientific = true
		return out, nil
	}

	mantissa := group(3)
	if e := group(4); e != "" {
		mantissa += "e" + e
		out.scientific = true
	}
	v, err := strconv.ParseFloat(mantissa, 64)
	if err != nil {
		return out, &errors.ParseError{Raw: s, Reason: err.Error()}
	}
	if exp := group(5); exp != "" {
		p, err := strconv.Atoi(exp)
		if err != nil {
			return out, &errors.ParseError{Raw: s, Reason: "bad exponent"}
		}
		v *= math.Pow10(p)
		out.power = p
	}
	out.value = sign * v
	return out, nil
}

// rangeTail recognizes "– 8 µm" after the first number of a range.
func (n *Normalizer) rangeTail(rest string) (parsedNumber, string, bool) {
	trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
	for _, sep := range n.rangeSeparators {
		if !strings.HasPrefix(trimmed, sep) {
			continue
		}
		tail := trimmed[len(sep):]
		loc := n.leadingNumber.FindStringSubmatchIndex(tail)
		if loc == nil {
			return parsedNumber{}, rest, false
		}
		num, err := n.numberAt(tail, loc)
		if err != nil {
			return parsedNumber{}, rest, false
		}
		return num, tail[loc[1]:], true
	}
	return parsedNumber{}, rest, false
}

func (n *Normalizer) stripQualifiers(s string) (string, []string) {
	var notes []string
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(s)
		for _, q := range n.qualifiers {
			if strings.HasPrefix(lower, q.prefix) {
				s = strings.TrimSpace(s[len(q.prefix):])
				notes = appendUnique(notes, q.note)
				changed = true
				break
			}
		}
	}
	return s, notes
}

func (n *Normalizer) removeThousands(s string) string {
	for {
		next := n.thousands.ReplaceAllString(s, "$1$2")
		if next == s {
			return s
		}
		s = next
	}
}

var superscripts = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
	'⁻': '-', '⁺': '+',
}

// canonicalNumeric rewrites unicode minus and superscript exponents into the
// ASCII forms the number pattern understands: "10⁻¹⁹" becomes "10^-19".
func canonicalNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSuper := false
	var prev rune
	for _, r := range s {
		if r == '−' {
			r = '-'
		}
		if d, ok := superscripts[r]; ok {
			if !inSuper && prev != '^' {
				b.WriteRune('^')
			}
			b.WriteRune(d)
			inSuper = true
			prev = d
			continue
		}
		inSuper = false
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// splitUnit separates the unit tag from trailing commentary.
func splitUnit(rest string) (string, string) {
	rest = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), ".,;:"))
	if rest == "" {
		return "", ""
	}
	if _, ok := Lookup(rest); ok {
		return CanonicalUnit(rest), ""
	}
	fields := strings.Fields(rest)
	for i := len(fields) - 1; i > 1; i-- {
		candidate := strings.Join(fields[:i], " ")
		if _, ok := Lookup(candidate); ok {
			return CanonicalUnit(candidate), strings.Join(fields[i:], " ")
		}
	}
	return CanonicalUnit(fields[0]), strings.Join(fields[1:], " ")
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
