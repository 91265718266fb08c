package evaluator

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
)

// evalCall dispatches a SPARQL 1.1 builtin function call by name. Argument
// literals/IRIs are evaluated eagerly; each case validates its own arity
// and operand kind rather than relying on a shared signature table, to
// match the irregular shapes SPARQL builtins actually have (STRLEN takes
// one string, CONCAT takes any number of terms, etc).
func evalCall(ec *EvalContext, ex algebra.CallExpr, b Binding) (rdf.Term, error) {
	args := ex.Args
	switch strings.ToUpper(ex.Name) {
	case "STR":
		v, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(termLexical(v)), nil
	case "LANG":
		lit, err := literalArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(lit.Language), nil
	case "DATATYPE":
		lit, err := literalArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		if lit.Datatype != nil {
			return lit.Datatype, nil
		}
		if lit.Language != "" {
			return rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"), nil
		}
		return rdf.XSDString, nil
	case "BOUND":
		if v, ok := args[0].(algebra.VarExpr); ok {
			_, bound := b[v.Var]
			return rdf.NewBooleanLiteral(bound), nil
		}
		return nil, oxierr.Evaluation("BOUND requires a variable argument")
	case "IRI", "URI":
		lit, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(termLexical(lit)), nil
	case "BNODE":
		if len(args) == 0 {
			return rdf.NewBlankNode(fmt.Sprintf("b%p", ex)), nil
		}
		v, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		return rdf.NewBlankNode(termLexical(v)), nil
	case "STRDT":
		s, err := literalArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		dtTerm, err := arg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		dt, ok := dtTerm.(*rdf.NamedNode)
		if !ok {
			return nil, oxierr.Evaluation("STRDT requires an IRI datatype")
		}
		return rdf.NewLiteralWithDatatype(s.Value, dt), nil
	case "STRLANG":
		s, err := literalArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		tag, err := literalArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithLanguage(s.Value, tag.Value), nil
	case "ISIRI", "ISURI":
		v, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		_, ok := v.(*rdf.NamedNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISBLANK":
		v, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		_, ok := v.(*rdf.BlankNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISLITERAL":
		v, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		_, ok := v.(*rdf.Literal)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISNUMERIC":
		v, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		lit, ok := v.(*rdf.Literal)
		if !ok {
			return rdf.NewBooleanLiteral(false), nil
		}
		_, isNum := numericValue(lit)
		return rdf.NewBooleanLiteral(isNum), nil
	case "STRLEN":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		return rdf.NewIntegerLiteral(int64(len([]rune(s)))), nil
	case "UCASE":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(strings.ToUpper(s)), nil
	case "LCASE":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(strings.ToLower(s)), nil
	case "CONTAINS":
		a, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		c, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(strings.Contains(a, c)), nil
	case "STRSTARTS":
		a, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		c, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(strings.HasPrefix(a, c)), nil
	case "STRENDS":
		a, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		c, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(strings.HasSuffix(a, c)), nil
	case "STRBEFORE":
		a, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		c, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		if idx := strings.Index(a, c); idx >= 0 {
			return rdf.NewLiteral(a[:idx]), nil
		}
		return rdf.NewLiteral(""), nil
	case "STRAFTER":
		a, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		c, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		if idx := strings.Index(a, c); idx >= 0 {
			return rdf.NewLiteral(a[idx+len(c):]), nil
		}
		return rdf.NewLiteral(""), nil
	case "CONCAT":
		var sb strings.Builder
		for i := range args {
			s, err := stringArg(ec, args, b, i)
			if err != nil {
				return nil, err
			}
			sb.WriteString(s)
		}
		return rdf.NewLiteral(sb.String()), nil
	case "SUBSTR":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		start, err := intArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		from := int(start) - 1
		if from < 0 {
			from = 0
		}
		if from > len(runes) {
			from = len(runes)
		}
		to := len(runes)
		if len(args) > 2 {
			length, err := intArg(ec, args, b, 2)
			if err != nil {
				return nil, err
			}
			to = from + int(length)
			if to > len(runes) {
				to = len(runes)
			}
			if to < from {
				to = from
			}
		}
		return rdf.NewLiteral(string(runes[from:to])), nil
	case "REPLACE":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		pattern, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		repl, err := stringArg(ec, args, b, 2)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, oxierr.Evaluation("invalid REPLACE pattern: %v", err)
		}
		return rdf.NewLiteral(re.ReplaceAllString(s, translateReplacement(repl))), nil
	case "REGEX":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		pattern, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		flags := ""
		if len(args) > 2 {
			flags, err = stringArg(ec, args, b, 2)
			if err != nil {
				return nil, err
			}
		}
		re, err := compileRegex(pattern, flags)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(re.MatchString(s)), nil
	case "ABS":
		lit, err := literalArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		v, ok := numericValue(lit)
		if !ok {
			return nil, oxierr.Evaluation("ABS on non-numeric literal")
		}
		if v < 0 {
			v = -v
		}
		return makeNumeric(v, lit.Datatype), nil
	case "ROUND":
		return roundLike(ec, args, b, func(v float64) float64 {
			return float64(int64(v + copysign(0.5, v)))
		})
	case "CEIL":
		return roundLike(ec, args, b, ceilFloat)
	case "FLOOR":
		return roundLike(ec, args, b, floorFloat)
	case "RAND":
		var buf [8]byte
		_, _ = rand.Read(buf[:])
		u := uint64(0)
		for _, c := range buf {
			u = u<<8 | uint64(c)
		}
		return rdf.NewDoubleLiteral(float64(u>>11) / (1 << 53)), nil
	case "NOW":
		return rdf.NewDateTimeLiteral(currentTime(ec)), nil
	case "YEAR", "MONTH", "DAY", "HOURS", "MINUTES", "SECONDS", "TIMEZONE", "TZ":
		return dateTimePart(ec, args, b, strings.ToUpper(ex.Name))
	case "MD5":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		sum := md5.Sum([]byte(s))
		return rdf.NewLiteral(fmt.Sprintf("%x", sum)), nil
	case "SHA1":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		sum := sha1.Sum([]byte(s))
		return rdf.NewLiteral(fmt.Sprintf("%x", sum)), nil
	case "SHA256":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256([]byte(s))
		return rdf.NewLiteral(fmt.Sprintf("%x", sum)), nil
	case "SHA384":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		sum := sha512.Sum384([]byte(s))
		return rdf.NewLiteral(fmt.Sprintf("%x", sum)), nil
	case "SHA512":
		s, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		sum := sha512.Sum512([]byte(s))
		return rdf.NewLiteral(fmt.Sprintf("%x", sum)), nil
	case "UUID":
		return rdf.NewNamedNode("urn:uuid:" + randomUUID()), nil
	case "STRUUID":
		return rdf.NewLiteral(randomUUID()), nil
	case "COALESCE":
		for _, a := range args {
			v, err := evalExpr(ec, a, b)
			if err == nil && v != nil {
				return v, nil
			}
		}
		return nil, oxierr.Evaluation("COALESCE: all arguments unbound or errored")
	case "IF":
		if len(args) != 3 {
			return nil, oxierr.Evaluation("IF requires 3 arguments")
		}
		if evalBoolean(ec, args[0], b) {
			return evalExpr(ec, args[1], b)
		}
		return evalExpr(ec, args[2], b)
	case "SAMETERM":
		a, err := arg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		c, err := arg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(a.Equals(c)), nil
	case "LANGMATCHES":
		tag, err := stringArg(ec, args, b, 0)
		if err != nil {
			return nil, err
		}
		pattern, err := stringArg(ec, args, b, 1)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(langMatches(tag, pattern)), nil
	default:
		return nil, oxierr.Evaluation("unknown function %s", ex.Name)
	}
}

func arg(ec *EvalContext, args []algebra.Expr, b Binding, i int) (rdf.Term, error) {
	if i >= len(args) {
		return nil, oxierr.Evaluation("missing argument %d", i)
	}
	return evalExpr(ec, args[i], b)
}

func literalArg(ec *EvalContext, args []algebra.Expr, b Binding, i int) (*rdf.Literal, error) {
	v, err := arg(ec, args, b, i)
	if err != nil {
		return nil, err
	}
	lit, ok := v.(*rdf.Literal)
	if !ok {
		return nil, oxierr.Evaluation("argument %d is not a literal", i)
	}
	return lit, nil
}

func stringArg(ec *EvalContext, args []algebra.Expr, b Binding, i int) (string, error) {
	v, err := arg(ec, args, b, i)
	if err != nil {
		return "", err
	}
	return termLexical(v), nil
}

func numericArg(ec *EvalContext, args []algebra.Expr, b Binding, i int) (float64, error) {
	lit, err := literalArg(ec, args, b, i)
	if err != nil {
		return 0, err
	}
	v, ok := numericValue(lit)
	if !ok {
		return 0, oxierr.Evaluation("argument %d is not numeric", i)
	}
	return v, nil
}

func intArg(ec *EvalContext, args []algebra.Expr, b Binding, i int) (int64, error) {
	v, err := numericArg(ec, args, b, i)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func termLexical(t rdf.Term) string {
	switch v := t.(type) {
	case *rdf.Literal:
		return v.Value
	case *rdf.NamedNode:
		return v.IRI
	default:
		if t == nil {
			return ""
		}
		return t.String()
	}
}

func roundLike(ec *EvalContext, args []algebra.Expr, b Binding, f func(float64) float64) (rdf.Term, error) {
	lit, err := literalArg(ec, args, b, 0)
	if err != nil {
		return nil, err
	}
	v, ok := numericValue(lit)
	if !ok {
		return nil, oxierr.Evaluation("ROUND/CEIL/FLOOR on non-numeric literal")
	}
	return makeNumeric(f(v), lit.Datatype), nil
}

func copysign(mag, sign float64) float64 {
	if sign < 0 {
		return -mag
	}
	return mag
}

func ceilFloat(v float64) float64 {
	i := int64(v)
	if v > 0 && float64(i) != v {
		i++
	}
	return float64(i)
}

func floorFloat(v float64) float64 {
	i := int64(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return float64(i)
}

func currentTime(ec *EvalContext) time.Time {
	if ec.NowLiteral != nil {
		if t, err := time.Parse(time.RFC3339, ec.NowLiteral()); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

func dateTimePart(ec *EvalContext, args []algebra.Expr, b Binding, which string) (rdf.Term, error) {
	lit, err := literalArg(ec, args, b, 0)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, lit.Value)
	if err != nil {
		return nil, oxierr.Evaluation("invalid xsd:dateTime value %q", lit.Value)
	}
	switch which {
	case "YEAR":
		return rdf.NewIntegerLiteral(int64(t.Year())), nil
	case "MONTH":
		return rdf.NewIntegerLiteral(int64(t.Month())), nil
	case "DAY":
		return rdf.NewIntegerLiteral(int64(t.Day())), nil
	case "HOURS":
		return rdf.NewIntegerLiteral(int64(t.Hour())), nil
	case "MINUTES":
		return rdf.NewIntegerLiteral(int64(t.Minute())), nil
	case "SECONDS":
		return rdf.NewIntegerLiteral(int64(t.Second())), nil
	case "TIMEZONE":
		_, offset := t.Zone()
		return rdf.NewLiteralWithDatatype(formatDuration(offset), rdf.XSDDuration), nil
	case "TZ":
		name, _ := t.Zone()
		return rdf.NewLiteral(name), nil
	default:
		return nil, oxierr.Evaluation("unknown datetime accessor %s", which)
	}
}

func formatDuration(offsetSeconds int) string {
	sign := "+"
	if offsetSeconds < 0 {
		sign = "-"
		offsetSeconds = -offsetSeconds
	}
	h := offsetSeconds / 3600
	m := (offsetSeconds % 3600) / 60
	return fmt.Sprintf("%sPT%dH%dM", sign, h, m)
}

// translateReplacement converts XPath-style $1 backreferences used by
// SPARQL REPLACE into Go regexp's ${1} form.
func translateReplacement(repl string) string {
	var sb strings.Builder
	for i := 0; i < len(repl); i++ {
		if repl[i] == '$' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9' {
			j := i + 1
			for j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			sb.WriteString("${" + repl[i+1:j] + "}")
			i = j - 1
			continue
		}
		sb.WriteByte(repl[i])
	}
	return sb.String()
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i':
			prefix += "i"
		case 's':
			prefix += "s"
		case 'm':
			prefix += "m"
		case 'x':
			// extended whitespace mode: Go's regexp has no direct
			// equivalent, strip literal whitespace from the pattern
			pattern = strings.Map(func(r rune) rune {
				if r == ' ' || r == '\t' || r == '\n' {
					return -1
				}
				return r
			}, pattern)
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, oxierr.Evaluation("invalid REGEX pattern: %v", err)
	}
	return re, nil
}

func langMatches(tag, pattern string) bool {
	if pattern == "*" {
		return tag != ""
	}
	tag = strings.ToLower(tag)
	pattern = strings.ToLower(pattern)
	if tag == pattern {
		return true
	}
	return strings.HasPrefix(tag, pattern+"-")
}

func randomUUID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
