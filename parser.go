package hypercube

import (
	"strings"
)

// HelperParser parses the terse textual helper language into a partial
// structured query. A helper string is a semicolon-separated list of clauses:
//
//	MEASURES revenue, units;
//	ROWS time.year, geography.region;
//	COLUMNS product.category;
//	SLICE geography.region = 'North America';
//	DICE product.category IN (Hardware, Software);
//	FILTER time.year >= 2023;
//	DRILL time year -> month PATH 2023;
//	ROLLUP time quarter
//
// The structured payload always wins on conflict; the parser only fills in
// what the caller left empty.
type HelperParser struct{}

// Parse parses a helper string into a partial QueryPayload. The returned
// payload never carries a cube name; only axis, measure, filter, drill and
// rollup fields are populated.
func (p *HelperParser) Parse(input string) (*QueryPayload, error) {
	partial := &QueryPayload{}
	for _, clause := range strings.Split(input, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		tokens := tokenizeClause(clause)
		if len(tokens) == 0 {
			continue
		}
		keyword := strings.ToUpper(tokens[0])
		rest := tokens[1:]

		var err error
		switch keyword {
		case "MEASURES":
			partial.Measures = parseNameList(rest)
		case "ROWS":
			partial.Rows, err = parseAxisList(rest)
		case "COLUMNS":
			partial.Columns, err = parseAxisList(rest)
		case "SLICE":
			var f FilterSpec
			f, err = parseSliceClause(rest)
			if err == nil {
				partial.Slices = append(partial.Slices, f)
			}
		case "DICE":
			var f FilterSpec
			f, err = parseDiceClause(rest)
			if err == nil {
				partial.Dices = append(partial.Dices, f)
			}
		case "FILTER":
			var f FilterSpec
			f, err = parseFilterClause(rest)
			if err == nil {
				partial.Filters = append(partial.Filters, f)
			}
		case "DRILL":
			partial.Drill, err = parseDrillClause(rest)
		case "ROLLUP":
			partial.Rollup, err = parseRollupClause(rest)
		default:
			return nil, newBadRequestError("unknown helper clause %q", tokens[0])
		}
		if err != nil {
			return nil, err
		}
	}
	return partial, nil
}

// parseNameList collects comma-separated identifiers.
func parseNameList(tokens []string) []string {
	var names []string
	for _, tok := range tokens {
		if tok == "," {
			continue
		}
		names = append(names, tok)
	}
	return names
}

// parseAxisList parses comma-separated dim.level pairs. A bare dimension is
// allowed; its level is resolved to the finest during normalization.
func parseAxisList(tokens []string) ([]AxisSpec, error) {
	var axes []AxisSpec
	for _, tok := range tokens {
		if tok == "," {
			continue
		}
		axis, err := parseAxisToken(tok)
		if err != nil {
			return nil, err
		}
		axes = append(axes, axis)
	}
	return axes, nil
}

func parseAxisToken(tok string) (AxisSpec, error) {
	if tok == "" {
		return AxisSpec{}, newBadRequestError("empty axis reference")
	}
	parts := strings.SplitN(tok, ".", 2)
	axis := AxisSpec{Dimension: parts[0]}
	if len(parts) == 2 {
		axis.Level = parts[1]
	}
	if axis.Dimension == "" {
		return AxisSpec{}, newBadRequestError("malformed axis reference %q", tok)
	}
	return axis, nil
}

// parseSliceClause handles "dim.level = scalar".
func parseSliceClause(tokens []string) (FilterSpec, error) {
	if len(tokens) < 3 || tokens[1] != "=" {
		return FilterSpec{}, newBadRequestError("malformed SLICE clause")
	}
	axis, err := parseAxisToken(tokens[0])
	if err != nil {
		return FilterSpec{}, err
	}
	return FilterSpec{
		Dimension: axis.Dimension,
		Level:     axis.Level,
		Operator:  OpEq,
		Value:     scalarToAny(unquoteScalar(tokens[2])),
	}, nil
}

// parseDiceClause handles "dim.level IN (v1, v2, ...)".
func parseDiceClause(tokens []string) (FilterSpec, error) {
	if len(tokens) < 3 || !strings.EqualFold(tokens[1], "IN") {
		return FilterSpec{}, newBadRequestError("malformed DICE clause")
	}
	axis, err := parseAxisToken(tokens[0])
	if err != nil {
		return FilterSpec{}, err
	}
	values := make([]any, 0, len(tokens)-2)
	for _, tok := range tokens[2:] {
		if tok == "(" || tok == ")" || tok == "," {
			continue
		}
		values = append(values, scalarToAny(unquoteScalar(tok)))
	}
	if len(values) == 0 {
		return FilterSpec{}, newBadRequestError("DICE clause has no values")
	}
	return FilterSpec{
		Dimension: axis.Dimension,
		Level:     axis.Level,
		Operator:  OpIn,
		Value:     values,
	}, nil
}

// parseFilterClause handles "dim.level OP scalar" with a comparison operator.
func parseFilterClause(tokens []string) (FilterSpec, error) {
	if len(tokens) < 3 {
		return FilterSpec{}, newBadRequestError("malformed FILTER clause")
	}
	axis, err := parseAxisToken(tokens[0])
	if err != nil {
		return FilterSpec{}, err
	}
	var op FilterOp
	switch tokens[1] {
	case "=":
		op = OpEq
	case "!=", "<>":
		op = OpNeq
	case ">":
		op = OpGt
	case ">=":
		op = OpGte
	case "<":
		op = OpLt
	case "<=":
		op = OpLte
	default:
		return FilterSpec{}, newBadRequestError("unsupported filter operator %q", tokens[1])
	}
	return FilterSpec{
		Dimension: axis.Dimension,
		Level:     axis.Level,
		Operator:  op,
		Value:     scalarToAny(unquoteScalar(tokens[2])),
	}, nil
}

// parseDrillClause handles "<dim> <from> -> <to> [PATH v1, v2, ...]".
// The "->" token may be spelled "to".
func parseDrillClause(tokens []string) (*DrillSpec, error) {
	if len(tokens) < 4 {
		return nil, newBadRequestError("malformed DRILL clause")
	}
	arrow := tokens[2]
	if arrow != "->" && !strings.EqualFold(arrow, "to") {
		return nil, newBadRequestError("malformed DRILL clause: expected -> or to")
	}
	drill := &DrillSpec{
		Dimension: tokens[0],
		FromLevel: tokens[1],
		ToLevel:   tokens[3],
	}
	rest := tokens[4:]
	if len(rest) > 0 {
		if !strings.EqualFold(rest[0], "PATH") {
			return nil, newBadRequestError("malformed DRILL clause: expected PATH")
		}
		for _, tok := range rest[1:] {
			if tok == "," {
				continue
			}
			drill.Path = append(drill.Path, unquoteScalar(tok))
		}
	}
	return drill, nil
}

// parseRollupClause handles "<dim> <level>".
func parseRollupClause(tokens []string) (*RollupSpec, error) {
	if len(tokens) != 2 {
		return nil, newBadRequestError("malformed ROLLUP clause")
	}
	return &RollupSpec{Dimension: tokens[0], Level: tokens[1]}, nil
}

// unquoteScalar strips surrounding quotes; unquoted tokens that parse as
// numbers become numbers.
func unquoteScalar(tok string) Scalar {
	if len(tok) >= 2 {
		if (tok[0] == '\'' && tok[len(tok)-1] == '\'') || (tok[0] == '"' && tok[len(tok)-1] == '"') {
			return Str(tok[1 : len(tok)-1])
		}
	}
	return parseScalarToken(tok)
}

// tokenizeClause splits a clause on whitespace and the punctuation tokens
// "," "(" ")", keeping quoted strings intact. Comparison operators written
// without spaces ("time.year>=2023") are not supported; the helper grammar
// is whitespace separated.
func tokenizeClause(input string) []string {
	var tokens []string
	var current strings.Builder
	var quote rune

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range input {
		switch {
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			current.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		case r == ',' || r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
