package query

import "strings"

// CommandKind tags which case of Command is populated.
type CommandKind int

const (
	CommandFilter CommandKind = iota + 1
	CommandGroupBy
)

// Command is one parsed line: either a filter modifier or a group-by
// selector, per the grammar in spec.md §4.4.1.
type Command struct {
	Kind     CommandKind
	Modifier Modifier
	GroupBy  GroupBy
}

// Parse parses one line of the command grammar. It returns ok=false on any
// malformed input ("Option<Command>"'s None case); callers treat that as
// "ignore and keep buffer" — spec.md §4.4.1.
func Parse(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, false
	}

	head, rest, hasRest := splitFirstWhitespace(line)

	switch {
	case strings.HasPrefix(head, "event.group_by.field."):
		if hasRest {
			return Command{}, false
		}
		name := strings.TrimPrefix(head, "event.group_by.field.")
		if name == "" {
			return Command{}, false
		}
		return Command{Kind: CommandGroupBy, GroupBy: GroupBy{Kind: GroupByFieldKind, Field: name}}, true

	case strings.HasPrefix(head, "event.group_by.span."):
		if hasRest {
			return Command{}, false
		}
		sel := strings.TrimPrefix(head, "event.group_by.span.")
		direct, pbn, ok := parseSpanSel(sel)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: CommandGroupBy, GroupBy: GroupBy{Kind: GroupBySpanKind, Span: SpanSelector{Direct: direct, ParentByName: pbn}}}, true

	case strings.HasPrefix(head, "event.field."):
		if !hasRest {
			return Command{}, false
		}
		name := strings.TrimPrefix(head, "event.field.")
		if name == "" {
			return Command{}, false
		}
		opTok, strTok, hasStrTok := splitFirstWhitespace(rest)
		if !hasStrTok {
			return Command{}, false
		}
		op, ok := parseOperator(opTok)
		if !ok {
			return Command{}, false
		}
		str, ok := parseQuotedString(strTok)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: CommandFilter, Modifier: Modifier{Field: name, Op: op, Value: str}}, true

	default:
		return Command{}, false
	}
}

// splitFirstWhitespace splits s on its first run of whitespace. hasRest is
// false when there is no whitespace, or everything after it is blank.
func splitFirstWhitespace(s string) (head, rest string, hasRest bool) {
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, "", false
	}
	head = s[:idx]
	rest = strings.TrimLeft(s[idx+1:], " \t")
	return head, rest, rest != ""
}

func parseOperator(tok string) (Operator, bool) {
	switch tok {
	case "==":
		return OpEquals, true
	case "contains":
		return OpContains, true
	case "starts_with":
		return OpStartsWith, true
	case "matches":
		return OpMatches, true
	default:
		return 0, false
	}
}

// parseQuotedString requires tok to be a single '"'-delimited token with no
// escape handling: the first and last characters must be '"', and
// everything between them is taken literally — spec.md §4.4.1.
func parseQuotedString(tok string) (string, bool) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", false
	}
	return tok[1 : len(tok)-1], true
}

// parseSpanSel parses the SPANSEL production: "field." FIELDNAME | "id" |
// "parent_by_name(" STRING ")." ( "field." FIELDNAME | "id" ).
func parseSpanSel(s string) (*DirectCriterion, *ParentByName, bool) {
	if s == "id" {
		return &DirectCriterion{Kind: CriterionId}, nil, true
	}
	if strings.HasPrefix(s, "field.") {
		name := strings.TrimPrefix(s, "field.")
		if name == "" {
			return nil, nil, false
		}
		return &DirectCriterion{Kind: CriterionField, Field: name}, nil, true
	}

	const prefix = `parent_by_name("`
	if !strings.HasPrefix(s, prefix) {
		return nil, nil, false
	}
	rest := s[len(prefix):]
	closeIdx := strings.IndexByte(rest, '"')
	if closeIdx < 0 {
		return nil, nil, false
	}
	name := rest[:closeIdx]
	after := rest[closeIdx+1:]
	if !strings.HasPrefix(after, ").") {
		return nil, nil, false
	}
	critTok := strings.TrimPrefix(after, ").")

	var crit DirectCriterion
	switch {
	case critTok == "id":
		crit = DirectCriterion{Kind: CriterionId}
	case strings.HasPrefix(critTok, "field."):
		f := strings.TrimPrefix(critTok, "field.")
		if f == "" {
			return nil, nil, false
		}
		crit = DirectCriterion{Kind: CriterionField, Field: f}
	default:
		return nil, nil, false
	}

	return nil, &ParentByName{Name: name, Criterion: crit}, true
}
