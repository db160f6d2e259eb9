package query

import "fmt"

// String renders c in the exact grammar Parse accepts, so
// Parse(c.String()) reproduces c — spec.md §4.4.4's round-trip
// requirement. Grounded on the teacher's explain/format.go.
func (c Command) String() string {
	switch c.Kind {
	case CommandFilter:
		return fmt.Sprintf("event.field.%s %s \"%s\"", c.Modifier.Field, c.Modifier.Op, c.Modifier.Value)
	case CommandGroupBy:
		return "event.group_by." + c.GroupBy.String()
	default:
		return ""
	}
}

func (g GroupBy) String() string {
	switch g.Kind {
	case GroupByFieldKind:
		return "field." + g.Field
	case GroupBySpanKind:
		return "span." + g.Span.String()
	default:
		return ""
	}
}

func (s SpanSelector) String() string {
	if s.Direct != nil {
		return s.Direct.String()
	}
	if s.ParentByName != nil {
		return s.ParentByName.String()
	}
	return ""
}

func (d DirectCriterion) String() string {
	switch d.Kind {
	case CriterionId:
		return "id"
	case CriterionField:
		return "field." + d.Field
	default:
		return ""
	}
}

func (p ParentByName) String() string {
	return fmt.Sprintf(`parent_by_name("%s").%s`, p.Name, p.Criterion)
}
