package query

import (
	"os"
	"strings"
)

// Save serialises f as one clause per line: the group-by (if any) first,
// then each modifier in insertion order — spec.md §4.4.4.
func (f *Filter) Save(path string) error {
	var sb strings.Builder
	if f.GroupBy != nil {
		sb.WriteString(Command{Kind: CommandGroupBy, GroupBy: *f.GroupBy}.String())
		sb.WriteByte('\n')
	}
	for _, m := range f.modifiers {
		sb.WriteString(Command{Kind: CommandFilter, Modifier: m}.String())
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// Load reads path and parses it line-by-line, stopping at the first blank
// line. Any parse failure aborts the load and returns ok=false — spec.md
// §4.4.4.
func Load(path string) (*Filter, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	f := NewFilter()
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			break
		}
		cmd, ok := Parse(line)
		if !ok {
			return nil, false
		}
		switch cmd.Kind {
		case CommandGroupBy:
			gb := cmd.GroupBy
			f.GroupBy = &gb
		case CommandFilter:
			f.AddModifier(cmd.Modifier)
		}
	}
	return f, true
}
