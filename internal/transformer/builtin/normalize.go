package builtin

import (
	"strings"

	"fareetl/pkg/records"
)

// BlankToNull replaces every whitespace-only string (including "") with nil,
// in place. Unicode spaces such as NBSP count as whitespace.
type BlankToNull struct{}

func (BlankToNull) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				r[k] = nil
			}
		}
	}
	return in
}
