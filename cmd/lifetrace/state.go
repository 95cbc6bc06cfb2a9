package main

import (
	"fmt"
	"strings"

	"github.com/wippyai/napi-runtime/scenario"
)

// formatState renders a step's state as plain text.
func formatState(st scenario.State) string {
	var b strings.Builder

	if st.Closed {
		b.WriteString("environment: torn down\n")
	} else {
		fmt.Fprintf(&b, "environment: open, %d cleanup hooks\n", st.Hooks)
	}
	fmt.Fprintf(&b, "scopes: %v\n", st.Scopes)
	fmt.Fprintf(&b, "collected: %d\n", st.Collected)

	b.WriteString("objects:\n")
	if len(st.Objects) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, o := range st.Objects {
		alive := "alive"
		if !o.Alive {
			alive = "collected"
		}
		fmt.Fprintf(&b, "  %-12s #%-4d %-9s roots=%d\n", o.Name, o.Value, alive, o.Roots)
	}

	b.WriteString("references:\n")
	if len(st.References) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, r := range st.References {
		fmt.Fprintf(&b, "  %-12s %-6s -> %-12s refcount=%d\n", r.Name, r.State, r.Target, r.Refcount)
	}
	return b.String()
}
