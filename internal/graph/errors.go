package graph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/typename"
)

// CircularDependencyError represents a circular dependency in the container.
type CircularDependencyError struct {
	Node reflect.Type
	Path []reflect.Type
}

func (e *CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	if len(e.Path) == 0 {
		b.WriteString(fmt.Sprintf("    %s\n", typename.Format(e.Node)))
		b.WriteString("      ↓\n")
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", typename.Format(e.Node)))
	} else {
		for i, node := range e.Path {
			b.WriteString(fmt.Sprintf("    %s\n", typename.Format(node)))
			if i < len(e.Path)-1 {
				b.WriteString("      ↓\n")
			}
		}
		b.WriteString("      ↓\n")
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", typename.Format(e.Path[0])))
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Use an interface to break the dependency\n")
	b.WriteString("  • Use a factory function for lazy initialization\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}
