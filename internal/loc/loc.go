package loc

import "fmt"

// Location identifies a traceable unit of code: a function or other
// instrumented region inside a module, pinned to a line number.
// It is immutable and used as the aggregation key for statistics.
type Location struct {
	Module   string
	Function string
	Line     int
}

// String renders the location as "module.function:line".
// The line suffix is omitted when unknown.
func (l Location) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s.%s:%d", l.Module, l.Function, l.Line)
	}
	return l.Module + "." + l.Function
}

// IsZero reports whether the location carries no identity at all.
func (l Location) IsZero() bool {
	return l.Module == "" && l.Function == "" && l.Line == 0
}

// Less orders locations lexically: module, then function, then line.
// Reports use it as the deterministic tie-breaker.
func (l Location) Less(other Location) bool {
	if l.Module != other.Module {
		return l.Module < other.Module
	}
	if l.Function != other.Function {
		return l.Function < other.Function
	}
	return l.Line < other.Line
}
