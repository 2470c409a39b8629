package eval

import "fmt"

// UndefinedError reports a reference to a name with no binding, usually an
// input label with no connected or valued source.
type UndefinedError struct {
	Name string
	Pos  int
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("%s is not defined", e.Name)
}

// TypeError reports an operation applied to values it cannot handle.
type TypeError struct {
	Pos int
	Msg string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error at %d: %s", e.Pos, e.Msg)
}

func typeErrorf(pos int, format string, args ...any) *TypeError {
	return &TypeError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
