package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Diagnostic is a problem the compiler recovered from.
type Diagnostic struct {
	Pos Pos
	Err error
}

func (d Diagnostic) Error() string {
	return d.Pos.String() + ": " + d.Err.Error()
}

// ErrorList collects diagnostics. The lexer, parser and emitter never stop on
// bad input; they substitute a neutral value and record what happened here.
type ErrorList struct {
	Diagnostics []Diagnostic
}

func (el *ErrorList) Add(pos Pos, format string, args ...interface{}) {
	el.Diagnostics = append(el.Diagnostics, Diagnostic{Pos: pos, Err: errors.Errorf(format, args...)})
}

func (el *ErrorList) Append(other *ErrorList) {
	if other == nil {
		return
	}
	el.Diagnostics = append(el.Diagnostics, other.Diagnostics...)
}

func (el *ErrorList) HasErrors() bool {
	return el != nil && len(el.Diagnostics) > 0
}

func (el *ErrorList) String() string {
	if !el.HasErrors() {
		return ""
	}
	var sb strings.Builder
	for i, d := range el.Diagnostics {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.Error())
	}
	return sb.String()
}

// Err returns nil when nothing was recorded, otherwise a single error
// listing every diagnostic.
func (el *ErrorList) Err() error {
	if !el.HasErrors() {
		return nil
	}
	if len(el.Diagnostics) == 1 {
		return el.Diagnostics[0]
	}
	return errors.Errorf("%d problems:\n%s", len(el.Diagnostics), el.String())
}
