// Package elog provides the repository-wide "[component] message" log
// convention used throughout corestream, matching the bracket-prefix idiom
// the rest of this codebase was built from (see main.go/server.go in the
// original signaling server this core was extracted from).
package elog

import "log"

// Logger writes bracket-prefixed lines through the standard library logger.
// It intentionally does not wrap a structured logging package: nothing in
// this codebase's ambient stack reaches for one, so corestream doesn't either.
type Logger struct {
	component string
}

// New returns a Logger that prefixes every line with "[component] ".
func New(component string) Logger {
	return Logger{component: component}
}

func (l Logger) Printf(format string, args ...any) {
	log.Printf("["+l.component+"] "+format, args...)
}

func (l Logger) Println(args ...any) {
	all := make([]any, 0, len(args)+1)
	all = append(all, "["+l.component+"]")
	all = append(all, args...)
	log.Println(all...)
}
