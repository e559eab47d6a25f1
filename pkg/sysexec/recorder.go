package sysexec

import (
	"context"
	"strings"
)

// Call is one recorded command invocation.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Recorder is a Runner that records every invocation instead of executing
// it. FailOn, when set, is consulted per call and its error returned as the
// command's outcome.
type Recorder struct {
	Calls  []Call
	FailOn func(c Call) error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Run(ctx context.Context, name string, args ...string) error {
	call := Call{Name: name, Args: args}
	r.Calls = append(r.Calls, call)

	if r.FailOn != nil {
		return r.FailOn(call)
	}

	return nil
}

// CommandLines renders the recorded calls one command per line, convenient
// for comparing whole sequences in tests.
func (r *Recorder) CommandLines() []string {
	lines := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		lines = append(lines, c.String())
	}

	return lines
}
