package engine

import (
	"bytes"
	"io"
	"os"
	"os/exec"

	"github.com/josephlewis42/pipesh/core/directive"
)

// stage is one spawned process of a pipeline.
type stage struct {
	directive directive.Directive
	cmd       *exec.Cmd

	// stdout is only used by the terminal stage when its output isn't
	// redirected.
	stdout bytes.Buffer
	stderr bytes.Buffer

	// toClose holds descriptors the child inherits; the engine's copies are
	// released as soon as the child has started.
	toClose []io.Closer
}

func (s *stage) closeAfterStart(c io.Closer) {
	s.toClose = append(s.toClose, c)
}

func (s *stage) closeAll() {
	for _, c := range s.toClose {
		c.Close()
	}
	s.toClose = nil
}

func (s *stage) wait() error {
	return s.cmd.Wait()
}

// chain holds the stages of a pipeline that have been started so far, in
// order.
type chain struct {
	stages []*stage
}

// abort terminates every started stage and waits for it so no process
// outlives a failed pipeline. pending is the unconsumed read end of the last
// stage's output pipe, if any.
func (c *chain) abort(pending *os.File) {
	if pending != nil {
		pending.Close()
	}

	for _, st := range c.stages {
		if st.cmd.Process != nil {
			st.cmd.Process.Kill()
		}
	}
	for _, st := range c.stages {
		st.wait()
	}
}
