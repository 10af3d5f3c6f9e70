package analyzer

import (
	"github.com/venice-lang/venice/compiler/types"
)

type (
	entry struct {
		Type  types.Type
		Const bool
	}

	frame map[string]entry

	// scopes is a stack of symbol table frames. A frame is pushed on
	// entry to any body and popped on exit. Lookups walk the stack
	// from innermost outward, so shadowing works without removal hacks.
	scopes struct {
		frames []frame
	}
)

func newScopes() *scopes {
	return &scopes{frames: []frame{{}}}
}

func (s *scopes) push() {
	s.frames = append(s.frames, frame{})
}

func (s *scopes) pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *scopes) lookup(name string) (entry, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if e, ok := s.frames[i][name]; ok {
			return e, true
		}
	}

	return entry{}, false
}

// define binds name in the innermost frame. It reports false if the
// name is already bound in that frame.
func (s *scopes) define(name string, e entry) bool {
	f := s.frames[len(s.frames)-1]

	if _, ok := f[name]; ok {
		return false
	}

	f[name] = e

	return true
}
