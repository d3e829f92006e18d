package analysis

// frame holds the bindings introduced by one lexical scope. A nil target is
// an ordinary local that shadows any outer namespace alias of the same name.
type frame map[string]*ModuleID

// scopeStack tracks namespace alias bindings for one file. The bottom frame
// is the module scope.
type scopeStack struct {
	frames []frame
}

func newScopeStack() *scopeStack {
	return &scopeStack{frames: []frame{{}}}
}

func (s *scopeStack) push() {
	s.frames = append(s.frames, frame{})
}

func (s *scopeStack) pop() {
	if len(s.frames) <= 1 {
		panic("analysis: pop of module scope")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *scopeStack) depth() int {
	return len(s.frames)
}

// bind makes name an alias for target in the innermost scope.
func (s *scopeStack) bind(name string, target ModuleID) {
	s.frames[len(s.frames)-1][name] = &target
}

// shadow declares name as a plain local in the innermost scope.
func (s *scopeStack) shadow(name string) {
	s.frames[len(s.frames)-1][name] = nil
}

// lookup returns the module name is an alias for, searching from the
// innermost scope outwards.
func (s *scopeStack) lookup(name string) (ModuleID, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		target, ok := s.frames[i][name]
		if !ok {
			continue
		}
		if target == nil {
			return "", false
		}
		return *target, true
	}
	return "", false
}
