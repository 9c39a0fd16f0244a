package brush

// Slot holds the single active footprint. Activating one deactivates the
// previous holder first.
type Slot struct {
	active *Footprint
}

// Activate makes f the active footprint.
func (s *Slot) Activate(f *Footprint) {
	if f == nil {
		return
	}
	if s.active != nil && s.active != f {
		s.active.active = false
	}
	s.active = f
	f.active = true
}

// Deactivate clears f from the slot if it holds it.
func (s *Slot) Deactivate(f *Footprint) {
	if f == nil {
		return
	}
	if s.active == f {
		s.active = nil
	}
	f.active = false
}

// Toggle flips f between active and inactive.
func (s *Slot) Toggle(f *Footprint) {
	if s.IsActive(f) {
		s.Deactivate(f)
		return
	}
	s.Activate(f)
}

// IsActive reports whether f holds the slot.
func (s *Slot) IsActive(f *Footprint) bool {
	return f != nil && s.active == f
}

// Active returns the active footprint, or nil.
func (s *Slot) Active() *Footprint { return s.active }

// Brush returns the active footprint as a Brush. The result is a nil
// interface, not a typed nil, when the slot is empty.
func (s *Slot) Brush() Brush {
	if s.active == nil {
		return nil
	}
	return s.active
}
