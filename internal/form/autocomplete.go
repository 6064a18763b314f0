package form

import "sync"

// Suggestions is the autocomplete list of one input. It is shown while the
// input has focus and never edits rows except through Form.EditField.
type Suggestions struct {
	mu      sync.Mutex
	options []string
	visible bool
	focused bool
}

func NewSuggestions(options []string) *Suggestions {
	return &Suggestions{options: append([]string(nil), options...)}
}

// Options returns the fixed suggestion strings.
func (s *Suggestions) Options() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.options...)
}

func (s *Suggestions) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = true
	s.visible = true
}

func (s *Suggestions) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = false
	s.visible = false
}

func (s *Suggestions) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Suggestions) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Select writes option into the field, hides the list and returns focus to
// the input.
func (s *Suggestions) Select(f *Form, id int64, field Field, option string) error {
	if err := f.EditField(id, field, option); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.focused = true
	return nil
}
