package catalog

import "sync"

// State is the filter selection and current page of one list view. Changing
// any filter or the sort key sends the view back to page 1.
type State struct {
	mu     sync.Mutex
	filter Filter
	page   int
}

func NewState(initial Filter) *State {
	return &State{filter: initial, page: 1}
}

func (s *State) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *State) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// SetFilter replaces the selection, reporting whether it changed.
func (s *State) SetFilter(f Filter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.Equal(f) {
		return false
	}
	s.filter = f
	s.page = 1
	return true
}

// Update edits the selection in place through fn.
func (s *State) Update(fn func(*Filter)) bool {
	f := s.Filter()
	f.Categories = append([]string(nil), f.Categories...)
	if f.Price != nil {
		p := *f.Price
		f.Price = &p
	}
	fn(&f)
	return s.SetFilter(f)
}

func (s *State) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = max(page, 1)
}

// Apply runs the pipeline over courses and remembers the clamped page.
func (s *State) Apply(courses []Course, pageSize int) Page[Course] {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Apply(courses, s.filter, s.page, pageSize)
	s.page = p.Page
	return p
}
