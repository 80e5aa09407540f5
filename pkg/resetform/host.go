package resetform

import "sync"

// TextRegion is an in-memory Region. It is safe for concurrent use; each
// SetText replaces the whole value.
type TextRegion struct {
	mu       sync.Mutex
	text     string
	onChange func(string)
}

// NewTextRegion returns a region that calls onChange, if non-nil, after
// every write.
func NewTextRegion(onChange func(string)) *TextRegion {
	return &TextRegion{onChange: onChange}
}

func (r *TextRegion) SetText(text string) {
	r.mu.Lock()
	r.text = text
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (r *TextRegion) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// StaticForm is a Form with fixed values.
type StaticForm struct {
	Password1 string
	Password2 string
}

func (f StaticForm) Passwords() (string, string) {
	return f.Password1, f.Password2
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }

// SubmitEvent is an Event that records whether its default was prevented.
type SubmitEvent struct {
	mu        sync.Mutex
	prevented bool
}

func (e *SubmitEvent) PreventDefault() {
	e.mu.Lock()
	e.prevented = true
	e.mu.Unlock()
}

func (e *SubmitEvent) DefaultPrevented() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prevented
}
