// Package board holds the client-side task list and reconciles it with the backend.
//
// The board is driven by a typed action/result flow: an [Action] is executed by
// an [Engine] against the backend, producing a [Result] that [State.Apply] folds
// into the board. Renderers only ever read a [State].
package board

import "todo/internal/service"

const (
	// TranslationFailed marks an item whose translation did not come back.
	TranslationFailed = "Translation failed"

	// Translating marks an item whose translation is in flight.
	Translating = "Translating..."

	// EmptyDescription is the message for a create with no text.
	EmptyDescription = "You must write something!"
)

// Item is a rendered task plus its client-only translation state.
type Item struct {
	Task        service.Task
	Translation string
}

// State is the board: current category, current session and the rendered items.
type State struct {
	Category service.Category
	User     *service.Session
	Items    []Item

	// Message is the last user-visible error, cleared by the next successful result.
	Message string
}

// New creates an empty board showing category.
func New(category service.Category) *State {
	return &State{Category: category}
}

// Visible reports whether a task of category taskCat is shown while current is selected.
func Visible(current, taskCat service.Category) bool {
	return current == taskCat
}

// Visible returns the items of the current category in board order.
func (s *State) Visible() []Item {
	var out []Item
	for _, it := range s.Items {
		if Visible(s.Category, it.Task.Category) {
			out = append(out, it)
		}
	}
	return out
}

// Empty reports whether no item matches the current category.
func (s *State) Empty() bool {
	for _, it := range s.Items {
		if Visible(s.Category, it.Task.Category) {
			return false
		}
	}
	return true
}

// Find returns the item with the given ID.
func (s *State) Find(id string) (Item, bool) {
	if i := s.index(id); i >= 0 {
		return s.Items[i], true
	}
	return Item{}, false
}

func (s *State) index(id string) int {
	for i, it := range s.Items {
		if it.Task.ID == id {
			return i
		}
	}
	return -1
}

// upsert replaces the item with the same ID or appends a new one.
// The translation of a replaced item is kept unless the description changed.
func (s *State) upsert(t service.Task) {
	if i := s.index(t.ID); i >= 0 {
		prev := s.Items[i]
		s.Items[i] = Item{Task: t}
		if prev.Task.Description == t.Description {
			s.Items[i].Translation = prev.Translation
		}
		return
	}
	s.Items = append(s.Items, Item{Task: t})
}

func (s *State) remove(id string) {
	if i := s.index(id); i >= 0 {
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
	}
}

func (s *State) setTranslation(id, text string) {
	if i := s.index(id); i >= 0 {
		s.Items[i].Translation = text
	}
}

// Apply folds a result into the board.
func (s *State) Apply(r Result) {
	if r.Err != nil {
		s.Message = r.Message()
		// Partial clears still remove what was deleted
		for _, id := range r.Removed {
			s.remove(id)
		}
		for i, id := range r.TranslatedIDs {
			s.setTranslation(id, r.Translations[i])
		}
		return
	}
	s.Message = ""

	switch r.Kind {
	case KindLoaded:
		prev := s.Items
		s.Items = nil
		for _, t := range r.Tasks {
			s.upsert(t)
		}
		for _, old := range prev {
			if i := s.index(old.Task.ID); i >= 0 && s.Items[i].Task.Description == old.Task.Description {
				s.Items[i].Translation = old.Translation
			}
		}
	case KindUpserted:
		for _, t := range r.Tasks {
			s.upsert(t)
		}
	case KindRemoved:
		for _, id := range r.Removed {
			s.remove(id)
		}
	case KindCategory:
		s.Category = r.Category
	case KindTranslated:
		for i, id := range r.TranslatedIDs {
			s.setTranslation(id, r.Translations[i])
		}
	case KindSession:
		s.User = r.Session
		if r.Session == nil {
			s.Items = nil
		}
	}
}

// ToggleOf builds the toggle action for id from its rendered state.
func (s *State) ToggleOf(id string) (Toggle, bool) {
	it, ok := s.Find(id)
	if !ok {
		return Toggle{}, false
	}
	return Toggle{ID: id, Completed: it.Task.Completed}, true
}

// ClearVisible builds the action deleting every item of the current category.
func (s *State) ClearVisible() Clear {
	var a Clear
	for _, it := range s.Visible() {
		a.IDs = append(a.IDs, it.Task.ID)
	}
	return a
}

// TranslateVisible builds the batch translation of the current category.
func (s *State) TranslateVisible(lang string) TranslateAll {
	a := TranslateAll{Lang: lang}
	for _, it := range s.Visible() {
		a.IDs = append(a.IDs, it.Task.ID)
		a.Texts = append(a.Texts, it.Task.Description)
	}
	return a
}

// MarkTranslating sets the in-flight marker on items before a translation is issued.
func (s *State) MarkTranslating(ids []string) {
	for _, id := range ids {
		s.setTranslation(id, Translating)
	}
}
