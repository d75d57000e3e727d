package form

import (
	"errors"
	"fmt"
	"strings"

	"smoothie-orders/internal/order"
)

// ErrSelectionLimit is returned when a selection would exceed order.MaxIngredients.
var ErrSelectionLimit = fmt.Errorf("you can choose up to %d ingredients", order.MaxIngredients)

// State is the per-session form input carried between renders.
type State struct {
	Name          string   `json:"name"`
	Selected      []string `json:"selected"`
	ShowNutrition bool     `json:"show_nutrition"`

	// Flash is shown once on the next page load, after a redirect.
	Flash string `json:"flash,omitempty"`
}

// IsSelected reports whether fruit is part of the current selection.
func (s *State) IsSelected(fruit string) bool {
	for _, sel := range s.Selected {
		if sel == fruit {
			return true
		}
	}
	return false
}

// Toggle adds or removes fruit. Adding past the cap is rejected and leaves the state unchanged.
func (s *State) Toggle(fruit string) error {
	fruit = strings.TrimSpace(fruit)
	if fruit == "" {
		return errors.New("empty fruit name")
	}
	for i, sel := range s.Selected {
		if sel == fruit {
			s.Selected = append(s.Selected[:i:i], s.Selected[i+1:]...)
			return nil
		}
	}
	if len(s.Selected) >= order.MaxIngredients {
		return ErrSelectionLimit
	}
	s.Selected = append(s.Selected, fruit)
	return nil
}

// SetSelection replaces the selection, dropping blanks and duplicates.
// More than order.MaxIngredients entries is rejected and leaves the state unchanged.
func (s *State) SetSelection(fruits []string) error {
	seen := make(map[string]bool, len(fruits))
	var next []string
	for _, f := range fruits {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		next = append(next, f)
	}
	if len(next) > order.MaxIngredients {
		return ErrSelectionLimit
	}
	s.Selected = next
	return nil
}

// SetName stores the customer name.
func (s *State) SetName(name string) {
	s.Name = strings.TrimSpace(name)
}

// Reset clears name and selection, keeping display preferences.
func (s *State) Reset() {
	s.Name = ""
	s.Selected = nil
}
