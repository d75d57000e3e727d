package order

import (
	"errors"
	"fmt"
	"strings"
)

// MaxIngredients is the selection cap enforced by the form, not by the database.
const MaxIngredients = 5

var (
	ErrMissingName        = errors.New("name on order is required")
	ErrNoIngredients      = errors.New("at least one ingredient is required")
	ErrTooManyIngredients = fmt.Errorf("no more than %d ingredients are allowed", MaxIngredients)
)

// Request is a customer's submitted selection.
type Request struct {
	Name        string
	Ingredients []string
}

// Order is a persisted request. Fulfilment and timestamp are defaulted by the database.
type Order struct {
	ID          int64
	Ingredients string
	NameOnOrder string
}

// Validate checks the request can become an order. Both missing-input
// errors are reported together so the caller can prompt for each.
func (r Request) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, ErrMissingName)
	}
	switch n := len(nonBlank(r.Ingredients)); {
	case n == 0:
		errs = append(errs, ErrNoIngredients)
	case n > MaxIngredients:
		errs = append(errs, ErrTooManyIngredients)
	}
	return errors.Join(errs...)
}

// JoinIngredients joins selected names with single spaces.
func JoinIngredients(ingredients []string) string {
	return strings.Join(nonBlank(ingredients), " ")
}

// nonBlank returns the trimmed entries, skipping empty ones.
func nonBlank(ingredients []string) []string {
	parts := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			parts = append(parts, ing)
		}
	}
	return parts
}

// QuoteLiteral renders s as a single-quoted SQL literal by doubling embedded quotes.
// Only used for display; statements are executed with bound parameters.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// PreviewStatement renders the insert a request would perform, for debugging output.
func PreviewStatement(r Request) string {
	return fmt.Sprintf("INSERT INTO orders (ingredients, name_on_order) VALUES (%s, %s)",
		QuoteLiteral(JoinIngredients(r.Ingredients)), QuoteLiteral(strings.TrimSpace(r.Name)))
}
