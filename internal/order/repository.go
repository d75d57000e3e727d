package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Repository handles persistence of orders.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert validates the request and stores it as a new order row.
func (r *Repository) Insert(ctx context.Context, req Request) (Order, error) {
	if err := req.Validate(); err != nil {
		return Order{}, err
	}

	o := Order{
		Ingredients: JoinIngredients(req.Ingredients),
		NameOnOrder: strings.TrimSpace(req.Name),
	}

	query := r.db.Rebind("INSERT INTO orders (ingredients, name_on_order) VALUES (?, ?) RETURNING order_uid")
	if err := r.db.QueryRowxContext(ctx, query, o.Ingredients, o.NameOnOrder).Scan(&o.ID); err != nil {
		return Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	return o, nil
}
