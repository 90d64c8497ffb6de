package checkout

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepo struct{ DB *pgxpool.Pool }

// Lines joins the cart with the catalog so every line carries the price
// snapshot the rest of the checkout will use. Prices are read once here;
// a concurrent catalog change tidak mempengaruhi attempt yang sudah jalan.
func (r *CartRepo) Lines(ctx context.Context, cartID string) ([]CartLine, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.product_id, p.name, p.price, c.quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.cart_id = $1
		ORDER BY c.product_id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartLine
	for rows.Next() {
		var ln CartLine
		if err := rows.Scan(&ln.ProductID, &ln.Name, &ln.UnitPrice, &ln.Qty); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}
