package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

const propertySelect = `
	SELECT id, owner_id, label, address, status, created_at, updated_at
	FROM properties`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*model.Property, error) {
	p := &model.Property{}
	err := row.Scan(&p.ID, &p.OwnerID, &p.Label, &p.Address, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PropertyByID reads and row-locks a property for the remainder of the
// transaction. Returns nil when the property does not exist.
func (t *Tx) PropertyByID(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	p, err := scanProperty(t.tx.QueryRowContext(ctx, propertySelect+` WHERE id = $1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (t *Tx) SetPropertyStatus(ctx context.Context, id uuid.UUID, status model.PropertyStatus) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE properties SET status = $2, updated_at = now()
		WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	t.touched = append(t.touched, id)
	return nil
}
