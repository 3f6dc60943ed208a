package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/crypto"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

const accountSelect = `
	SELECT id, person_ref, full_name, phone, encrypted_email, email_iv, role, created_at
	FROM accounts`

func scanAccount(row rowScanner) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(&a.ID, &a.PersonRef, &a.FullName, &a.Phone,
		&a.EncryptedEmail, &a.EmailIV, &a.Role, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(a.EncryptedEmail) > 0 && len(a.EmailIV) > 0 {
		email, err := crypto.Decrypt(a.EncryptedEmail, a.EmailIV)
		if err != nil {
			return nil, err
		}
		a.Email = email
	}
	return a, nil
}

func (t *Tx) AccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, err := scanAccount(t.tx.QueryRowContext(ctx, accountSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// AccountByPhoneRole looks up the account a person holds under one role;
// phone is the person-stable identifier.
func (t *Tx) AccountByPhoneRole(ctx context.Context, phone string, role model.AccountRole) (*model.Account, error) {
	a, err := scanAccount(t.tx.QueryRowContext(ctx,
		accountSelect+` WHERE phone = $1 AND role = $2 ORDER BY created_at LIMIT 1`, phone, role))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (t *Tx) AccountsByPhone(ctx context.Context, phone string) ([]*model.Account, error) {
	rows, err := t.tx.QueryContext(ctx, accountSelect+` WHERE phone = $1 ORDER BY created_at`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *Tx) InsertAccount(ctx context.Context, a *model.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PersonRef == uuid.Nil {
		a.PersonRef = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()

	// Contact email is stored encrypted; phone stays plaintext because it is
	// the person-stable lookup key.
	if a.Email != "" {
		encrypted, iv, err := crypto.Encrypt(a.Email)
		if err != nil {
			return err
		}
		a.EncryptedEmail = encrypted
		a.EmailIV = iv
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, person_ref, full_name, phone, encrypted_email, email_iv, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.PersonRef, a.FullName, a.Phone, a.EncryptedEmail, a.EmailIV, a.Role, a.CreatedAt)
	return err
}
