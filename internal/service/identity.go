package service

import (
	"context"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// resolveTenant finds or creates the tenant-role account for the person the
// profile describes, matching by phone. A person already holding an account
// under another role gets a second, tenant-role account sharing the same
// PersonRef; the person record is never duplicated.
func (e *Engine) resolveTenant(ctx context.Context, tx store.TxOps, p *TenantProfile) (*model.Account, error) {
	existing, err := tx.AccountByPhoneRole(ctx, p.Phone, model.RoleTenant)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	account := &model.Account{
		FullName: p.FullName,
		Phone:    p.Phone,
		Email:    p.Email,
		Role:     model.RoleTenant,
	}

	others, err := tx.AccountsByPhone(ctx, p.Phone)
	if err != nil {
		return nil, err
	}
	if len(others) > 0 {
		account.PersonRef = others[0].PersonRef
		if account.FullName == "" {
			account.FullName = others[0].FullName
		}
	}

	if err := tx.InsertAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
