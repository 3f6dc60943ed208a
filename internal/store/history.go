package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

// AppendHistory writes one audit record. There is deliberately no update or
// delete counterpart; the ledger is append-only.
func (t *Tx) AppendHistory(ctx context.Context, h *model.HistoryRecord) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.OccurredAt.IsZero() {
		h.OccurredAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO history_records (id, property_id, tenant_id, event_type, reason, comment, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.PropertyID, h.TenantID, h.EventType, h.Reason, h.Comment, h.OccurredAt)
	return err
}
