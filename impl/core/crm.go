package core

import (
	"FirstContact/entity"
	"context"
	"log/slog"
)

// SubmitLead forwards a finished dialog to the CRM and tells the admin about
// hot leads the CRM accepted.
func (c *Core) SubmitLead(ctx context.Context, lead entity.LeadPayload) error {
	if c.crm == nil {
		return ErrNotAvailable
	}
	if err := c.crm.SubmitLead(ctx, lead); err != nil {
		return err
	}

	if c.notifier != nil && lead.IsHot() {
		c.log.With(
			slog.String("user_id", lead.UserID),
		).Debug("notifying admin of hot lead")
		c.notifier.NotifyLead(lead)
	}
	return nil
}
