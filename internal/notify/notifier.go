// Package notify delivers reunification notices to reporters. The log-backed
// implementation stands in for an outbound email or SMS gateway; delivery is
// best-effort everywhere it is called.
package notify

import (
	"context"
	"log/slog"

	"reunite/internal/cases/models"
	"reunite/pkg/email"
)

// LogNotifier writes reunification notices to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// MatchConfirmed notifies the reporter of ownCase that it has been matched
// with counterpart. The notice carries the counterpart's identity and contact
// details so the reporters can reach each other.
func (n *LogNotifier) MatchConfirmed(ctx context.Context, ownCase, counterpart *models.Case) error {
	n.logger.InfoContext(ctx, "match confirmed notice",
		"recipient", email.DeriveDisplayName(ownCase.ContactEmail),
		"case_id", ownCase.ID,
		"counterpart_case_id", counterpart.ID,
		"counterpart_name", counterpart.FullName,
		"counterpart_contact_name", counterpart.ContactName,
		"counterpart_contact_phone", counterpart.ContactPhone,
		"counterpart_contact_email", counterpart.ContactEmail,
	)
	return nil
}
