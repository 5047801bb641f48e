package tritonia

import (
	"context"
	"fmt"
	"net/url"
	"time"
	"vamkhelp-backend/lib/scraper"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SelectForRenewal picks the loans a renewal would submit.
func SelectForRenewal(loans []Loan, onlyIfDue bool, now time.Time) []Loan {
	var selected []Loan
	for _, loan := range loans {
		if onlyIfDue && !IsLoanDueSoon(loan, now) {
			continue
		}
		selected = append(selected, loan)
	}
	return selected
}

// Renew submits one renewal request for `loans` (all of them, or only those
// due soon when onlyIfDue is set), then re-reads the account page so Loans()
// reflects the portal afterwards. It returns the loans that were submitted,
// the portal does not report per-loan success.
//
// The request is sent even when no loan is selected, the portal treats an
// empty selection as a no-op.
func (s *Session) Renew(ctx context.Context, loans []Loan, onlyIfDue bool) ([]Loan, error) {
	ctx, span := tracer.Start(ctx, "Session:Renew")
	defer span.End()

	if s.state != scraper.Authenticated {
		return nil, scraper.ErrNotAuthenticated
	}

	selected := SelectForRenewal(loans, onlyIfDue, s.now())

	form := url.Values{}
	form.Set("renew", "Request Renewal")
	for _, loan := range selected {
		form.Add("selectCharged", loan.Token)
	}
	span.SetAttributes(
		attribute.Int("candidates", len(loans)),
		attribute.Int("submitted", len(selected)),
		attribute.Bool("only_if_due", onlyIfDue),
	)

	_, err := s.client.Submit(ctx, s.urls.Renewal, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit renewal")
		return nil, fmt.Errorf("tritonia: renew: %w", err)
	}

	_, err = s.RefreshLoans(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to re-read loans")
		return selected, fmt.Errorf("tritonia: renew: %w", err)
	}

	return selected, nil
}
