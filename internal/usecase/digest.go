package usecase

import (
	"context"
	"fmt"
	"taskremind/internal/domain"
	"taskremind/internal/metrics"
	"taskremind/internal/ports"

	"github.com/rs/zerolog/log"
)

// DefaultDigestExcluded are pushed live and never batched into email.
var DefaultDigestExcluded = []domain.NotificationType{
	domain.TypeDeadlineReminder,
	domain.TypeChatMessage,
}

// Aggregator batches un-emailed notifications into one email per recipient.
type Aggregator struct {
	Notifications ports.NotificationStore
	Users         ports.UserStore
	Mailer        ports.Mailer
	ExcludedTypes []domain.NotificationType
}

type DigestResult struct {
	Recipients    int
	Sent          int
	Failed        int
	Notifications int
}

type digestGroup struct {
	recipientID string
	items       []domain.Notification
}

func DigestSubject(count int) string {
	if count == 1 {
		return "You have 1 new notification"
	}
	return fmt.Sprintf("You have %d new notifications", count)
}

// RunOnce sends one digest per recipient with pending notifications. A
// recipient whose mail fails keeps its rows un-emailed for the next run.
func (a Aggregator) RunOnce(ctx context.Context) (DigestResult, error) {
	var res DigestResult
	logger := log.Ctx(ctx).With().Str("component", "digest").Logger()

	pending, err := a.Notifications.ListPendingDigest(ctx, ports.PendingFilter{ExcludedTypes: a.ExcludedTypes})
	if err != nil {
		return res, fmt.Errorf("list pending notifications: %w", err)
	}
	if len(pending) == 0 {
		logger.Info().Msg("no pending notifications")
		return res, nil
	}

	groups := groupByRecipient(pending)
	res.Recipients = len(groups)

	for _, g := range groups {
		if err := a.send(ctx, g); err != nil {
			res.Failed++
			metrics.DigestsFailed.Inc()
			logger.Warn().Err(err).Str("recipient", g.recipientID).Int("pending", len(g.items)).Msg("digest not sent")
			continue
		}
		res.Sent++
		res.Notifications += len(g.items)
		metrics.DigestsSent.Inc()
	}

	logger.Info().
		Int("recipients", res.Recipients).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("digest run complete")
	return res, nil
}

func (a Aggregator) send(ctx context.Context, g digestGroup) error {
	user, err := a.Users.GetUser(ctx, g.recipientID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if user.Email == "" {
		return fmt.Errorf("recipient %s has no email address", user.ID)
	}

	body := domain.Digest{Recipient: *user, Entries: make([]domain.DigestEntry, 0, len(g.items))}
	ids := make([]string, 0, len(g.items))
	for _, n := range g.items {
		body.Entries = append(body.Entries, domain.NewDigestEntry(n))
		ids = append(ids, n.ID)
	}

	if err := a.Mailer.Send(ctx, user.Email, DigestSubject(len(g.items)), body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if err := a.Notifications.MarkEmailed(ctx, ids); err != nil {
		return fmt.Errorf("mark emailed: %w", err)
	}
	return nil
}

func groupByRecipient(ns []domain.Notification) []digestGroup {
	idx := make(map[string]int)
	var groups []digestGroup
	for _, n := range ns {
		i, ok := idx[n.RecipientID]
		if !ok {
			i = len(groups)
			idx[n.RecipientID] = i
			groups = append(groups, digestGroup{recipientID: n.RecipientID})
		}
		groups[i].items = append(groups[i].items, n)
	}
	return groups
}
