package bot

import (
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
)

var errAuditEntryNotVisible = errors.New("audit log entry not yet visible")

// resolveBanActor finds who issued a ban that did not originate from this
// bot. The audit log entry can lag the gateway event, so the lookup polls
// with exponential backoff instead of sleeping a fixed delay once.
func (b *Bot) resolveBanActor(guildID, targetID string) (string, error) {
	var actorID string

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
		backoff.WithMaxInterval(5*time.Second),
	), 6)

	lookup := func() error {
		page, err := b.Session.GuildAuditLog(guildID, "", "",
			int(discordgo.AuditLogActionMemberBanAdd), 25)
		if err != nil {
			// API refusal will not heal within the polling window.
			return backoff.Permanent(err)
		}
		for _, entry := range page.AuditLogEntries {
			if entry.TargetID == targetID {
				actorID = entry.UserID
				return nil
			}
		}
		return errAuditEntryNotVisible
	}

	if err := backoff.Retry(lookup, policy); err != nil {
		return "", err
	}
	return actorID, nil
}
