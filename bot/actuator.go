package bot

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Actuator executes moderation effects against the Discord API. Permission
// errors and missing members come back as plain errors; the engine treats
// them as expected outcomes.
type Actuator struct {
	session *discordgo.Session
}

func NewActuator(s *discordgo.Session) *Actuator {
	return &Actuator{session: s}
}

func (a *Actuator) Ban(guildID, userID, reason string) error {
	return a.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (a *Actuator) Unban(guildID, userID string) error {
	return a.session.GuildBanDelete(guildID, userID)
}

func (a *Actuator) Mute(guildID, userID string, until time.Time) error {
	return a.session.GuildMemberTimeout(guildID, userID, &until)
}

func (a *Actuator) Unmute(guildID, userID string) error {
	return a.session.GuildMemberTimeout(guildID, userID, nil)
}

func (a *Actuator) Kick(guildID, userID, reason string) error {
	return a.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (a *Actuator) GrantRole(guildID, userID, roleID string) error {
	return a.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (a *Actuator) RevokeRole(guildID, userID, roleID string) error {
	return a.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (a *Actuator) IsBanned(guildID, userID string) (bool, error) {
	_, err := a.session.GuildBan(guildID, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *Actuator) IsMuted(guildID, userID string) (bool, error) {
	member, err := a.session.GuildMember(guildID, userID)
	if err != nil {
		// A subject who left the guild has nothing to unmute.
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return member.CommunicationDisabledUntil != nil &&
		member.CommunicationDisabledUntil.After(time.Now()), nil
}

func (a *Actuator) HasRole(guildID, userID, roleID string) (bool, error) {
	member, err := a.session.GuildMember(guildID, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
