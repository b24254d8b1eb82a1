package lifecycle

import (
	"context"
	"strconv"
	"time"
)

// Membership is a user's standing in the broadcast channel.
type Membership uint8

const (
	MembershipMember Membership = iota + 1
	MembershipLeft
	MembershipBanned
)

func (m Membership) String() string {
	switch m {
	case MembershipMember:
		return "member"
	case MembershipLeft:
		return "left"
	case MembershipBanned:
		return "banned"
	}
	return "unknown"
}

// Gate reports whether a user may submit to the channel.
type Gate interface {
	MembershipStatus(ctx context.Context, userID int64) (Membership, error)
}

// Chat addresses a private chat or a channel. It satisfies telebot's Recipient.
type Chat string

// UserChat addresses the private chat with the given id.
func UserChat(id int64) Chat {
	return Chat(strconv.FormatInt(id, 10))
}

// Recipient returns the chat id or "@username" of the channel.
func (c Chat) Recipient() string {
	return string(c)
}

// Dialect selects how the text of an outbound message is parsed.
type Dialect uint8

const (
	DialectPlain Dialect = iota
	DialectHTML
)

// Button is an inline action button.
type Button struct {
	Action Action
	Label  string
}

// MessageRef points at a message the bot sent before.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Notifier delivers the short notices of the escalation path.
type Notifier interface {
	SendText(ctx context.Context, to Chat, text string, dialect Dialect, buttons []Button) error
	AnswerAction(ctx context.Context, callbackID string) error
}

// Messenger is the outbound side of the chat platform.
type Messenger interface {
	Notifier
	// SendMediaGroup sends photos as one post with caption on the first item.
	SendMediaGroup(ctx context.Context, to Chat, caption string, media []string, dialect Dialect) error
	EditMessageText(ctx context.Context, ref MessageRef, text string) error
}

// PublicationRecord describes one post published to the channel.
type PublicationRecord struct {
	OwnerID     int64
	Username    string
	MediaCount  int
	CaptionLen  int
	Channel     string
	PublishedAt time.Time
}

// Journal keeps a log of publications.
type Journal interface {
	RecordPublication(ctx context.Context, rec PublicationRecord) error
}
