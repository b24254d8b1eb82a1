package lifecycle

import (
	"github.com/m3rciful/postbot/core/telegram/format"
)

// Messages holds every user-facing text. Empty fields fall back to the defaults.
type Messages struct {
	Greeting      string `yaml:"greeting"`
	Preview       string `yaml:"preview"`
	Confirm       string `yaml:"confirm"`
	Banned        string `yaml:"banned"`
	Left          string `yaml:"left"`
	Error         string `yaml:"error"`
	// PublishFailed is sent when the channel rejected the post; the submission stays staged.
	PublishFailed string `yaml:"publish_failed"`
	// TooLong is sent when the text of a new post exceeds a Telegram message.
	TooLong       string `yaml:"too_long"`
	Aborted       string `yaml:"aborted"`
	Success       string `yaml:"success"`
	AuthorPrefix  string `yaml:"author_prefix"`
	LinkLabel     string `yaml:"link_label"`
	BtnPreview    string `yaml:"btn_preview"`
	BtnPublish    string `yaml:"btn_publish"`
	BtnDiscard    string `yaml:"btn_discard"`
}

// DefaultMessages returns the built-in English texts.
func DefaultMessages() Messages {
	return Messages{
		Greeting:      "Hi! Send me the text of your post, then add photos if you like. I will show you a preview before anything goes to the channel.",
		Preview:       "Got it. Add more photos or open the preview when you are ready.",
		Confirm:       "This is how your post will look. Publish it?",
		Banned:        "You are banned from the channel, your post cannot be published.",
		Left:          "Only channel members can submit posts. Join the channel and try again.",
		Error:         "Something went wrong. Please start over with /start.",
		PublishFailed: "The channel did not accept the post. Press Publish to try again or Discard to drop it.",
		TooLong:       "This text is too long for one post. Please shorten it and send it again.",
		Aborted:       "Post discarded.",
		Success:       "Your post has been published.",
		AuthorPrefix:  "Author: ",
		LinkLabel:     "link",
		BtnPreview:    "Preview",
		BtnPublish:    "Publish",
		BtnDiscard:    "Discard",
	}
}

// WithDefaults fills empty texts from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.Greeting, d.Greeting)
	fill(&m.Preview, d.Preview)
	fill(&m.Confirm, d.Confirm)
	fill(&m.Banned, d.Banned)
	fill(&m.Left, d.Left)
	fill(&m.Error, d.Error)
	fill(&m.PublishFailed, d.PublishFailed)
	fill(&m.TooLong, d.TooLong)
	fill(&m.Aborted, d.Aborted)
	fill(&m.Success, d.Success)
	fill(&m.AuthorPrefix, d.AuthorPrefix)
	fill(&m.LinkLabel, d.LinkLabel)
	fill(&m.BtnPreview, d.BtnPreview)
	fill(&m.BtnPublish, d.BtnPublish)
	fill(&m.BtnDiscard, d.BtnDiscard)
	return m
}

// Attribution renders the trailing author line in HTML: a mention for users
// with a username, otherwise a profile link by id.
func (m Messages) Attribution(u User) string {
	prefix := format.EscapeHTML(m.AuthorPrefix)
	if u.Username != "" {
		return prefix + format.Mention(u.Username)
	}
	return prefix + format.UserLink(u.ID, m.LinkLabel)
}

// ComposePost joins an already escaped caption and the attribution line.
func ComposePost(caption, attribution string) string {
	if caption == "" {
		return attribution
	}
	return caption + "\n\n" + attribution
}
