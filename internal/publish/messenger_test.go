package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/m3rciful/postbot/core/telegram/sender"
	"github.com/m3rciful/postbot/internal/lifecycle"

	tele "gopkg.in/telebot.v4"
)

type call struct {
	method string
	to     string
	what   interface{}
	album  tele.Album
	opts   []interface{}
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeAPI) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	return &tele.Message{}, f.record(call{method: "send", to: to.Recipient(), what: what, opts: opts})
}

func (f *fakeAPI) SendAlbum(to tele.Recipient, a tele.Album, opts ...interface{}) ([]tele.Message, error) {
	return nil, f.record(call{method: "album", to: to.Recipient(), album: a, opts: opts})
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	id, chat := msg.MessageSig()
	return &tele.Message{}, f.record(call{method: "edit", to: fmt.Sprintf("%d/%s", chat, id), what: what})
}

func (f *fakeAPI) Respond(c *tele.Callback, _ ...*tele.CallbackResponse) error {
	return f.record(call{method: "respond", what: c.ID})
}

func (f *fakeAPI) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestSendTextUsesDialectAndKeyboard(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)
	err := m.SendText(context.Background(), lifecycle.UserChat(5), "<b>x</b>", lifecycle.DialectHTML, []lifecycle.Button{
		{Action: lifecycle.ActionPublish, Label: "Publish"},
		{Action: lifecycle.ActionDiscard, Label: "Discard"},
	})
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	c := api.snapshot()[0]
	if c.to != "5" || c.what != "<b>x</b>" {
		t.Fatalf("unexpected call %+v", c)
	}
	opts := c.opts[0].(*tele.SendOptions)
	if opts.ParseMode != tele.ModeHTML {
		t.Fatalf("parse mode = %q", opts.ParseMode)
	}
	rows := opts.ReplyMarkup.InlineKeyboard
	if len(rows) != 1 || len(rows[0]) != 2 || rows[0][0].Unique != "publish" || rows[0][1].Unique != "discard" {
		t.Fatalf("unexpected keyboard %+v", rows)
	}
}

func TestSendMediaGroupSinglePhoto(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)
	if err := m.SendMediaGroup(context.Background(), "@market", "cap", []string{"p1"}, lifecycle.DialectHTML); err != nil {
		t.Fatalf("SendMediaGroup: %v", err)
	}
	c := api.snapshot()[0]
	photo, ok := c.what.(*tele.Photo)
	if c.method != "send" || !ok || photo.FileID != "p1" || photo.Caption != "cap" || c.to != "@market" {
		t.Fatalf("unexpected call %+v", c)
	}
}

func TestSendMediaGroupKeepsOrder(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)
	if err := m.SendMediaGroup(context.Background(), "@market", "cap", []string{"p1", "p2"}, lifecycle.DialectHTML); err != nil {
		t.Fatalf("SendMediaGroup: %v", err)
	}
	c := api.snapshot()[0]
	if c.method != "album" || len(c.album) != 2 {
		t.Fatalf("unexpected call %+v", c)
	}
	first, second := c.album[0].(*tele.Photo), c.album[1].(*tele.Photo)
	if first.FileID != "p1" || second.FileID != "p2" || first.Caption != "cap" || second.Caption != "" {
		t.Fatalf("album = %+v, %+v", first, second)
	}
}

func TestAlbumsChunkAtTen(t *testing.T) {
	media := make([]string, 23)
	for i := range media {
		media[i] = fmt.Sprint("p", i)
	}
	albums := Albums(media, "cap")
	if len(albums) != 3 || len(albums[0]) != 10 || len(albums[2]) != 3 {
		t.Fatalf("unexpected chunking %d", len(albums))
	}
	if albums[1][0].(*tele.Photo).Caption != "" || albums[1][0].(*tele.Photo).FileID != "p10" {
		t.Fatal("caption must only be on the very first photo")
	}
}

func TestEditAndAnswer(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)
	ctx := context.Background()
	if err := m.EditMessageText(ctx, lifecycle.MessageRef{ChatID: 5, MessageID: 77}, "done"); err != nil {
		t.Fatalf("EditMessageText: %v", err)
	}
	if err := m.AnswerAction(ctx, "cb-1"); err != nil {
		t.Fatalf("AnswerAction: %v", err)
	}
	calls := api.snapshot()
	if calls[0].to != "5/77" || calls[0].what != "done" {
		t.Fatalf("edit = %+v", calls[0])
	}
	if calls[1].method != "respond" || calls[1].what != "cb-1" {
		t.Fatalf("respond = %+v", calls[1])
	}
}

func TestSendErrorsPropagate(t *testing.T) {
	api := &fakeAPI{err: errors.New("Forbidden: bot was blocked by the user (403)")}
	m := NewMessenger(api)
	if err := m.SendText(context.Background(), "1", "x", lifecycle.DialectPlain, nil); !errors.Is(err, api.err) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeferredRunsThroughQueue(t *testing.T) {
	api := &fakeAPI{}
	queue := sender.NewDispatcher(sender.Options{Workers: 1})
	d := NewDeferred(NewMessenger(api), queue)
	if err := d.SendText(context.Background(), "9", "oops", lifecycle.DialectPlain, nil); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := d.AnswerAction(context.Background(), "cb"); err != nil {
		t.Fatalf("AnswerAction: %v", err)
	}
	queue.Close()
	if got := len(api.snapshot()); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestDeferredFallsBackWhenClosed(t *testing.T) {
	api := &fakeAPI{}
	queue := sender.NewDispatcher(sender.Options{})
	queue.Close()
	d := NewDeferred(NewMessenger(api), queue)
	if err := d.SendText(context.Background(), "9", "oops", lifecycle.DialectPlain, nil); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got := len(api.snapshot()); got != 1 {
		t.Fatalf("direct send expected, calls = %d", got)
	}
}
