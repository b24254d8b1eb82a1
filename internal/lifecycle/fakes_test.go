package lifecycle

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/m3rciful/postbot/internal/staging"
)

const channel Chat = "@market"

type sent struct {
	kind    string // text, group, edit, answer
	to      Chat
	text    string
	media   []string
	dialect Dialect
	buttons []Button
	ref     MessageRef
}

type fakeMessenger struct {
	mu         sync.Mutex
	calls      []sent
	failTo     Chat
	failEdit   error
	failAlways error
	panicOn    string
}

func (f *fakeMessenger) push(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == s.kind {
		panic("messenger exploded")
	}
	if f.failAlways != nil {
		return f.failAlways
	}
	if f.failTo != "" && s.to == f.failTo {
		return errors.New("Bad Request: chat not found (400)")
	}
	if s.kind == "edit" && f.failEdit != nil {
		return f.failEdit
	}
	f.calls = append(f.calls, s)
	return nil
}

func (f *fakeMessenger) SendText(_ context.Context, to Chat, text string, d Dialect, b []Button) error {
	return f.push(sent{kind: "text", to: to, text: text, dialect: d, buttons: b})
}

func (f *fakeMessenger) SendMediaGroup(_ context.Context, to Chat, caption string, media []string, d Dialect) error {
	return f.push(sent{kind: "group", to: to, text: caption, media: slices.Clone(media), dialect: d})
}

func (f *fakeMessenger) EditMessageText(_ context.Context, ref MessageRef, text string) error {
	return f.push(sent{kind: "edit", text: text, ref: ref})
}

func (f *fakeMessenger) AnswerAction(_ context.Context, id string) error {
	return f.push(sent{kind: "answer", text: id})
}

func (f *fakeMessenger) to(c Chat) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.calls {
		if s.to == c {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeMessenger) kinds(kind string) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.calls {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

type fakeGate struct {
	mu     sync.Mutex
	status map[int64]Membership
	err    error
	calls  int
}

func (g *fakeGate) MembershipStatus(_ context.Context, userID int64) (Membership, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return 0, g.err
	}
	if s, ok := g.status[userID]; ok {
		return s, nil
	}
	return MembershipMember, nil
}

type fakeJournal struct {
	recs []PublicationRecord
	err  error
}

func (j *fakeJournal) RecordPublication(_ context.Context, rec PublicationRecord) error {
	if j.err != nil {
		return j.err
	}
	j.recs = append(j.recs, rec)
	return nil
}

type harness struct {
	ctl     *Controller
	store   *staging.Store
	out     *fakeMessenger
	gate    *fakeGate
	journal *fakeJournal
}

func newHarness(mod func(*Options)) *harness {
	h := &harness{
		store:   staging.NewStore(),
		out:     &fakeMessenger{},
		gate:    &fakeGate{status: map[int64]Membership{}},
		journal: &fakeJournal{},
	}
	opts := Options{
		Store:     h.store,
		Gate:      h.gate,
		Messenger: h.out,
		Journal:   h.journal,
		Channel:   channel,
		Now:       func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) },
	}
	if mod != nil {
		mod(&opts)
	}
	ctl, err := NewController(opts)
	if err != nil {
		panic(err)
	}
	h.ctl = ctl
	return h
}

func (h *harness) send(userID int64, text, photo string) error {
	return h.ctl.Dispatch(context.Background(), ContentMessage{
		User:    User{ID: userID, Username: "seller"},
		ChatID:  userID,
		Text:    text,
		PhotoID: photo,
	})
}

func (h *harness) press(userID int64, a Action) error {
	return h.ctl.Dispatch(context.Background(), ActionEvent{
		User:       User{ID: userID, Username: "seller"},
		ChatID:     userID,
		Action:     a,
		Message:    &MessageRef{ChatID: userID, MessageID: 77},
		CallbackID: "cb-1",
	})
}

// slowGate answers every member check after the next delay in line.
type slowGate struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (g *slowGate) MembershipStatus(ctx context.Context, _ int64) (Membership, error) {
	g.mu.Lock()
	var d time.Duration
	if len(g.delays) > 0 {
		d, g.delays = g.delays[0], g.delays[1:]
	}
	g.mu.Unlock()

	select {
	case <-time.After(d):
		return MembershipMember, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
