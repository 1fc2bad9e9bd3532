package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/kilobot/core/telegram/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type sent struct {
	userID int64
	text   string
	page   *page.Page
}

type fakeDeliverer struct {
	sent []sent
	err  error
}

func (f *fakeDeliverer) SendText(_ context.Context, userID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{userID: userID, text: text})
	return nil
}

func (f *fakeDeliverer) SendPage(_ context.Context, userID int64, p *page.Page) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{userID: userID, page: p})
	return nil
}

func messageContext(userID int64) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID: 7,
		Message: &tele.Message{
			Text:   "/custom",
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	})
}

func TestChainFirstMessageWins(t *testing.T) {
	d := &fakeDeliverer{}
	empty := Func(func(error) (Message, bool) { return Message{}, false })
	ch := NewChain("cmd.custom", d, empty, Text("X"), Text("never"))

	err := ch.Handle(context.Background(), 42, errors.New("boom"))
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, sent{userID: 42, text: "X"}, d.sent[0])
}

func TestChainUnhandledReturnsFault(t *testing.T) {
	d := &fakeDeliverer{}
	fault := errors.New("boom")
	ch := NewChain("cmd.custom", d, Silent{}, nil, Is{Target: context.Canceled, Message: Message{Text: "cancelled"}})

	err := ch.Handle(context.Background(), 42, fault)
	assert.Same(t, fault, err)
	assert.Empty(t, d.sent)
}

func TestChainDeliveryFailure(t *testing.T) {
	delivery := errors.New("network down")
	d := &fakeDeliverer{err: delivery}
	ch := NewChain("cmd.custom", d, Text("X"))

	err := ch.Handle(context.Background(), 42, errors.New("boom"))
	require.Error(t, err)
	assert.ErrorIs(t, err, delivery)

	err = NewChain("cmd.custom", nil, Text("X")).Handle(context.Background(), 42, errors.New("boom"))
	assert.ErrorIs(t, err, ErrNoDeliverer)
}

type quotaError struct{ left int }

func (e *quotaError) Error() string { return "quota" }

func TestPolicyVariants(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), &quotaError{left: 3})

	as := As[*quotaError]{Message: func(e *quotaError) Message {
		if e.left > 0 {
			return Message{Text: "try later"}
		}
		return Message{}
	}}
	m, ok := as.ProduceMessage(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "try later", m.Text)

	_, ok = as.ProduceMessage(errors.New("other"))
	assert.False(t, ok)

	is := Is{Target: context.DeadlineExceeded, Message: Message{Text: "slow"}}
	m, ok = is.ProduceMessage(wrappedDeadline())
	assert.True(t, ok)
	assert.Equal(t, "slow", m.Text)

	_, ok = Text("").ProduceMessage(errors.New("x"))
	assert.False(t, ok)

	p := page.Simple("oops")
	m, ok = PageOf{Page: p}.ProduceMessage(errors.New("x"))
	assert.True(t, ok)
	assert.Same(t, p, m.Page)

	var nilFunc Func
	_, ok = nilFunc.ProduceMessage(errors.New("x"))
	assert.False(t, ok)
}

func wrappedDeadline() error {
	return errors.Join(errors.New("fetch"), context.DeadlineExceeded)
}

func TestPolicyNames(t *testing.T) {
	assert.Equal(t, "recovery.Text", Name(Text("x")))
	assert.Equal(t, "main", Name(Named("main", Text("x"))))
	assert.Equal(t, "none", Name(nil))
}

func TestWrapRecoversPanics(t *testing.T) {
	d := &fakeDeliverer{}
	ch := NewChain("cmd.panic", d, As[*PanicError]{Message: func(*PanicError) Message {
		return Message{Text: "Something went wrong"}
	}})

	h := ch.Wrap(func(tele.Context) error { panic("kaboom") })
	require.NoError(t, h(messageContext(5)))
	require.Len(t, d.sent, 1)
	assert.Equal(t, int64(5), d.sent[0].userID)

	unhandled := NewChain("cmd.panic", d).Wrap(func(tele.Context) error { panic(errors.New("kaboom")) })
	err := unhandled(messageContext(5))
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "PANIC", pe.Code())
	assert.EqualError(t, errors.Unwrap(pe), "kaboom")
}

func TestWrapPassesThroughSuccess(t *testing.T) {
	d := &fakeDeliverer{}
	called := false
	h := NewChain("cmd.ok", d, Text("X")).Wrap(func(tele.Context) error {
		called = true
		return nil
	})
	require.NoError(t, h(messageContext(1)))
	assert.True(t, called)
	assert.Empty(t, d.sent)
}

func TestWrapHandlesReturnedErrorWithPage(t *testing.T) {
	d := &fakeDeliverer{}
	p := page.Simple("Custom error")
	h := NewChain("cmd.custom", d, PageOf{Page: p}, Text("generic")).Wrap(func(tele.Context) error {
		return errors.New("custom")
	})
	require.NoError(t, h(messageContext(9)))
	require.Len(t, d.sent, 1)
	assert.Same(t, p, d.sent[0].page)
	assert.Equal(t, int64(9), Recipient(messageContext(9)))
}
