package notificator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sent struct {
	chatID int64
	text   string
}

type fakeSender struct {
	msgs []sent
	fail map[int64]bool
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	if f.fail[chatID] {
		return errors.New("forbidden: bot was blocked by the user")
	}
	f.msgs = append(f.msgs, sent{chatID, text})
	return nil
}

func TestNotify_AllAdmins(t *testing.T) {
	s := &fakeSender{}
	svc := NewService(NewInfra(s, []int64{1, 2}), zap.NewNop())

	require.NoError(t, svc.Notify(context.Background(), errors.New("quota"), "run=abc stage=advised"))

	require.Len(t, s.msgs, 2)
	assert.Equal(t, int64(1), s.msgs[0].chatID)
	assert.Contains(t, s.msgs[0].text, "quota")
	assert.Contains(t, s.msgs[1].text, "run=abc stage=advised")
}

func TestNotify_NoAdminsIsNoop(t *testing.T) {
	s := &fakeSender{}
	require.NoError(t, NewInfra(s, nil).Notify(context.Background(), errors.New("x"), ""))
	assert.Empty(t, s.msgs)
}

func TestNotify_PartialFailureStillSendsOthers(t *testing.T) {
	s := &fakeSender{fail: map[int64]bool{1: true}}
	svc := NewService(NewInfra(s, []int64{1, 2}), nil)

	err := svc.Notify(context.Background(), errors.New("x"), "")

	assert.Error(t, err)
	require.Len(t, s.msgs, 1)
	assert.Equal(t, int64(2), s.msgs[0].chatID)
}

func TestUserNotify(t *testing.T) {
	s := &fakeSender{fail: map[int64]bool{9: true}}
	svc := NewService(NewInfra(s, nil), nil)

	require.NoError(t, svc.UserNotify(context.Background(), 5, "hello"))
	assert.Error(t, svc.UserNotify(context.Background(), 9, "hello"))
	assert.Equal(t, []sent{{5, "hello"}}, s.msgs)
}
