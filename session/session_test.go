package session

import (
	"errors"
	"testing"
	"time"

	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerFiresOnceInDeadlineOrder(t *testing.T) {
	s := NewScheduler()
	var order []string

	s.At(3*time.Second, func() { order = append(order, "c") })
	s.At(1*time.Second, func() { order = append(order, "a") })
	s.At(2*time.Second, func() { order = append(order, "b") })

	assert.Equal(t, 0, s.Advance(500*time.Millisecond))
	assert.Equal(t, 2, s.Advance(2*time.Second))
	assert.Equal(t, []string{"a", "b"}, order)

	assert.Equal(t, 1, s.Advance(10*time.Second))
	assert.Equal(t, 0, s.Advance(20*time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerSameDeadlineKeepsInsertionOrder(t *testing.T) {
	s := NewScheduler()
	var order []int
	for i := 0; i < 5; i++ {
		s.At(time.Second, func() { order = append(order, i) })
	}
	s.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	fired := false
	id := s.After(time.Second, func() { fired = true })

	assert.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id))
	s.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestSchedulerCallbackSchedulesDueEntry(t *testing.T) {
	s := NewScheduler()
	count := 0
	s.At(time.Second, func() {
		count++
		s.At(time.Second, func() { count++ })
	})
	s.Advance(time.Second)
	assert.Equal(t, 2, count)
}

func TestSchedulerClockNeverGoesBack(t *testing.T) {
	s := NewScheduler()
	s.Advance(5 * time.Second)
	s.Advance(2 * time.Second)
	assert.Equal(t, 5*time.Second, s.Now())
}

type recorder struct {
	sent []any
	err  error
}

func (r *recorder) SendMessage(msg any) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestSessionTickRequiresStart(t *testing.T) {
	sess := New(netconfig.RoleParticipant, nil, zerolog.Nop())

	fired := false
	sess.Scheduler().After(time.Second, func() { fired = true })

	sess.Tick(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, time.Duration(0), sess.Now())

	sess.Start()
	sess.Tick(time.Second)
	assert.True(t, fired)
	assert.Equal(t, time.Second, sess.Now())
}

func TestSessionRequest(t *testing.T) {
	rec := &recorder{}
	sess := New(netconfig.RoleParticipant, rec, zerolog.Nop())
	sess.Start()

	req := messages.DespawnPickupRequest{PlayerID: 1, PickupID: 2}
	require.NoError(t, sess.Request(req))
	assert.Equal(t, []any{req}, rec.sent)

	rec.err = errors.New("broken pipe")
	assert.Error(t, sess.Request(req))
}

func TestSessionCloseCancelsTimersAndDropsRequests(t *testing.T) {
	rec := &recorder{}
	sess := New(netconfig.RoleParticipant, rec, zerolog.Nop())
	sess.Start()

	fired := false
	sess.Scheduler().After(time.Second, func() { fired = true })
	sess.Close()
	sess.Tick(5 * time.Second)

	assert.False(t, fired)
	assert.False(t, sess.Started())
	assert.ErrorIs(t, sess.Request(messages.PowerupStatusRequest{PlayerID: 1}), ErrClosed)
	assert.Empty(t, rec.sent)
}

func TestSessionWithoutSenderDropsQuietly(t *testing.T) {
	sess := New(netconfig.RoleAuthority, nil, zerolog.Nop())
	sess.Start()
	assert.NoError(t, sess.Request(messages.IndicatorSyncRequest{PlayerID: 1}))
	assert.True(t, sess.IsAuthority())
}
