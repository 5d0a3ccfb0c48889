package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StartsAnonymous(t *testing.T) {
	now := time.Unix(100, 0)
	s := New(now)

	uid, ok := s.Identity()
	assert.False(t, ok)
	assert.Empty(t, uid)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, now, s.CreatedAt())
	assert.Equal(t, now, s.LastSeen())
	assert.NotEqual(t, s.ID(), New(now).ID())
}

func TestSession_NotifiesOnlyOnTransitions(t *testing.T) {
	s := New(time.Now())
	var got []string
	unsub := s.Subscribe(func(uid string) { got = append(got, uid) })

	s.SetIdentity("alice")
	s.SetIdentity(" alice ")
	s.SetIdentity("bob")
	s.ClearIdentity()
	s.ClearIdentity()

	assert.Equal(t, []string{"alice", "bob", ""}, got)

	unsub()
	unsub()
	s.SetIdentity("carol")
	assert.Len(t, got, 3)

	uid, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, "carol", uid)
}

func TestSession_SubscribersRunInOrder(t *testing.T) {
	s := New(time.Now())
	var order []int
	s.Subscribe(func(string) { order = append(order, 1) })
	unsub2 := s.Subscribe(func(string) { order = append(order, 2) })
	s.Subscribe(func(string) { order = append(order, 3) })
	s.Subscribe(nil)

	s.SetIdentity("x")
	unsub2()
	s.SetIdentity("y")

	assert.Equal(t, []int{1, 2, 3, 1, 3}, order)
}

func TestSession_Touch(t *testing.T) {
	start := time.Unix(100, 0)
	s := New(start)
	s.Touch(start.Add(time.Minute))
	assert.Equal(t, start.Add(time.Minute), s.LastSeen())
}
