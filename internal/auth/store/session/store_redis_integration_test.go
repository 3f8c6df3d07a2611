//go:build integration

package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"valid8/internal/auth/models"
	"valid8/internal/auth/store/session"
	id "valid8/pkg/domain"
	"valid8/pkg/platform/sentinel"
	"valid8/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = session.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func newSession(userID id.UserID, token string) *models.Session {
	return &models.Session{
		ID:           id.NewSessionID(),
		UserID:       userID,
		Token:        token,
		MFAPending:   true,
		Device:       "Firefox on Linux",
		IPAddress:    "198.51.100.4",
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}
}

// TestRoundTrip verifies a session survives serialization with all fields.
func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	sess := newSession(id.NewUserID(), "tok-roundtrip")
	s.Require().NoError(s.store.Create(ctx, sess))

	read, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, read.ID)
	s.Equal(sess.UserID, read.UserID)
	s.Equal(sess.Token, read.Token)
	s.Equal(sess.MFAPending, read.MFAPending)
	s.Equal(sess.Device, read.Device)
	s.Equal(sess.IPAddress, read.IPAddress)
	s.Equal(sess.CreatedAt.UnixNano(), read.CreatedAt.UnixNano())
	s.Equal(sess.LastActivity.UnixNano(), read.LastActivity.UnixNano())

	byToken, err := s.store.FindByToken(ctx, "tok-roundtrip")
	s.Require().NoError(err)
	s.Equal(sess.ID, byToken.ID)
}

// TestUpdatePreservesTTL verifies updates keep the remaining session expiry.
func (s *RedisStoreSuite) TestUpdatePreservesTTL() {
	ctx := context.Background()
	sess := newSession(id.NewUserID(), "tok-ttl")
	s.Require().NoError(s.store.Create(ctx, sess))

	key := "session:" + sess.ID.String()
	initialTTL, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)
	s.Greater(initialTTL, time.Duration(0))

	time.Sleep(100 * time.Millisecond)

	sess.MFAPending = false
	sess.Authenticated = true
	s.Require().NoError(s.store.Update(ctx, sess))

	newTTL, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)
	s.Greater(newTTL, time.Duration(0))
	s.InDelta(initialTTL.Seconds(), newTTL.Seconds(), 5.0)

	read, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.True(read.Authenticated)
}

// TestDeleteRemovesAllKeys verifies delete clears the token index and the
// user set membership alongside the session key.
func (s *RedisStoreSuite) TestDeleteRemovesAllKeys() {
	ctx := context.Background()
	userID := id.NewUserID()
	sess := newSession(userID, "tok-delete")
	s.Require().NoError(s.store.Create(ctx, sess))

	s.Require().NoError(s.store.Delete(ctx, sess.ID))

	_, err := s.store.FindByID(ctx, sess.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByToken(ctx, "tok-delete")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	members, err := s.redis.Client.SMembers(ctx, "user_sessions:"+userID.String()).Result()
	s.Require().NoError(err)
	s.Empty(members)
}

// TestConcurrentCreates verifies independent creates all land in the user set.
func (s *RedisStoreSuite) TestConcurrentCreates() {
	ctx := context.Background()
	userID := id.NewUserID()

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sess := newSession(userID, "")
			if err := s.store.Create(ctx, sess); err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(goroutines), successCount.Load())

	sessions, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Len(sessions, goroutines)
}

// TestDeleteByUser verifies bulk revocation leaves other users untouched.
func (s *RedisStoreSuite) TestDeleteByUser() {
	ctx := context.Background()
	userID := id.NewUserID()
	otherID := id.NewUserID()

	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Create(ctx, newSession(userID, "")))
	}
	kept := newSession(otherID, "tok-kept")
	s.Require().NoError(s.store.Create(ctx, kept))

	s.Require().NoError(s.store.DeleteByUser(ctx, userID))

	sessions, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Empty(sessions)

	read, err := s.store.FindByID(ctx, kept.ID)
	s.Require().NoError(err)
	s.Equal(kept.ID, read.ID)

	err = s.store.DeleteByUser(ctx, userID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
