package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"valid8/internal/auth/models"
	id "valid8/pkg/domain"
	"valid8/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "session:"
	tokenKeyPrefix   = "session_token:"
	userKeyPrefix    = "user_sessions:"

	// DefaultSessionTTL bounds how long an idle session survives in Redis.
	DefaultSessionTTL = 24 * time.Hour
)

// RedisStore persists sessions in Redis with a per-session TTL. A token
// index key and a per-user set are written alongside each session so token
// lookup and bulk revocation stay O(1) and O(n) respectively.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: DefaultSessionTTL}
}

type redisSession struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Token         string `json:"token"`
	MFAPending    bool   `json:"mfa_pending"`
	Authenticated bool   `json:"authenticated"`
	Device        string `json:"device"`
	IPAddress     string `json:"ip_address"`
	CreatedAt     int64  `json:"created_at"`
	LastActivity  int64  `json:"last_activity"`
}

func toRedis(session *models.Session) redisSession {
	return redisSession{
		ID:            session.ID.String(),
		UserID:        session.UserID.String(),
		Token:         session.Token,
		MFAPending:    session.MFAPending,
		Authenticated: session.Authenticated,
		Device:        session.Device,
		IPAddress:     session.IPAddress,
		CreatedAt:     session.CreatedAt.UnixNano(),
		LastActivity:  session.LastActivity.UnixNano(),
	}
}

func fromRedis(rs redisSession) (*models.Session, error) {
	sessionID, err := uuid.Parse(rs.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(rs.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &models.Session{
		ID:            id.SessionID(sessionID),
		UserID:        id.UserID(userID),
		Token:         rs.Token,
		MFAPending:    rs.MFAPending,
		Authenticated: rs.Authenticated,
		Device:        rs.Device,
		IPAddress:     rs.IPAddress,
		CreatedAt:     time.Unix(0, rs.CreatedAt),
		LastActivity:  time.Unix(0, rs.LastActivity),
	}, nil
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(toRedis(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID.String(), payload, s.ttl)
	if session.Token != "" {
		pipe.Set(ctx, tokenKeyPrefix+session.Token, session.ID.String(), s.ttl)
	}
	pipe.SAdd(ctx, userKeyPrefix+session.UserID.String(), session.ID.String())
	pipe.Expire(ctx, userKeyPrefix+session.UserID.String(), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	return s.get(ctx, sessionKeyPrefix+sessionID.String())
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	sessionID, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.get(ctx, sessionKeyPrefix+sessionID)
}

func (s *RedisStore) get(ctx context.Context, key string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rs redisSession
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return fromRedis(rs)
}

// Update rewrites the session while preserving the remaining TTL of the key.
func (s *RedisStore) Update(ctx context.Context, session *models.Session) error {
	key := sessionKeyPrefix + session.ID.String()
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if ttl < 0 {
		return sentinel.ErrNotFound
	}

	payload, err := json.Marshal(toRedis(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, payload, ttl)
	if session.Token != "" {
		pipe.Set(ctx, tokenKeyPrefix+session.Token, session.ID.String(), ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID.String())
	if session.Token != "" {
		pipe.Del(ctx, tokenKeyPrefix+session.Token)
	}
	pipe.SRem(ctx, userKeyPrefix+session.UserID.String(), sessionID.String())
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	members, err := s.client.SMembers(ctx, userKeyPrefix+userID.String()).Result()
	if err != nil {
		return nil, err
	}
	var out []*models.Session
	for _, member := range members {
		session, err := s.get(ctx, sessionKeyPrefix+member)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Expired session still referenced by the set; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID id.UserID) error {
	sessions, err := s.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return sentinel.ErrNotFound
	}
	pipe := s.client.TxPipeline()
	for _, session := range sessions {
		pipe.Del(ctx, sessionKeyPrefix+session.ID.String())
		if session.Token != "" {
			pipe.Del(ctx, tokenKeyPrefix+session.Token)
		}
	}
	pipe.Del(ctx, userKeyPrefix+userID.String())
	_, err = pipe.Exec(ctx)
	return err
}
