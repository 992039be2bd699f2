package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
)

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// DefaultPrefix namespaces keys when NewStore is given an empty prefix.
const DefaultPrefix = "authcore:rt"

const minTTL = time.Millisecond

// KEYS[1] token key, KEYS[2] identity index. ARGV[1] record, ARGV[2] ttl ms,
// ARGV[3] expiry unix ms, ARGV[4] digest, ARGV[5] now unix ms.
const insertScript = `
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[2], "-inf", ARGV[5])
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[4])
if redis.call("PTTL", KEYS[2]) < tonumber(ARGV[2]) then
  redis.call("PEXPIRE", KEYS[2], ARGV[2])
end
return 1
`

var insertLua = redis.NewScript(insertScript)

// KEYS[1] token key. ARGV[1] identity index prefix, ARGV[2] digest.
const consumeScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return false
end
redis.call("DEL", KEYS[1])
local n = string.byte(data, 2)
if n and n > 0 then
  redis.call("ZREM", ARGV[1] .. string.sub(data, 3, 2 + n), ARGV[2])
end
return data
`

var consumeLua = redis.NewScript(consumeScript)

// KEYS[1] identity index. ARGV[1] token key prefix.
const revokeScript = `
local digests = redis.call("ZRANGE", KEYS[1], 0, -1)
for _, digest in ipairs(digests) do
  redis.call("DEL", ARGV[1] .. digest)
end
redis.call("DEL", KEYS[1])
return #digests
`

var revokeLua = redis.NewScript(revokeScript)

// Store is a Redis-backed authcore.RefreshStore. The revoke script builds token keys
// at run time, so on Redis Cluster all of an identity's keys must share a slot; use
// a hash-tagged prefix there.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ authcore.RefreshStore = (*Store)(nil)

// NewStore returns a Store on client. now defaults to time.Now.
func NewStore(client redis.UniversalClient, prefix string, now func() time.Time) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Store{redis: client, prefix: prefix, now: now}
}

func (s *Store) tokenPrefix() string { return s.prefix + ":t:" }

func (s *Store) identityPrefix() string { return s.prefix + ":i:" }

func (s *Store) tokenKey(digest string) string { return s.tokenPrefix() + digest }

func (s *Store) identityKey(identityID string) string { return s.identityPrefix() + identityID }

// InsertRefreshToken stores record until its expiry and indexes it under its identity.
// The index is a sorted set scored by expiry; its own TTL tracks the longest-lived
// token, and entries already past expiry are pruned on every insert.
func (s *Store) InsertRefreshToken(ctx context.Context, record authcore.RefreshRecord) error {
	data, err := Encode(record)
	if err != nil {
		return err
	}

	now := s.now()
	ttl := record.ExpiresAt.Sub(now)
	if ttl < minTTL {
		ttl = minTTL
	}

	keys := []string{s.tokenKey(record.Digest), s.identityKey(record.IdentityID)}
	err = insertLua.Run(ctx, s.redis, keys,
		data,
		ttl.Milliseconds(),
		now.Add(ttl).UnixMilli(),
		record.Digest,
		now.UnixMilli(),
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// ConsumeRefreshToken atomically reads and deletes the record for digest.
func (s *Store) ConsumeRefreshToken(ctx context.Context, digest string) (authcore.RefreshRecord, error) {
	res, err := consumeLua.Run(ctx, s.redis, []string{s.tokenKey(digest)}, s.identityPrefix(), digest).Text()
	if errors.Is(err, redis.Nil) {
		return authcore.RefreshRecord{}, authcore.ErrInvalidRefreshToken
	}
	if err != nil {
		return authcore.RefreshRecord{}, unavailable(err)
	}
	return Decode(digest, []byte(res))
}

// RevokeRefreshTokens deletes every token indexed under identityID.
func (s *Store) RevokeRefreshTokens(ctx context.Context, identityID string) error {
	if err := revokeLua.Run(ctx, s.redis, []string{s.identityKey(identityID)}, s.tokenPrefix()).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// ActiveCount prunes expired digests from identityID's index and returns how many
// remain.
func (s *Store) ActiveCount(ctx context.Context, identityID string) (int, error) {
	key := s.identityKey(identityID)
	var card *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(s.now().UnixMilli(), 10))
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return int(card.Val()), nil
}

func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
