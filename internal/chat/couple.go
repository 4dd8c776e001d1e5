package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	CouplePrefix = "couple:"
	MaxMembers   = 2
)

// ErrCoupleFull is returned when a third user tries to join a couple.
var ErrCoupleFull = errors.New("chat: couple already has two members")

// Couple is the pair of users sharing one timeline.
type Couple struct {
	ID      string
	Members []string
}

// Partner returns the other member's user ID, or "" if userID is not a
// member or the partner has not joined yet.
func (c *Couple) Partner(userID string) string {
	if !c.IsMember(userID) {
		return ""
	}
	for _, m := range c.Members {
		if m != userID {
			return m
		}
	}
	return ""
}

// IsMember checks if userID belongs to this couple.
func (c *Couple) IsMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CoupleStore manages couple membership in Redis. A couple is created by
// its first member and closed to new members once two have joined.
type CoupleStore struct {
	rdb        *redis.Client
	joinScript *redis.Script
}

// NewCoupleStore creates a membership store backed by Redis.
func NewCoupleStore(rdb *redis.Client) *CoupleStore {
	return &CoupleStore{
		rdb:        rdb,
		joinScript: redis.NewScript(joinCoupleLua),
	}
}

// Join atomically adds userID to the couple. Rejoining is a no-op; a third
// distinct user gets ErrCoupleFull.
func (s *CoupleStore) Join(ctx context.Context, coupleID, userID string) (*Couple, error) {
	key := CouplePrefix + coupleID
	result, err := s.joinScript.Run(ctx, s.rdb, []string{key}, userID, MaxMembers).Int()
	if err != nil {
		return nil, fmt.Errorf("chat: join couple: %w", err)
	}
	if result < 0 {
		return nil, ErrCoupleFull
	}
	return s.Get(ctx, coupleID)
}

// Get retrieves a couple. Returns nil if it has no members.
func (s *CoupleStore) Get(ctx context.Context, coupleID string) (*Couple, error) {
	members, err := s.rdb.SMembers(ctx, CouplePrefix+coupleID).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: get couple: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	sort.Strings(members)
	return &Couple{ID: coupleID, Members: members}, nil
}

// Delete removes a couple's membership record.
func (s *CoupleStore) Delete(ctx context.Context, coupleID string) error {
	return s.rdb.Del(ctx, CouplePrefix+coupleID).Err()
}

// joinCoupleLua adds a member unless the set is already at capacity.
//
//	1 = already a member
//	0 = added
//	-1 = couple is full
const joinCoupleLua = `
local key = KEYS[1]
local user_id = ARGV[1]
local max = tonumber(ARGV[2])

if redis.call('SISMEMBER', key, user_id) == 1 then return 1 end
if redis.call('SCARD', key) >= max then return -1 end

redis.call('SADD', key, user_id)
return 0
`
