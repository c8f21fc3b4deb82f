package sequence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"habitquest/pkg/rediskey"
)

func TestNextReferralCode(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Now().UTC()
	mr.SetTime(now)
	g := &RedisGenerator{rdb: rdb, now: func() time.Time { return now }}
	ctx := context.Background()

	first, err := g.NextReferralCode(ctx, "ali")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^ALI`+now.Format("0102")+`001[A-Z2-9]{3}$`), first)

	second, err := g.NextReferralCode(ctx, "ALI")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^ALI`+now.Format("0102")+`002[A-Z2-9]{3}$`), second)

	key := rediskey.BuildSequenceKey("referral", now.Format("060102"))
	ttl := mr.TTL(key)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, 24*time.Hour)
}

func TestRandomAlphaNumeric(t *testing.T) {
	s, err := RandomAlphaNumeric(12)
	require.NoError(t, err)
	require.Len(t, s, 12)
	require.NotContains(t, s, "O")
	require.NotContains(t, s, "0")
	require.NotContains(t, s, "I")
	require.NotContains(t, s, "1")
}
