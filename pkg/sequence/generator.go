package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"habitquest/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

type Generator interface {
	NextReferralCode(ctx context.Context, prefix string) (string, error)
}

type RedisGenerator struct {
	rdb redis.Cmdable
	now func() time.Time
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
		now: time.Now,
	}
}

// NextReferralCode returns PREFIX + MMDD + base36 daily sequence + random suffix, e.g. "ALI1019001K9Q".
func (g *RedisGenerator) NextReferralCode(ctx context.Context, prefix string) (string, error) {
	now := g.now().UTC()
	key := rediskey.BuildSequenceKey("referral", now.Format("060102"))

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		endOfDay := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		_ = g.rdb.ExpireAt(ctx, key, endOfDay).Err()
	}

	encodedSeq := strings.ToUpper(fmt.Sprintf("%03s", strconv.FormatInt(seq, 36)))

	randSuffix, err := RandomAlphaNumeric(3)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%s%s%s", strings.ToUpper(prefix), now.Format("0102"), encodedSeq, randSuffix), nil
}

// RandomAlphaNumeric draws n characters from an alphabet without look-alike glyphs.
func RandomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}
