package leaderboard

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBoard(t *testing.T) *Board {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewBoard(Params{Redis: rdb})
}

func TestBoardRanksByPoints(t *testing.T) {
	b := newTestBoard(t)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, "c1", "alice", 10))
	require.NoError(t, b.Add(ctx, "c1", "bob", 15))
	require.NoError(t, b.Add(ctx, "c1", "alice", 12))
	require.NoError(t, b.Add(ctx, "c2", "carol", 100))

	top, err := b.Top(ctx, "c1", 10)
	require.NoError(t, err)
	require.Equal(t, []Standing{
		{StudentID: "alice", Points: 22, Position: 1},
		{StudentID: "bob", Points: 15, Position: 2},
	}, top)

	top, err = b.Top(ctx, "c1", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	pos, err := b.Position(ctx, "c1", "bob")
	require.NoError(t, err)
	require.Equal(t, int64(2), pos.Position)

	missing, err := b.Position(ctx, "c1", "carol")
	require.NoError(t, err)
	require.Nil(t, missing)
}
