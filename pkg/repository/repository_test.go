package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"habitquest/pkg/db/option"
	"habitquest/pkg/repository"
	"habitquest/services/testutil"
)

type item struct {
	ID   string `gorm:"primaryKey"`
	Kind string
	Rank int
}

func TestStore(t *testing.T) {
	db := testutil.NewTestDB(t, &item{})
	repo := repository.ProvideStore[item](db)
	ctx := context.Background()

	require.NoError(t, repo.BatchCreate(ctx, nil))
	require.NoError(t, repo.BatchCreate(ctx, []*item{
		{ID: "a", Kind: "x", Rank: 2},
		{ID: "b", Kind: "x", Rank: 1},
		{ID: "c", Kind: "y", Rank: 3},
	}))

	missing, err := repo.FindOne(ctx, &item{ID: "zz"})
	require.NoError(t, err)
	require.Nil(t, missing)

	list, err := repo.Find(ctx, &item{Kind: "x"}, option.WithSortBy(option.QuerySortBy{SortBy: "rank", OrderBy: "asc"}))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].ID)

	require.NoError(t, repo.Update(ctx, "a", map[string]any{"rank": 9}))
	got, err := repo.FindOne(ctx, &item{ID: "a"}, option.WithLockingUpdate())
	require.NoError(t, err)
	require.Equal(t, 9, got.Rank)

	n, err := repo.Count(ctx, &item{Kind: "x"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTrx(tx).Create(ctx, &item{ID: "d", Kind: "y"}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	n, err = repo.Count(ctx, &item{Kind: "y"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
