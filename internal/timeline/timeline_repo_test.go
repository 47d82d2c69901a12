package timeline

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/davidmz/freefeed-server-1/internal/common"
)

func setupTestDB(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewTimelineRepository(db), mock
}

func TestGetMembershipMergedScan(t *testing.T) {
	repo, mock := setupTestDB(t)

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bumped := created.Add(time.Hour)
	rows := sqlmock.NewRows([]string{"post_id", "created_at", "bumped_at"}).
		AddRow(int64(7), created, bumped).
		AddRow(int64(5), created.Add(-time.Minute), created)

	// One grouped query merges all sources: MIN over created, MAX over
	// bumped, one row per post, best bump first.
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT feed_entries.post_id AS post_id, MIN(feed_entries.created_at) AS created_at, MAX(feed_entries.bumped_at) AS bumped_at "+
			"FROM `feed_entries` JOIN posts ON posts.post_id = feed_entries.post_id "+
			"WHERE feed_entries.timeline_id IN (?,?) "+
			"GROUP BY `feed_entries`.`post_id` "+
			"ORDER BY MAX(feed_entries.bumped_at) DESC")).
		WithArgs(int64(10), int64(11)).
		WillReturnRows(rows)

	got, err := repo.GetMembership(context.Background(), []int64{10, 11}, MembershipFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(7), got[0].PostID)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.True(t, got[0].BumpedAt.Equal(bumped))
	assert.Equal(t, int64(5), got[1].PostID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMembershipPropagableOnlySources(t *testing.T) {
	t.Run("mixed with regular sources", func(t *testing.T) {
		repo, mock := setupTestDB(t)

		mock.ExpectQuery(regexp.QuoteMeta(
			"WHERE feed_entries.timeline_id IN (?) OR (feed_entries.timeline_id IN (?,?) AND posts.is_propagable = ?)")).
			WithArgs(int64(10), int64(20), int64(21), true).
			WillReturnRows(sqlmock.NewRows([]string{"post_id", "created_at", "bumped_at"}))

		_, err := repo.GetMembership(context.Background(), []int64{10}, MembershipFilter{
			PropagableOnlySources: []int64{20, 21},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("activity sources alone", func(t *testing.T) {
		repo, mock := setupTestDB(t)

		mock.ExpectQuery(regexp.QuoteMeta(
			"WHERE feed_entries.timeline_id IN (?,?) AND posts.is_propagable = ?")).
			WithArgs(int64(20), int64(21), true).
			WillReturnRows(sqlmock.NewRows([]string{"post_id", "created_at", "bumped_at"}))

		_, err := repo.GetMembership(context.Background(), nil, MembershipFilter{
			PropagableOnlySources: []int64{20, 21},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetMembershipHidesExclusion(t *testing.T) {
	repo, mock := setupTestDB(t)

	hides := int64(99)
	mock.ExpectQuery(regexp.QuoteMeta(
		"feed_entries.post_id NOT IN (SELECT post_id FROM `feed_entries` WHERE timeline_id = ?)")).
		WithArgs(int64(10), hides).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "created_at", "bumped_at"}))

	_, err := repo.GetMembership(context.Background(), []int64{10}, MembershipFilter{
		ExcludeTimelineID: &hides,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMembershipRequiredTimelines(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"feed_entries.post_id IN (SELECT post_id FROM `feed_entries` WHERE timeline_id IN (?,?))")).
		WithArgs(int64(10), int64(30), int64(31)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "created_at", "bumped_at"}))

	_, err := repo.GetMembership(context.Background(), []int64{10}, MembershipFilter{
		RequireTimelineIDs: []int64{30, 31},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMembershipAuthorFiltersSortAndPagination(t *testing.T) {
	repo, mock := setupTestDB(t)

	pattern := regexp.QuoteMeta("posts.author_id IN (?,?) AND posts.author_id NOT IN (?)") +
		".*" +
		regexp.QuoteMeta("ORDER BY MIN(feed_entries.created_at) DESC LIMIT ? OFFSET ?")
	mock.ExpectQuery(pattern).
		WithArgs(int64(10), int64(1), int64(2), int64(9), 3, 2).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "created_at", "bumped_at"}))

	_, err := repo.GetMembership(context.Background(), []int64{10}, MembershipFilter{
		SortBy:           "created",
		Limit:            3,
		Offset:           2,
		AuthorIDs:        []int64{1, 2},
		ExcludeAuthorIDs: []int64{9},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMembershipNoSources(t *testing.T) {
	repo, mock := setupTestDB(t)

	got, err := repo.GetMembership(context.Background(), nil, MembershipFilter{})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMembershipQueryError(t *testing.T) {
	repo, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT feed_entries.post_id AS post_id")).
		WillReturnError(assert.AnError)

	_, err := repo.GetMembership(context.Background(), []int64{10}, MembershipFilter{})
	require.Error(t, err)
	assert.True(t, common.IsTransientStore(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
