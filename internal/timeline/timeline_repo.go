package timeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

// MembershipFilter controls a paginated membership scan over one or
// more source timelines. A post appearing in several sources is
// returned once, ordered by its most relevant timestamp across them.
type MembershipFilter struct {
	SortBy string // "created" or "bumped"
	Offset int
	Limit  int

	// AuthorIDs restricts results to posts by these authors.
	AuthorIDs []int64
	// ExcludeAuthorIDs drops posts by these authors (bans).
	ExcludeAuthorIDs []int64

	CreatedBefore *time.Time
	CreatedAfter  *time.Time

	// PropagableOnlySources are extra source timelines whose entries
	// count only for propagable posts (activity feeds in homefeeds).
	PropagableOnlySources []int64

	// RequireTimelineIDs keeps only posts that are also members of at
	// least one of these timelines (the viewer's direct subscriptions
	// in the friends-only homefeed).
	RequireTimelineIDs []int64

	// ExcludeTimelineID drops posts that are members of this timeline
	// (the viewer's Hides feed).
	ExcludeTimelineID *int64
}

// MembershipRow is one post in a merged membership scan.
type MembershipRow struct {
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
	BumpedAt  time.Time `json:"bumped_at"`
}

// Repository is the Timeline Store: it owns timeline entities and the
// post<->timeline membership relation. Membership mutations are
// idempotent because fan-out events may be retried.
type Repository interface {
	ProvisionFeeds(ctx context.Context, ownerID int64) ([]dbmysql.Timeline, error)
	ResolveNamedFeed(ctx context.Context, ownerID int64, name common.FeedName) (*dbmysql.Timeline, error)
	GetByID(ctx context.Context, id int64) (*dbmysql.Timeline, error)
	GetByIDs(ctx context.Context, ids []int64) ([]dbmysql.Timeline, error)
	ListOwnerFeeds(ctx context.Context, ownerID int64) ([]dbmysql.Timeline, error)
	FeedIDsOfOwners(ctx context.Context, ownerIDs []int64, name common.FeedName) ([]int64, error)

	AddPostToTimelines(ctx context.Context, postID int64, timelineIDs []int64, createdAt, bumpedAt time.Time) error
	RemovePostFromTimelines(ctx context.Context, postID int64, timelineIDs []int64) error
	RemovePostEverywhere(ctx context.Context, postID int64) error
	BumpPost(ctx context.Context, postID int64, timelineIDs []int64, bumpedAt time.Time) error
	ListPostTimelineIDs(ctx context.Context, postID int64) ([]int64, error)

	GetMembership(ctx context.Context, timelineIDs []int64, filter MembershipFilter) ([]MembershipRow, error)

	WithTx(tx *gorm.DB) Repository
}

type timelineRepository struct {
	db *gorm.DB
}

func NewTimelineRepository(db *gorm.DB) Repository {
	return &timelineRepository{db: db}
}

func (r *timelineRepository) WithTx(tx *gorm.DB) Repository {
	return &timelineRepository{db: tx}
}

// ProvisionFeeds creates the full named-feed set for a new account.
// The unique (owner, name) index rejects double provisioning.
func (r *timelineRepository) ProvisionFeeds(ctx context.Context, ownerID int64) ([]dbmysql.Timeline, error) {
	feeds := make([]dbmysql.Timeline, 0, len(common.AllFeedNames))
	for _, name := range common.AllFeedNames {
		feeds = append(feeds, dbmysql.Timeline{
			UID:    uuid.NewString(),
			Name:   name.String(),
			UserID: ownerID,
		})
	}
	if err := r.db.WithContext(ctx).Create(&feeds).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.NewConflictError("feeds already provisioned for this account")
		}
		return nil, common.NewTransientStoreError("provision feeds", err)
	}
	return feeds, nil
}

func (r *timelineRepository) ResolveNamedFeed(ctx context.Context, ownerID int64, name common.FeedName) (*dbmysql.Timeline, error) {
	var t dbmysql.Timeline
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", ownerID, name.String()).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("timeline not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("resolve named feed", err)
	}
	return &t, nil
}

func (r *timelineRepository) GetByID(ctx context.Context, id int64) (*dbmysql.Timeline, error) {
	var t dbmysql.Timeline
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("timeline not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("get timeline", err)
	}
	return &t, nil
}

func (r *timelineRepository) GetByIDs(ctx context.Context, ids []int64) ([]dbmysql.Timeline, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var timelines []dbmysql.Timeline
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&timelines).Error
	if err != nil {
		return nil, common.NewTransientStoreError("get timelines", err)
	}
	return timelines, nil
}

func (r *timelineRepository) ListOwnerFeeds(ctx context.Context, ownerID int64) ([]dbmysql.Timeline, error) {
	var timelines []dbmysql.Timeline
	err := r.db.WithContext(ctx).Where("user_id = ?", ownerID).Find(&timelines).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list owner feeds", err)
	}
	return timelines, nil
}

// FeedIDsOfOwners resolves one named feed per owner in a single query.
func (r *timelineRepository) FeedIDsOfOwners(ctx context.Context, ownerIDs []int64, name common.FeedName) ([]int64, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Timeline{}).
		Where("user_id IN ? AND name = ?", ownerIDs, name.String()).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, common.NewTransientStoreError("resolve owner feeds", err)
	}
	return ids, nil
}

// AddPostToTimelines upserts membership rows. Adding a post to a
// timeline it is already in refreshes the bump timestamp and nothing
// else, so retried fan-outs converge to the same state.
func (r *timelineRepository) AddPostToTimelines(ctx context.Context, postID int64, timelineIDs []int64, createdAt, bumpedAt time.Time) error {
	if len(timelineIDs) == 0 {
		return nil
	}
	entries := make([]dbmysql.FeedEntry, 0, len(timelineIDs))
	for _, tid := range timelineIDs {
		entries = append(entries, dbmysql.FeedEntry{
			TimelineID: tid,
			PostID:     postID,
			CreatedAt:  createdAt,
			BumpedAt:   bumpedAt,
		})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "timeline_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bumped_at"}),
	}).Create(&entries).Error
	if err != nil {
		return common.NewTransientStoreError("add post to timelines", err)
	}
	return nil
}

// RemovePostFromTimelines is a no-op for non-member timelines.
func (r *timelineRepository) RemovePostFromTimelines(ctx context.Context, postID int64, timelineIDs []int64) error {
	if len(timelineIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND timeline_id IN ?", postID, timelineIDs).
		Delete(&dbmysql.FeedEntry{}).Error
	if err != nil {
		return common.NewTransientStoreError("remove post from timelines", err)
	}
	return nil
}

func (r *timelineRepository) RemovePostEverywhere(ctx context.Context, postID int64) error {
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&dbmysql.FeedEntry{}).Error
	if err != nil {
		return common.NewTransientStoreError("remove post everywhere", err)
	}
	return nil
}

func (r *timelineRepository) BumpPost(ctx context.Context, postID int64, timelineIDs []int64, bumpedAt time.Time) error {
	if len(timelineIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&dbmysql.FeedEntry{}).
		Where("post_id = ? AND timeline_id IN ?", postID, timelineIDs).
		Update("bumped_at", bumpedAt).Error
	if err != nil {
		return common.NewTransientStoreError("bump post", err)
	}
	return nil
}

func (r *timelineRepository) ListPostTimelineIDs(ctx context.Context, postID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.FeedEntry{}).
		Where("post_id = ?", postID).
		Pluck("timeline_id", &ids).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list post timelines", err)
	}
	return ids, nil
}

// GetMembership runs the merged, de-duplicated, paginated scan that
// backs every feed read. Sorting happens on the aggregate timestamps
// so a post's position reflects its best bump across all sources.
func (r *timelineRepository) GetMembership(ctx context.Context, timelineIDs []int64, f MembershipFilter) ([]MembershipRow, error) {
	if len(timelineIDs) == 0 && len(f.PropagableOnlySources) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).
		Table("feed_entries").
		Select("feed_entries.post_id AS post_id, MIN(feed_entries.created_at) AS created_at, MAX(feed_entries.bumped_at) AS bumped_at").
		Joins("JOIN posts ON posts.post_id = feed_entries.post_id")

	switch {
	case len(f.PropagableOnlySources) > 0 && len(timelineIDs) > 0:
		q = q.Where("feed_entries.timeline_id IN ? OR (feed_entries.timeline_id IN ? AND posts.is_propagable = ?)",
			timelineIDs, f.PropagableOnlySources, true)
	case len(f.PropagableOnlySources) > 0:
		q = q.Where("feed_entries.timeline_id IN ? AND posts.is_propagable = ?", f.PropagableOnlySources, true)
	default:
		q = q.Where("feed_entries.timeline_id IN ?", timelineIDs)
	}

	if len(f.AuthorIDs) > 0 {
		q = q.Where("posts.author_id IN ?", f.AuthorIDs)
	}
	if len(f.ExcludeAuthorIDs) > 0 {
		q = q.Where("posts.author_id NOT IN ?", f.ExcludeAuthorIDs)
	}
	if f.CreatedBefore != nil {
		q = q.Where("posts.created_at < ?", *f.CreatedBefore)
	}
	if f.CreatedAfter != nil {
		q = q.Where("posts.created_at > ?", *f.CreatedAfter)
	}
	if f.ExcludeTimelineID != nil {
		q = q.Where("feed_entries.post_id NOT IN (?)",
			r.db.Table("feed_entries").Select("post_id").Where("timeline_id = ?", *f.ExcludeTimelineID))
	}
	if len(f.RequireTimelineIDs) > 0 {
		q = q.Where("feed_entries.post_id IN (?)",
			r.db.Table("feed_entries").Select("post_id").Where("timeline_id IN ?", f.RequireTimelineIDs))
	}

	q = q.Group("feed_entries.post_id")

	if f.SortBy == "created" {
		q = q.Order("MIN(feed_entries.created_at) DESC")
	} else {
		q = q.Order("MAX(feed_entries.bumped_at) DESC")
	}

	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []MembershipRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, common.NewTransientStoreError("membership scan", err)
	}
	return rows, nil
}
