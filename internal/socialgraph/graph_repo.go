package socialgraph

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

// Repository holds the raw subscription and ban edges. All reads
// return definite sets; absence is an empty set, never an error.
type Repository interface {
	CreateSubscription(ctx context.Context, sub *dbmysql.Subscription) error
	DeleteSubscription(ctx context.Context, userID, timelineID int64) error
	IsSubscribedToTimeline(ctx context.Context, userID, timelineID int64) (bool, error)
	SubscribedTimelineIDs(ctx context.Context, userID int64) ([]int64, error)
	SubscribedFeedOwnerIDs(ctx context.Context, userID int64, feedName common.FeedName) ([]int64, error)
	SubscriberIDsOfTimelines(ctx context.Context, timelineIDs []int64) ([]int64, error)

	CreateBan(ctx context.Context, ban *dbmysql.Ban) error
	DeleteBan(ctx context.Context, userID, bannedUserID int64) error
	BanExists(ctx context.Context, a, b int64) (bool, error)
	BannedUserIDs(ctx context.Context, userID int64) ([]int64, error)

	WithTx(tx *gorm.DB) Repository
}

type graphRepository struct {
	db *gorm.DB
}

func NewGraphRepository(db *gorm.DB) Repository {
	return &graphRepository{db: db}
}

func (r *graphRepository) WithTx(tx *gorm.DB) Repository {
	return &graphRepository{db: tx}
}

func (r *graphRepository) CreateSubscription(ctx context.Context, sub *dbmysql.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.NewConflictError("already subscribed to this feed")
		}
		return common.NewTransientStoreError("create subscription", err)
	}
	return nil
}

func (r *graphRepository) DeleteSubscription(ctx context.Context, userID, timelineID int64) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timeline_id = ?", userID, timelineID).
		Delete(&dbmysql.Subscription{}).Error
	if err != nil {
		return common.NewTransientStoreError("delete subscription", err)
	}
	return nil
}

func (r *graphRepository) IsSubscribedToTimeline(ctx context.Context, userID, timelineID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Subscription{}).
		Where("user_id = ? AND timeline_id = ?", userID, timelineID).
		Count(&count).Error
	if err != nil {
		return false, common.NewTransientStoreError("subscription check", err)
	}
	return count > 0, nil
}

func (r *graphRepository) SubscribedTimelineIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Subscription{}).
		Where("user_id = ?", userID).
		Pluck("timeline_id", &ids).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list subscribed timelines", err)
	}
	return ids, nil
}

// SubscribedFeedOwnerIDs returns the owners of the feeds of the given
// name that userID subscribes to.
func (r *graphRepository) SubscribedFeedOwnerIDs(ctx context.Context, userID int64, feedName common.FeedName) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("subscriptions").
		Joins("JOIN timelines ON timelines.id = subscriptions.timeline_id").
		Where("subscriptions.user_id = ? AND timelines.name = ?", userID, feedName.String()).
		Pluck("timelines.user_id", &ids).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list subscribed feed owners", err)
	}
	return ids, nil
}

func (r *graphRepository) SubscriberIDsOfTimelines(ctx context.Context, timelineIDs []int64) ([]int64, error) {
	if len(timelineIDs) == 0 {
		return nil, nil
	}
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Subscription{}).
		Distinct("user_id").
		Where("timeline_id IN ?", timelineIDs).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list subscribers", err)
	}
	return ids, nil
}

func (r *graphRepository) CreateBan(ctx context.Context, ban *dbmysql.Ban) error {
	if err := r.db.WithContext(ctx).Create(ban).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.NewConflictError("user is already banned")
		}
		return common.NewTransientStoreError("create ban", err)
	}
	return nil
}

func (r *graphRepository) DeleteBan(ctx context.Context, userID, bannedUserID int64) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND banned_user_id = ?", userID, bannedUserID).
		Delete(&dbmysql.Ban{}).Error
	if err != nil {
		return common.NewTransientStoreError("delete ban", err)
	}
	return nil
}

// BanExists is symmetric: a ban in either direction counts.
func (r *graphRepository) BanExists(ctx context.Context, a, b int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Ban{}).
		Where("(user_id = ? AND banned_user_id = ?) OR (user_id = ? AND banned_user_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, common.NewTransientStoreError("ban check", err)
	}
	return count > 0, nil
}

// BannedUserIDs returns everyone with a ban edge to or from userID.
func (r *graphRepository) BannedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	var outgoing, incoming []int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Ban{}).
		Where("user_id = ?", userID).
		Pluck("banned_user_id", &outgoing).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list bans", err)
	}
	err = r.db.WithContext(ctx).
		Model(&dbmysql.Ban{}).
		Where("banned_user_id = ?", userID).
		Pluck("user_id", &incoming).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list bans", err)
	}

	seen := make(map[int64]bool, len(outgoing)+len(incoming))
	var ids []int64
	for _, id := range append(outgoing, incoming...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
