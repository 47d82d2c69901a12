package stats

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

// CounterKind names one denormalized per-user counter.
type CounterKind string

const (
	PostsCreated  CounterKind = "posts_count"
	CommentsGiven CounterKind = "comments_count"
	LikesGiven    CounterKind = "likes_count"
)

func (k CounterKind) IsValid() bool {
	return k == PostsCreated || k == CommentsGiven || k == LikesGiven
}

// Repository mutates counters. Incr/Decr are called inside fan-out
// transactions only, so committed stats always match committed
// memberships.
type Repository interface {
	Incr(ctx context.Context, userID int64, kind CounterKind) error
	Decr(ctx context.Context, userID int64, kind CounterKind) error
	Get(ctx context.Context, userID int64) (*dbmysql.UserStat, error)
	WithTx(tx *gorm.DB) Repository
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) Repository {
	return &statsRepository{db: db}
}

func (r *statsRepository) WithTx(tx *gorm.DB) Repository {
	return &statsRepository{db: tx}
}

func (r *statsRepository) Incr(ctx context.Context, userID int64, kind CounterKind) error {
	if !kind.IsValid() {
		return common.NewValidationError("unknown counter kind")
	}
	col := string(kind)
	err := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("INSERT INTO user_stats (user_id, %s) VALUES (?, 1) ON DUPLICATE KEY UPDATE %s = %s + 1", col, col, col),
		userID,
	).Error
	if err != nil {
		return common.NewTransientStoreError("increment counter", err)
	}
	return nil
}

func (r *statsRepository) Decr(ctx context.Context, userID int64, kind CounterKind) error {
	if !kind.IsValid() {
		return common.NewValidationError("unknown counter kind")
	}
	col := string(kind)
	err := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("UPDATE user_stats SET %s = GREATEST(%s - 1, 0) WHERE user_id = ?", col, col),
		userID,
	).Error
	if err != nil {
		return common.NewTransientStoreError("decrement counter", err)
	}
	return nil
}

func (r *statsRepository) Get(ctx context.Context, userID int64) (*dbmysql.UserStat, error) {
	var stat dbmysql.UserStat
	err := r.db.WithContext(ctx).First(&stat, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &dbmysql.UserStat{UserID: userID}, nil
	}
	if err != nil {
		return nil, common.NewTransientStoreError("get stats", err)
	}
	return &stat, nil
}
