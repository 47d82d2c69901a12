package fanout

import (
	"context"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/events"
	"github.com/davidmz/freefeed-server-1/internal/stats"
)

// AddLike records a like and spreads its activity bump the same way a
// comment does. Liking your own post is rejected; liking twice is a
// conflict.
func (w *Writer) AddLike(ctx context.Context, userID, postID int64) error {
	var (
		now      = w.now()
		affected []int64
	)
	err := w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)

		post, err := contentRepo.GetPostForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID == userID {
			return common.NewValidationError("you can not like your own post")
		}
		if err := w.checkCanComment(ctx, userID, post); err != nil {
			return err
		}

		delta, err := w.computeActivityDelta(ctx, userID, post, common.FeedNameLikes)
		if err != nil {
			return err
		}
		if err := contentRepo.CreateLike(ctx, &dbmysql.Like{
			UserID:    userID,
			PostID:    postID,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := w.applyDelta(ctx, tx, post, delta, now); err != nil {
			return err
		}
		post.LikesCount++
		if err := contentRepo.SavePost(ctx, post); err != nil {
			return err
		}
		affected = delta.AffectedTimelineIDs()
		return w.stats.WithTx(tx).Incr(ctx, userID, stats.LikesGiven)
	})
	if err != nil {
		return err
	}

	w.statsSvc.Invalidated(ctx, userID)
	w.emit(ctx, events.Event{
		Type:        events.LikeAdded,
		PostID:      postID,
		UserID:      userID,
		TimelineIDs: affected,
	})
	return nil
}

// RemoveLike deletes the like and retracts the bumps it caused unless
// the user still has visible comments on the post.
func (w *Writer) RemoveLike(ctx context.Context, userID, postID int64) error {
	var affected []int64
	err := w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)

		post, err := contentRepo.GetPostForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		removed, err := contentRepo.DeleteLike(ctx, userID, postID)
		if err != nil {
			return err
		}
		if !removed {
			return common.NewNotFoundError("like not found")
		}

		affected, err = w.retractActorActivity(ctx, tx, post, userID)
		if err != nil {
			return err
		}
		if post.LikesCount > 0 {
			post.LikesCount--
		}
		if err := contentRepo.SavePost(ctx, post); err != nil {
			return err
		}
		return w.stats.WithTx(tx).Decr(ctx, userID, stats.LikesGiven)
	})
	if err != nil {
		return err
	}

	w.statsSvc.Invalidated(ctx, userID)
	w.emit(ctx, events.Event{
		Type:        events.LikeRemoved,
		PostID:      postID,
		UserID:      userID,
		TimelineIDs: affected,
	})
	return nil
}
