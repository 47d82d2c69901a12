package fanout

import (
	"context"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/events"
	"github.com/davidmz/freefeed-server-1/internal/stats"
)

// checkCanComment rejects commenting across a ban edge or on a post
// whose author the actor cannot see.
func (w *Writer) checkCanComment(ctx context.Context, actorID int64, post *dbmysql.Post) error {
	banned, err := w.graph.IsBanned(ctx, actorID, post.AuthorID)
	if err != nil {
		return err
	}
	if banned {
		return common.NewAccessDeniedError("you can not comment on this post")
	}
	author, err := w.users.GetUserByID(ctx, post.AuthorID)
	if err != nil {
		return err
	}
	visible, err := w.graph.CanView(ctx, actorID, author)
	if err != nil {
		return err
	}
	if !visible {
		return common.NewAccessDeniedError("post is not visible to you")
	}
	return nil
}

// computeActivityDelta builds the closed set one piece of activity
// (comment or like) causes: the actor's own named feed and
// MyDiscussions gain the post, propagable posts additionally fan into
// the rivers of the actor and the actor's subscribers, and every
// timeline already holding the post gets its bump refreshed.
func (w *Writer) computeActivityDelta(ctx context.Context, actorID int64, post *dbmysql.Post, activityFeed common.FeedName) (*MembershipDelta, error) {
	own, err := w.timelines.ResolveNamedFeed(ctx, actorID, activityFeed)
	if err != nil {
		return nil, err
	}
	discussions, err := w.timelines.ResolveNamedFeed(ctx, actorID, common.FeedNameMyDiscussions)
	if err != nil {
		return nil, err
	}
	add := []int64{own.ID, discussions.ID}

	if post.IsPropagable {
		audience, err := w.graph.SubscriberIDsOf(ctx, actorID)
		if err != nil {
			return nil, err
		}
		rivers, err := w.riverIDsOf(ctx, append(audience, actorID), post.AuthorID)
		if err != nil {
			return nil, err
		}
		add = append(add, rivers...)
	}

	add = uniq(add)
	held, err := w.timelines.ListPostTimelineIDs(ctx, post.PostID)
	if err != nil {
		return nil, err
	}
	return &MembershipDelta{
		PostID:          post.PostID,
		AddTimelineIDs:  without(add, toSet(held)),
		BumpTimelineIDs: held,
	}, nil
}

// AddComment records a comment and spreads its activity bump.
func (w *Writer) AddComment(ctx context.Context, userID, postID int64, body string) (*dbmysql.Comment, error) {
	if err := common.ValidateCommentBody(body); err != nil {
		return nil, err
	}

	now := w.now()
	comment := &dbmysql.Comment{
		Body:      body,
		AuthorID:  userID,
		PostID:    postID,
		HideType:  common.CommentVisible,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var affected []int64
	err := w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)

		post, err := contentRepo.GetPostForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if err := w.checkCanComment(ctx, userID, post); err != nil {
			return err
		}

		delta, err := w.computeActivityDelta(ctx, userID, post, common.FeedNameComments)
		if err != nil {
			return err
		}
		if err := contentRepo.CreateComment(ctx, comment); err != nil {
			return err
		}
		if err := w.applyDelta(ctx, tx, post, delta, now); err != nil {
			return err
		}
		post.CommentsCount++
		post.UpdatedAt = now
		if err := contentRepo.SavePost(ctx, post); err != nil {
			return err
		}
		affected = delta.AffectedTimelineIDs()
		return w.stats.WithTx(tx).Incr(ctx, userID, stats.CommentsGiven)
	})
	if err != nil {
		return nil, err
	}

	w.statsSvc.Invalidated(ctx, userID)
	w.emit(ctx, events.Event{
		Type:        events.CommentCreated,
		PostID:      postID,
		CommentID:   comment.CommentID,
		UserID:      userID,
		TimelineIDs: affected,
	})
	return comment, nil
}

// UpdateComment edits a comment body. Only the comment author may
// edit, and editing never re-bumps the post.
func (w *Writer) UpdateComment(ctx context.Context, userID, commentID int64, body string) (*dbmysql.Comment, error) {
	if err := common.ValidateCommentBody(body); err != nil {
		return nil, err
	}
	comment, err := w.content.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, common.NewAccessDeniedError("only the author can edit a comment")
	}
	comment.Body = body
	comment.UpdatedAt = w.now()
	if err := w.content.SaveComment(ctx, comment); err != nil {
		return nil, err
	}
	w.emit(ctx, events.Event{
		Type:      events.CommentUpdated,
		PostID:    comment.PostID,
		CommentID: commentID,
		UserID:    userID,
	})
	return comment, nil
}

// retractActorActivity removes the river entries and personal-feed
// memberships that actorID's activity on the post no longer justifies.
// Called with the post row already locked; the comment or like being
// removed must already be gone (or hidden) when this runs.
func (w *Writer) retractActorActivity(ctx context.Context, tx *gorm.DB, post *dbmysql.Post, actorID int64) ([]int64, error) {
	contentRepo := w.content.WithTx(tx)

	remaining, err := contentRepo.CountUserComments(ctx, post.PostID, actorID)
	if err != nil {
		return nil, err
	}
	liked, err := contentRepo.HasLike(ctx, actorID, post.PostID)
	if err != nil {
		return nil, err
	}

	var remove []int64
	if remaining == 0 {
		comments, err := w.timelines.ResolveNamedFeed(ctx, actorID, common.FeedNameComments)
		if err != nil {
			return nil, err
		}
		remove = append(remove, comments.ID)
	}
	if !liked {
		likes, err := w.timelines.ResolveNamedFeed(ctx, actorID, common.FeedNameLikes)
		if err != nil {
			return nil, err
		}
		remove = append(remove, likes.ID)
	}
	if remaining == 0 && !liked {
		discussions, err := w.timelines.ResolveNamedFeed(ctx, actorID, common.FeedNameMyDiscussions)
		if err != nil {
			return nil, err
		}
		remove = append(remove, discussions.ID)

		orphaned, err := w.orphanedRiverIDs(ctx, contentRepo, actorID, post)
		if err != nil {
			return nil, err
		}
		remove = append(remove, orphaned...)
	}

	delta := &MembershipDelta{PostID: post.PostID, RemoveTimelineIDs: uniq(remove)}
	if err := w.applyDelta(ctx, tx, post, delta, w.now()); err != nil {
		return nil, err
	}
	return delta.RemoveTimelineIDs, nil
}

// DeleteComment removes a comment. The comment author and the post
// author may both delete; activity bumps the comment caused are
// retracted unless something else still justifies them.
func (w *Writer) DeleteComment(ctx context.Context, userID, commentID int64) error {
	var (
		actorID  int64
		postID   int64
		affected []int64
	)
	err := w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)

		comment, err := contentRepo.GetCommentByID(ctx, commentID)
		if err != nil {
			return err
		}
		post, err := contentRepo.GetPostForUpdate(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if userID != comment.AuthorID && userID != post.AuthorID {
			return common.NewAccessDeniedError("you can not delete this comment")
		}

		wasVisible := comment.IsVisible()
		if err := contentRepo.DeleteComment(ctx, commentID); err != nil {
			return err
		}
		actorID, postID = comment.AuthorID, comment.PostID

		affected, err = w.retractActorActivity(ctx, tx, post, comment.AuthorID)
		if err != nil {
			return err
		}
		if wasVisible {
			if post.CommentsCount > 0 {
				post.CommentsCount--
			}
			if err := w.stats.WithTx(tx).Decr(ctx, comment.AuthorID, stats.CommentsGiven); err != nil {
				return err
			}
		}
		return contentRepo.SavePost(ctx, post)
	})
	if err != nil {
		return err
	}

	w.statsSvc.Invalidated(ctx, actorID)
	w.emit(ctx, events.Event{
		Type:        events.CommentDestroyed,
		PostID:      postID,
		CommentID:   commentID,
		UserID:      userID,
		TimelineIDs: affected,
	})
	return nil
}

// HideComment redacts a comment without deleting the row: the hide
// type is recorded, the body survives for unhiding, and counters and
// activity bumps behave as if the comment were gone.
func (w *Writer) HideComment(ctx context.Context, userID, commentID int64, hideType int16) error {
	if hideType == common.CommentVisible {
		return common.NewValidationError("invalid hide type")
	}

	var (
		actorID int64
		postID  int64
	)
	err := w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)

		comment, err := contentRepo.GetCommentByID(ctx, commentID)
		if err != nil {
			return err
		}
		post, err := contentRepo.GetPostForUpdate(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if userID != comment.AuthorID && userID != post.AuthorID {
			return common.NewAccessDeniedError("you can not hide this comment")
		}
		if !comment.IsVisible() {
			return nil
		}

		comment.HideType = hideType
		comment.UpdatedAt = w.now()
		if err := contentRepo.SaveComment(ctx, comment); err != nil {
			return err
		}
		actorID, postID = comment.AuthorID, comment.PostID

		if _, err := w.retractActorActivity(ctx, tx, post, comment.AuthorID); err != nil {
			return err
		}
		if post.CommentsCount > 0 {
			post.CommentsCount--
		}
		if err := w.stats.WithTx(tx).Decr(ctx, comment.AuthorID, stats.CommentsGiven); err != nil {
			return err
		}
		return contentRepo.SavePost(ctx, post)
	})
	if err != nil {
		return err
	}

	if actorID != 0 {
		w.statsSvc.Invalidated(ctx, actorID)
		w.emit(ctx, events.Event{
			Type:      events.CommentUpdated,
			PostID:    postID,
			CommentID: commentID,
			UserID:    userID,
		})
	}
	return nil
}
