package fanout

import (
	"context"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/events"
	"github.com/davidmz/freefeed-server-1/internal/stats"
)

// CreatePostRequest carries an author's post submission. Destinations
// are timeline ids the author explicitly chose; when empty the
// author's own Posts feed is used.
type CreatePostRequest struct {
	AuthorID      int64
	Body          string
	Destinations  []int64
	AttachmentIDs []int64
}

// resolveDestinations validates the chosen destination feeds and
// reports whether the post is propagable (false when any destination
// is a Directs feed).
func (w *Writer) resolveDestinations(ctx context.Context, authorID int64, destinationIDs []int64) ([]dbmysql.Timeline, bool, error) {
	if len(destinationIDs) == 0 {
		own, err := w.timelines.ResolveNamedFeed(ctx, authorID, common.FeedNamePosts)
		if err != nil {
			return nil, false, err
		}
		return []dbmysql.Timeline{*own}, true, nil
	}

	feeds, err := w.timelines.GetByIDs(ctx, uniq(destinationIDs))
	if err != nil {
		return nil, false, err
	}
	if len(feeds) != len(uniq(destinationIDs)) {
		return nil, false, common.NewNotFoundError("destination timeline not found")
	}

	propagable := true
	for _, feed := range feeds {
		switch common.FeedName(feed.Name) {
		case common.FeedNamePosts:
			if feed.UserID == authorID {
				continue
			}
			// Posting into another account's Posts feed is group
			// posting: the account must be a group the author joined.
			owner, err := w.users.GetUserByID(ctx, feed.UserID)
			if err != nil {
				return nil, false, err
			}
			if !owner.IsGroup() {
				return nil, false, common.NewAccessDeniedError("cannot post to another user's feed")
			}
			subscribed, err := w.graph.IsSubscribed(ctx, authorID, feed.UserID)
			if err != nil {
				return nil, false, err
			}
			if !subscribed {
				return nil, false, common.NewAccessDeniedError("not a member of this group")
			}
		case common.FeedNameDirects:
			propagable = false
			if feed.UserID == authorID {
				continue
			}
			banned, err := w.graph.IsBanned(ctx, authorID, feed.UserID)
			if err != nil {
				return nil, false, err
			}
			if banned {
				return nil, false, common.NewAccessDeniedError("cannot send direct messages to this user")
			}
			friends, err := w.graph.FriendIDs(ctx, authorID)
			if err != nil {
				return nil, false, err
			}
			if !toSet(friends)[feed.UserID] {
				return nil, false, common.NewValidationError("direct messages require mutual subscription")
			}
		default:
			return nil, false, common.NewValidationError("posts can only be addressed to Posts or Directs feeds")
		}
	}
	return feeds, propagable, nil
}

// computeCreatePostDelta builds the closed set for a new post: the
// chosen destinations, the author's river, and the rivers of every
// destination subscriber without a ban edge to the author.
func (w *Writer) computeCreatePostDelta(ctx context.Context, authorID int64, destinations []dbmysql.Timeline) (*MembershipDelta, error) {
	add := timelineIDs(destinations)

	authorRivers, err := w.timelines.FeedIDsOfOwners(ctx, []int64{authorID}, common.FeedNameRiverOfNews)
	if err != nil {
		return nil, err
	}
	add = append(add, authorRivers...)

	subscribers, err := w.graph.SubscribersOfTimelines(ctx, timelineIDs(destinations))
	if err != nil {
		return nil, err
	}
	subscriberRivers, err := w.riverIDsOf(ctx, subscribers, authorID)
	if err != nil {
		return nil, err
	}
	add = append(add, subscriberRivers...)

	return &MembershipDelta{AddTimelineIDs: uniq(add)}, nil
}

// CreatePost validates, computes the closed set, and applies it
// atomically together with the post row and the author's counter.
func (w *Writer) CreatePost(ctx context.Context, req CreatePostRequest) (*dbmysql.Post, error) {
	if err := common.ValidatePostBody(req.Body); err != nil {
		return nil, err
	}
	if _, err := w.users.GetUserByID(ctx, req.AuthorID); err != nil {
		return nil, err
	}

	destinations, propagable, err := w.resolveDestinations(ctx, req.AuthorID, req.Destinations)
	if err != nil {
		return nil, err
	}
	delta, err := w.computeCreatePostDelta(ctx, req.AuthorID, destinations)
	if err != nil {
		return nil, err
	}

	now := w.now()
	post := &dbmysql.Post{
		Body:         req.Body,
		AuthorID:     req.AuthorID,
		IsPropagable: propagable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)

		if err := contentRepo.CreatePost(ctx, post); err != nil {
			return err
		}
		delta.PostID = post.PostID
		if err := w.applyDelta(ctx, tx, post, delta, now); err != nil {
			return err
		}
		if err := contentRepo.SavePost(ctx, post); err != nil {
			return err
		}
		if err := contentRepo.AttachToPost(ctx, req.AttachmentIDs, req.AuthorID, post.PostID); err != nil {
			return err
		}
		return w.stats.WithTx(tx).Incr(ctx, req.AuthorID, stats.PostsCreated)
	})
	if err != nil {
		return nil, err
	}

	w.statsSvc.Invalidated(ctx, req.AuthorID)
	w.emit(ctx, events.Event{
		Type:        events.PostCreated,
		PostID:      post.PostID,
		UserID:      req.AuthorID,
		TimelineIDs: delta.AffectedTimelineIDs(),
	})
	return post, nil
}

// UpdatePost edits the body. Only the author may edit; memberships
// are untouched and no bump happens.
func (w *Writer) UpdatePost(ctx context.Context, userID, postID int64, body string) (*dbmysql.Post, error) {
	if err := common.ValidatePostBody(body); err != nil {
		return nil, err
	}

	var post *dbmysql.Post
	err := w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)

		var err error
		post, err = contentRepo.GetPostForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != userID {
			return common.NewAccessDeniedError("only the author can edit a post")
		}
		post.Body = body
		post.UpdatedAt = w.now()
		return contentRepo.SavePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	w.emit(ctx, events.Event{
		Type:        events.PostUpdated,
		PostID:      post.PostID,
		UserID:      userID,
		TimelineIDs: post.FeedIntIDs,
	})
	return post, nil
}

// DeletePost retracts every membership the post holds and tears down
// its comments, likes and attachment links. The detached attachments
// are returned so the caller can delete the stored blobs.
func (w *Writer) DeletePost(ctx context.Context, userID, postID int64) ([]dbmysql.Attachment, error) {
	var (
		affected    []int64
		attachments []dbmysql.Attachment
	)
	err := w.inTransaction(ctx, func(tx *gorm.DB) error {
		contentRepo := w.content.WithTx(tx)
		timelines := w.timelines.WithTx(tx)

		post, err := contentRepo.GetPostForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != userID {
			return common.NewAccessDeniedError("only the author can delete a post")
		}

		affected, err = timelines.ListPostTimelineIDs(ctx, postID)
		if err != nil {
			return err
		}
		if err := timelines.RemovePostEverywhere(ctx, postID); err != nil {
			return err
		}
		if err := contentRepo.DeleteCommentsForPost(ctx, postID); err != nil {
			return err
		}
		if err := contentRepo.DeleteLikesForPost(ctx, postID); err != nil {
			return err
		}
		attachments, err = contentRepo.DeleteAttachmentsForPost(ctx, postID)
		if err != nil {
			return err
		}
		if err := contentRepo.DeletePost(ctx, postID); err != nil {
			return err
		}
		return w.stats.WithTx(tx).Decr(ctx, userID, stats.PostsCreated)
	})
	if err != nil {
		return nil, err
	}

	w.statsSvc.Invalidated(ctx, userID)
	w.emit(ctx, events.Event{
		Type:        events.PostDestroyed,
		PostID:      postID,
		UserID:      userID,
		TimelineIDs: affected,
	})
	return attachments, nil
}

// HidePost puts the post into the viewer's Hides feed so their
// homefeed skips it. Hiding twice is a no-op.
func (w *Writer) HidePost(ctx context.Context, userID, postID int64) error {
	post, err := w.content.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	hides, err := w.timelines.ResolveNamedFeed(ctx, userID, common.FeedNameHides)
	if err != nil {
		return err
	}
	if err := w.timelines.AddPostToTimelines(ctx, postID, []int64{hides.ID}, post.CreatedAt, w.now()); err != nil {
		return err
	}
	w.emit(ctx, events.Event{Type: events.PostHidden, PostID: postID, UserID: userID})
	return nil
}

// UnhidePost is the idempotent inverse of HidePost.
func (w *Writer) UnhidePost(ctx context.Context, userID, postID int64) error {
	hides, err := w.timelines.ResolveNamedFeed(ctx, userID, common.FeedNameHides)
	if err != nil {
		return err
	}
	if err := w.timelines.RemovePostFromTimelines(ctx, postID, []int64{hides.ID}); err != nil {
		return err
	}
	w.emit(ctx, events.Event{Type: events.PostUnhidden, PostID: postID, UserID: userID})
	return nil
}
