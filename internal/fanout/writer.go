package fanout

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/content"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/events"
	"github.com/davidmz/freefeed-server-1/internal/socialgraph"
	"github.com/davidmz/freefeed-server-1/internal/stats"
	"github.com/davidmz/freefeed-server-1/internal/timeline"
	"github.com/davidmz/freefeed-server-1/internal/user"
)

// Writer is the single entry point for every content mutation. All
// membership changes flow through it so the per-post serialization
// discipline is never bypassed: each event locks its post row and
// applies its whole closed set in one transaction, or none of it.
type Writer struct {
	db         *gorm.DB
	content    content.Repository
	timelines  timeline.Repository
	graph      *socialgraph.GraphService
	users      user.UserRepository
	stats      stats.Repository
	statsSvc   *stats.StatsService
	dispatcher *events.Dispatcher
	now        func() time.Time
}

func NewWriter(
	db *gorm.DB,
	contentRepo content.Repository,
	timelines timeline.Repository,
	graph *socialgraph.GraphService,
	users user.UserRepository,
	statsRepo stats.Repository,
	statsSvc *stats.StatsService,
	dispatcher *events.Dispatcher,
) *Writer {
	return &Writer{
		db:         db,
		content:    contentRepo,
		timelines:  timelines,
		graph:      graph,
		users:      users,
		stats:      statsRepo,
		statsSvc:   statsSvc,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (w *Writer) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if w.db == nil {
		return fn(nil)
	}
	return w.db.WithContext(ctx).Transaction(fn)
}

// emit publishes a change notification after commit. Delivery is
// fire-and-forget; failures never affect the committed event.
func (w *Writer) emit(ctx context.Context, evt events.Event) {
	if w.dispatcher == nil {
		return
	}
	evt.OccurredAt = w.now()
	if len(evt.TimelineIDs) > 0 && len(evt.UserIDs) == 0 {
		timelines, err := w.timelines.GetByIDs(ctx, evt.TimelineIDs)
		if err != nil {
			log.Printf("event %s: cannot resolve affected users: %v", evt.Type, err)
		} else {
			var ownerIDs []int64
			for _, t := range timelines {
				ownerIDs = append(ownerIDs, t.UserID)
			}
			evt.UserIDs = uniq(ownerIDs)
		}
	}
	w.dispatcher.Publish(evt)
}

// riverIDsOf resolves RiverOfNews feed ids for a set of users,
// dropping anyone with a ban edge to or from excludeBannedWith.
func (w *Writer) riverIDsOf(ctx context.Context, userIDs []int64, excludeBannedWith int64) ([]int64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	banned, err := w.graph.BannedUserIDs(ctx, excludeBannedWith)
	if err != nil {
		return nil, err
	}
	allowed := without(uniq(userIDs), toSet(banned))
	return w.timelines.FeedIDsOfOwners(ctx, allowed, common.FeedNameRiverOfNews)
}

// postFeedsByName fetches the post's current memberships grouped by
// feed name. Used both for activity re-bumps (rivers already holding
// the post) and for destination lookups.
func (w *Writer) postFeedsByName(ctx context.Context, postID int64) (map[common.FeedName][]dbmysql.Timeline, error) {
	ids, err := w.timelines.ListPostTimelineIDs(ctx, postID)
	if err != nil {
		return nil, err
	}
	timelines, err := w.timelines.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byName := make(map[common.FeedName][]dbmysql.Timeline)
	for _, t := range timelines {
		byName[common.FeedName(t.Name)] = append(byName[common.FeedName(t.Name)], t)
	}
	return byName, nil
}

func timelineIDs(ts []dbmysql.Timeline) []int64 {
	ids := make([]int64, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	return ids
}

// applyDelta writes one closed set inside a transaction. The caller
// must already hold the post row lock.
func (w *Writer) applyDelta(ctx context.Context, tx *gorm.DB, post *dbmysql.Post, d *MembershipDelta, eventTime time.Time) error {
	timelines := w.timelines.WithTx(tx)

	if err := timelines.AddPostToTimelines(ctx, d.PostID, d.AddTimelineIDs, post.CreatedAt, eventTime); err != nil {
		return err
	}
	if err := timelines.BumpPost(ctx, d.PostID, d.BumpTimelineIDs, eventTime); err != nil {
		return err
	}
	if err := timelines.RemovePostFromTimelines(ctx, d.PostID, d.RemoveTimelineIDs); err != nil {
		return err
	}

	// Keep the post's denormalized feed id set in step with the
	// membership rows, under the same lock.
	ids := toSet(post.FeedIntIDs)
	for _, id := range d.AddTimelineIDs {
		ids[id] = true
	}
	for _, id := range d.RemoveTimelineIDs {
		delete(ids, id)
	}
	next := make(dbmysql.Int64List, 0, len(ids))
	for id := range ids {
		next = append(next, id)
	}
	post.FeedIntIDs = next
	return nil
}

// orphanedRiverIDs computes the bump-only river memberships that
// actorID's activity on the post no longer justifies. A river keeps
// the post if its owner authored it, subscribes to one of its
// destination feeds, is a destination feed owner themselves, or still
// receives it through another user's remaining comment or like.
func (w *Writer) orphanedRiverIDs(ctx context.Context, contentRepo content.Repository, actorID int64, post *dbmysql.Post) ([]int64, error) {
	byName, err := w.postFeedsByName(ctx, post.PostID)
	if err != nil {
		return nil, err
	}
	rivers := byName[common.FeedNameRiverOfNews]
	if len(rivers) == 0 {
		return nil, nil
	}

	destIDs := append(timelineIDs(byName[common.FeedNamePosts]), timelineIDs(byName[common.FeedNameDirects])...)
	destOwners := toSet(nil)
	for _, t := range append(byName[common.FeedNamePosts], byName[common.FeedNameDirects]...) {
		destOwners[t.UserID] = true
	}
	destSubscribers, err := w.graph.SubscribersOfTimelines(ctx, destIDs)
	if err != nil {
		return nil, err
	}
	justified := toSet(destSubscribers)

	// Other users with activity left on the post still justify their
	// own river and the rivers of their subscribers.
	active, err := remainingActivityUserIDs(ctx, contentRepo, post.PostID, actorID)
	if err != nil {
		return nil, err
	}
	for _, userID := range active {
		justified[userID] = true
		subscribers, err := w.graph.SubscriberIDsOf(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, id := range subscribers {
			justified[id] = true
		}
	}

	// Only rivers the actor's activity could have fanned into are
	// candidates: the actor's own and those of the actor's subscribers.
	actorAudience, err := w.graph.SubscriberIDsOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	candidates := toSet(actorAudience)
	candidates[actorID] = true

	var orphaned []int64
	for _, river := range rivers {
		owner := river.UserID
		if !candidates[owner] {
			continue
		}
		if owner == post.AuthorID || destOwners[owner] || justified[owner] {
			continue
		}
		orphaned = append(orphaned, river.ID)
	}
	return orphaned, nil
}

// remainingActivityUserIDs lists the users other than excludeID who
// still have a visible comment or a like on the post.
func remainingActivityUserIDs(ctx context.Context, contentRepo content.Repository, postID, excludeID int64) ([]int64, error) {
	comments, err := contentRepo.ListCommentsForPosts(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}
	likes, err := contentRepo.ListLikesForPosts(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}

	seen := toSet(nil)
	var ids []int64
	for _, c := range comments {
		if c.AuthorID != excludeID && c.IsVisible() && !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			ids = append(ids, c.AuthorID)
		}
	}
	for _, l := range likes {
		if l.UserID != excludeID && !seen[l.UserID] {
			seen[l.UserID] = true
			ids = append(ids, l.UserID)
		}
	}
	return ids, nil
}
