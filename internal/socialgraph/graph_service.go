package socialgraph

import (
	"context"
	"time"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/timeline"
)

// AnonymousViewer marks an unauthenticated feed read.
const AnonymousViewer int64 = 0

// GraphService answers the subscription, friendship, ban and
// visibility questions the fan-out writer and feed reader ask.
type GraphService struct {
	graph     Repository
	timelines timeline.Repository
}

func NewGraphService(graph Repository, timelines timeline.Repository) *GraphService {
	return &GraphService{graph: graph, timelines: timelines}
}

// IsSubscribed reports whether subscriberID follows targetID's Posts feed.
func (s *GraphService) IsSubscribed(ctx context.Context, subscriberID, targetID int64) (bool, error) {
	posts, err := s.timelines.ResolveNamedFeed(ctx, targetID, common.FeedNamePosts)
	if err != nil {
		if common.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s.graph.IsSubscribedToTimeline(ctx, subscriberID, posts.ID)
}

// SubscriberIDsOf returns everyone following targetID's Posts feed.
func (s *GraphService) SubscriberIDsOf(ctx context.Context, targetID int64) ([]int64, error) {
	posts, err := s.timelines.ResolveNamedFeed(ctx, targetID, common.FeedNamePosts)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s.graph.SubscriberIDsOfTimelines(ctx, []int64{posts.ID})
}

// SubscribedTimelineIDs returns the feed ids userID directly follows.
func (s *GraphService) SubscribedTimelineIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.graph.SubscribedTimelineIDs(ctx, userID)
}

// SubscribedUserIDs returns the users whose Posts feed userID follows.
func (s *GraphService) SubscribedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.graph.SubscribedFeedOwnerIDs(ctx, userID, common.FeedNamePosts)
}

// FriendIDs returns the users userID subscribes to who also subscribe
// back. This is the expansion set for the all-activity homefeed mode.
func (s *GraphService) FriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	following, err := s.graph.SubscribedFeedOwnerIDs(ctx, userID, common.FeedNamePosts)
	if err != nil {
		return nil, err
	}
	if len(following) == 0 {
		return nil, nil
	}
	followers, err := s.SubscriberIDsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	followerSet := make(map[int64]bool, len(followers))
	for _, id := range followers {
		followerSet[id] = true
	}
	var friends []int64
	for _, id := range following {
		if followerSet[id] {
			friends = append(friends, id)
		}
	}
	return friends, nil
}

// SubscribersOfTimelines returns the distinct subscribers of a set of
// destination feeds.
func (s *GraphService) SubscribersOfTimelines(ctx context.Context, timelineIDs []int64) ([]int64, error) {
	return s.graph.SubscriberIDsOfTimelines(ctx, timelineIDs)
}

// IsBanned is true if a ban exists in either direction.
func (s *GraphService) IsBanned(ctx context.Context, a, b int64) (bool, error) {
	if a == AnonymousViewer || b == AnonymousViewer || a == b {
		return false, nil
	}
	return s.graph.BanExists(ctx, a, b)
}

// BannedUserIDs returns every user with a ban edge to or from userID.
func (s *GraphService) BannedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	if userID == AnonymousViewer {
		return nil, nil
	}
	return s.graph.BannedUserIDs(ctx, userID)
}

// CanView evaluates feed visibility: public owners are always
// visible, protected owners require an authenticated viewer, private
// owners require a subscription. A ban in either direction always
// denies.
func (s *GraphService) CanView(ctx context.Context, viewerID int64, owner *dbmysql.User) (bool, error) {
	if viewerID == owner.UserID {
		return true, nil
	}
	banned, err := s.IsBanned(ctx, viewerID, owner.UserID)
	if err != nil {
		return false, err
	}
	if banned {
		return false, nil
	}

	switch owner.Privacy {
	case "public":
		return true, nil
	case "protected":
		return viewerID != AnonymousViewer, nil
	case "private":
		if viewerID == AnonymousViewer {
			return false, nil
		}
		return s.IsSubscribed(ctx, viewerID, owner.UserID)
	default:
		return false, nil
	}
}

// Subscribe follows targetID's Posts and Directs feeds. Feeds of
// private owners cannot be followed directly; acceptance flows are an
// external collaborator, so here a private target is simply denied.
func (s *GraphService) Subscribe(ctx context.Context, userID int64, target *dbmysql.User) error {
	if userID == target.UserID {
		return common.NewValidationError("cannot subscribe to yourself")
	}
	banned, err := s.IsBanned(ctx, userID, target.UserID)
	if err != nil {
		return err
	}
	if banned {
		return common.NewAccessDeniedError("subscription is blocked")
	}
	if target.Privacy == "private" {
		return common.NewAccessDeniedError("this account is private")
	}

	posts, err := s.timelines.ResolveNamedFeed(ctx, target.UserID, common.FeedNamePosts)
	if err != nil {
		return err
	}
	if err := s.graph.CreateSubscription(ctx, &dbmysql.Subscription{
		UserID:     userID,
		TimelineID: posts.ID,
		CreatedAt:  time.Now(),
	}); err != nil {
		return err
	}

	directs, err := s.timelines.ResolveNamedFeed(ctx, target.UserID, common.FeedNameDirects)
	if err != nil {
		if common.IsNotFound(err) {
			return nil
		}
		return err
	}
	err = s.graph.CreateSubscription(ctx, &dbmysql.Subscription{
		UserID:     userID,
		TimelineID: directs.ID,
		CreatedAt:  time.Now(),
	})
	if common.IsConflict(err) {
		return nil
	}
	return err
}

func (s *GraphService) Unsubscribe(ctx context.Context, userID, targetID int64) error {
	feeds, err := s.timelines.ListOwnerFeeds(ctx, targetID)
	if err != nil {
		return err
	}
	for _, feed := range feeds {
		if err := s.graph.DeleteSubscription(ctx, userID, feed.ID); err != nil {
			return err
		}
	}
	return nil
}

// Ban blocks targetID and severs subscriptions in both directions.
func (s *GraphService) Ban(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return common.NewValidationError("cannot ban yourself")
	}
	if err := s.graph.CreateBan(ctx, &dbmysql.Ban{
		UserID:       userID,
		BannedUserID: targetID,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}
	if err := s.Unsubscribe(ctx, userID, targetID); err != nil {
		return err
	}
	return s.Unsubscribe(ctx, targetID, userID)
}

func (s *GraphService) Unban(ctx context.Context, userID, targetID int64) error {
	return s.graph.DeleteBan(ctx, userID, targetID)
}
