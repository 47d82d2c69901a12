package feed

import (
	"context"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/socialgraph"
	"github.com/davidmz/freefeed-server-1/internal/timeline"
)

// ContentSource is the slice of the content store a feed read needs.
type ContentSource interface {
	GetPostsByIDs(ctx context.Context, ids []int64) ([]dbmysql.Post, error)
	ListCommentsForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Comment, error)
	ListLikesForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Like, error)
	ListAttachmentsForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Attachment, error)
}

// TimelineSource is the slice of the timeline store a feed read needs.
type TimelineSource interface {
	ResolveNamedFeed(ctx context.Context, ownerID int64, name common.FeedName) (*dbmysql.Timeline, error)
	GetByIDs(ctx context.Context, ids []int64) ([]dbmysql.Timeline, error)
	FeedIDsOfOwners(ctx context.Context, ownerIDs []int64, name common.FeedName) ([]int64, error)
	GetMembership(ctx context.Context, timelineIDs []int64, filter timeline.MembershipFilter) ([]timeline.MembershipRow, error)
}

// UserDirectory resolves the accounts a page references.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID int64) (*dbmysql.User, error)
	GetUserByUsername(ctx context.Context, username string) (*dbmysql.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []int64) ([]dbmysql.User, error)
	ListGroupAdmins(ctx context.Context, groupIDs []int64) ([]dbmysql.GroupAdmin, error)
}

// Reader reconstructs feed pages from the membership index. It never
// mutates anything; all write paths live in the fan-out writer.
type Reader struct {
	content   ContentSource
	timelines TimelineSource
	graph     *socialgraph.GraphService
	users     UserDirectory
}

func NewReader(
	contentRepo ContentSource,
	timelines TimelineSource,
	graph *socialgraph.GraphService,
	users UserDirectory,
) *Reader {
	return &Reader{content: contentRepo, timelines: timelines, graph: graph, users: users}
}

// ReadFeed returns one page of the named feed of the named owner, as
// seen by viewerID. A feed the viewer may not read yields the
// empty-but-valid page: timeline metadata, no posts, isLastPage true.
func (r *Reader) ReadFeed(ctx context.Context, ownerUsername string, feedName common.FeedName, viewerID int64, params Params) (*Response, error) {
	if !feedName.IsValid() {
		return nil, common.NewValidationError("unknown feed name")
	}
	params = params.Normalize()

	owner, err := r.users.GetUserByUsername(ctx, ownerUsername)
	if err != nil {
		return nil, err
	}
	fd, err := r.timelines.ResolveNamedFeed(ctx, owner.UserID, feedName)
	if err != nil {
		return nil, err
	}

	readable, err := r.canReadFeed(ctx, viewerID, owner, feedName)
	if err != nil {
		return nil, err
	}
	if !readable {
		return r.emptyPage(fd, owner), nil
	}

	sources, filter, err := r.resolveSources(ctx, owner, fd, feedName, viewerID, params)
	if err != nil {
		return nil, err
	}

	// One extra row decides isLastPage without a count query.
	filter.Limit = params.Limit + 1
	rows, err := r.timelines.GetMembership(ctx, sources, filter)
	if err != nil {
		return nil, err
	}
	isLastPage := len(rows) <= params.Limit
	if !isLastPage {
		rows = rows[:params.Limit]
	}

	page, err := r.buildPage(ctx, viewerID, owner, fd, rows, params)
	if err != nil {
		return nil, err
	}
	page.IsLastPage = isLastPage
	return page, nil
}

// canReadFeed layers the owner-only feeds on top of account-level
// visibility. RiverOfNews, MyDiscussions, Hides and Directs never
// resolve for anyone but their owner.
func (r *Reader) canReadFeed(ctx context.Context, viewerID int64, owner *dbmysql.User, feedName common.FeedName) (bool, error) {
	if feedName.IsPersonal() || feedName == common.FeedNameDirects {
		return viewerID == owner.UserID, nil
	}
	return r.graph.CanView(ctx, viewerID, owner)
}

func (r *Reader) emptyPage(fd *dbmysql.Timeline, owner *dbmysql.User) *Response {
	return &Response{
		Timeline:   timelineView(fd),
		Posts:      []PostView{},
		Users:      []UserView{userView(owner)},
		IsLastPage: true,
	}
}

// resolveSources turns a feed reference into the concrete set of
// source timelines plus the scan filter. Homefeed modes only apply to
// RiverOfNews; every other feed reads its own membership directly.
func (r *Reader) resolveSources(ctx context.Context, owner *dbmysql.User, fd *dbmysql.Timeline, feedName common.FeedName, viewerID int64, params Params) ([]int64, timeline.MembershipFilter, error) {
	filter := timeline.MembershipFilter{
		SortBy:        params.Sort,
		Offset:        params.Offset,
		CreatedBefore: params.CreatedBefore,
		CreatedAfter:  params.CreatedAfter,
	}

	banned, err := r.graph.BannedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, filter, err
	}
	filter.ExcludeAuthorIDs = banned

	sources := []int64{fd.ID}

	switch feedName {
	case common.FeedNameRiverOfNews:
		hides, err := r.timelines.ResolveNamedFeed(ctx, owner.UserID, common.FeedNameHides)
		if err != nil {
			return nil, filter, err
		}
		filter.ExcludeTimelineID = &hides.ID

		switch params.HomefeedMode {
		case HomefeedModeFriendsOnly:
			// Activity bumps fan posts into the river; friends-only
			// keeps only posts addressed to a feed the viewer follows
			// or owns.
			direct, err := r.graph.SubscribedTimelineIDs(ctx, owner.UserID)
			if err != nil {
				return nil, filter, err
			}
			for _, name := range []common.FeedName{common.FeedNamePosts, common.FeedNameDirects} {
				own, err := r.timelines.ResolveNamedFeed(ctx, owner.UserID, name)
				if err != nil {
					return nil, filter, err
				}
				direct = append(direct, own.ID)
			}
			filter.RequireTimelineIDs = direct
		case HomefeedModeClassic:
			subscribed, err := r.graph.SubscribedUserIDs(ctx, owner.UserID)
			if err != nil {
				return nil, filter, err
			}
			activity, err := r.activityFeedIDs(ctx, subscribed)
			if err != nil {
				return nil, filter, err
			}
			filter.PropagableOnlySources = activity
		case HomefeedModeFriendsAllActivity:
			subscribed, err := r.graph.SubscribedUserIDs(ctx, owner.UserID)
			if err != nil {
				return nil, filter, err
			}
			friends, err := r.graph.FriendIDs(ctx, owner.UserID)
			if err != nil {
				return nil, filter, err
			}
			activity, err := r.activityFeedIDs(ctx, append(subscribed, friends...))
			if err != nil {
				return nil, filter, err
			}
			sources = append(sources, activity...)
		}

	case common.FeedNameMyDiscussions:
		if params.WithMyPosts {
			posts, err := r.timelines.ResolveNamedFeed(ctx, owner.UserID, common.FeedNamePosts)
			if err != nil {
				return nil, filter, err
			}
			sources = append(sources, posts.ID)
		}
	}

	return sources, filter, nil
}

// activityFeedIDs resolves the Comments and Likes feeds of a user set.
func (r *Reader) activityFeedIDs(ctx context.Context, ownerIDs []int64) ([]int64, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	comments, err := r.timelines.FeedIDsOfOwners(ctx, ownerIDs, common.FeedNameComments)
	if err != nil {
		return nil, err
	}
	likes, err := r.timelines.FeedIDsOfOwners(ctx, ownerIDs, common.FeedNameLikes)
	if err != nil {
		return nil, err
	}
	return append(comments, likes...), nil
}

// buildPage hydrates membership rows into post views and resolves
// every referenced account in one batch.
func (r *Reader) buildPage(ctx context.Context, viewerID int64, owner *dbmysql.User, fd *dbmysql.Timeline, rows []timeline.MembershipRow, params Params) (*Response, error) {
	postIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		postIDs = append(postIDs, row.PostID)
	}

	posts, err := r.content.GetPostsByIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	postByID := make(map[int64]*dbmysql.Post, len(posts))
	for i := range posts {
		postByID[posts[i].PostID] = &posts[i]
	}

	comments, err := r.content.ListCommentsForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	likes, err := r.content.ListLikesForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	attachments, err := r.content.ListAttachmentsForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	destinations, err := r.destinationFeeds(ctx, posts)
	if err != nil {
		return nil, err
	}

	bannedSet, hiddenTypes, err := r.viewerFilters(ctx, viewerID, owner, params)
	if err != nil {
		return nil, err
	}

	commentsByPost := make(map[int64][]dbmysql.Comment)
	for _, c := range comments {
		commentsByPost[c.PostID] = append(commentsByPost[c.PostID], c)
	}
	likesByPost := make(map[int64][]dbmysql.Like)
	for _, l := range likes {
		likesByPost[l.PostID] = append(likesByPost[l.PostID], l)
	}
	attachmentsByPost := make(map[int64][]int64)
	for _, a := range attachments {
		if a.PostID != nil {
			attachmentsByPost[*a.PostID] = append(attachmentsByPost[*a.PostID], a.AttachmentID)
		}
	}

	referenced := newIDSet(owner.UserID)
	views := make([]PostView, 0, len(rows))
	for _, row := range rows {
		post, ok := postByID[row.PostID]
		if !ok {
			continue
		}
		referenced.add(post.AuthorID)

		view := PostView{
			PostID:        post.PostID,
			Body:          post.Body,
			AuthorID:      post.AuthorID,
			CreatedAt:     post.CreatedAt,
			UpdatedAt:     post.UpdatedAt,
			BumpedAt:      row.BumpedAt,
			CommentsCount: post.CommentsCount,
			LikesCount:    post.LikesCount,
			AttachmentIDs: attachmentsByPost[post.PostID],
			Destinations:  destinations[post.PostID],
		}
		for _, d := range view.Destinations {
			referenced.add(d.OwnerID)
		}

		view.Comments, view.OmittedComments = r.commentViews(commentsByPost[post.PostID], bannedSet, hiddenTypes, referenced)
		view.LikerIDs, view.OmittedLikes = r.likerIDs(likesByPost[post.PostID], post.LikesCount, bannedSet, referenced)
		views = append(views, view)
	}

	resp := &Response{
		Timeline: timelineView(fd),
		Posts:    views,
	}

	if owner.IsGroup() {
		admins, err := r.users.ListGroupAdmins(ctx, []int64{owner.UserID})
		if err != nil {
			return nil, err
		}
		for _, a := range admins {
			resp.AdminIDs = append(resp.AdminIDs, a.UserID)
			referenced.add(a.UserID)
		}
	}
	subscribers, err := r.graph.SubscribersOfTimelines(ctx, []int64{fd.ID})
	if err != nil {
		return nil, err
	}
	resp.SubscriberIDs = subscribers
	for _, id := range subscribers {
		referenced.add(id)
	}

	accounts, err := r.users.GetUsersByIDs(ctx, referenced.slice())
	if err != nil {
		return nil, err
	}
	resp.Users = make([]UserView, 0, len(accounts))
	for i := range accounts {
		resp.Users = append(resp.Users, userView(&accounts[i]))
	}
	return resp, nil
}

// viewerFilters loads the ban set and the effective hidden comment
// types: an explicit request parameter wins over the stored
// preference.
func (r *Reader) viewerFilters(ctx context.Context, viewerID int64, owner *dbmysql.User, params Params) (map[int64]bool, map[int16]bool, error) {
	banned, err := r.graph.BannedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, nil, err
	}
	bannedSet := make(map[int64]bool, len(banned))
	for _, id := range banned {
		bannedSet[id] = true
	}

	hidden := params.HiddenCommentTypes
	if hidden == nil && viewerID != socialgraph.AnonymousViewer {
		viewer := owner
		if viewerID != owner.UserID {
			viewer, err = r.users.GetUserByID(ctx, viewerID)
			if err != nil {
				return nil, nil, err
			}
		}
		hidden = []int16(viewer.HiddenCommentTypes)
	}
	hiddenSet := make(map[int16]bool, len(hidden))
	for _, t := range hidden {
		hiddenSet[t] = true
	}
	return bannedSet, hiddenSet, nil
}

// commentViews applies the viewer's comment filtering. A comment by a
// banned author reads as hidden-by-ban; hide types the viewer opted
// out of are dropped and counted instead of redacted.
func (r *Reader) commentViews(comments []dbmysql.Comment, banned map[int64]bool, hiddenTypes map[int16]bool, referenced *idSet) ([]CommentView, int) {
	var (
		views   []CommentView
		omitted int
	)
	for _, c := range comments {
		hideType := c.HideType
		if hideType == common.CommentVisible && banned[c.AuthorID] {
			hideType = common.CommentHiddenByBan
		}
		if hideType != common.CommentVisible && hiddenTypes[hideType] {
			omitted++
			continue
		}

		view := CommentView{
			CommentID: c.CommentID,
			AuthorID:  c.AuthorID,
			HideType:  hideType,
			CreatedAt: c.CreatedAt,
		}
		if hideType == common.CommentVisible {
			view.Body = c.Body
			referenced.add(c.AuthorID)
		} else {
			view.Body = redactedBody(hideType)
			view.AuthorID = 0
		}
		views = append(views, view)
	}
	return views, omitted
}

// likerIDs drops banned likers and reports how many likes the viewer
// does not see.
func (r *Reader) likerIDs(likes []dbmysql.Like, total int, banned map[int64]bool, referenced *idSet) ([]int64, int) {
	var ids []int64
	for _, l := range likes {
		if banned[l.UserID] {
			continue
		}
		ids = append(ids, l.UserID)
		referenced.add(l.UserID)
	}
	omitted := total - len(ids)
	if omitted < 0 {
		omitted = 0
	}
	return ids, omitted
}

// destinationFeeds maps each post to the Posts and Directs feeds it
// was addressed to, resolved in one batch over the page.
func (r *Reader) destinationFeeds(ctx context.Context, posts []dbmysql.Post) (map[int64][]TimelineView, error) {
	all := newIDSet()
	for i := range posts {
		for _, id := range posts[i].FeedIntIDs {
			all.add(id)
		}
	}
	timelines, err := r.timelines.GetByIDs(ctx, all.slice())
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*dbmysql.Timeline, len(timelines))
	for i := range timelines {
		byID[timelines[i].ID] = &timelines[i]
	}

	out := make(map[int64][]TimelineView, len(posts))
	for i := range posts {
		post := &posts[i]
		for _, id := range post.FeedIntIDs {
			t, ok := byID[id]
			if !ok {
				continue
			}
			name := common.FeedName(t.Name)
			if name != common.FeedNamePosts && name != common.FeedNameDirects {
				continue
			}
			out[post.PostID] = append(out[post.PostID], timelineView(t))
		}
	}
	return out, nil
}

// idSet is an insertion-ordered set of ids.
type idSet struct {
	seen  map[int64]bool
	order []int64
}

func newIDSet(ids ...int64) *idSet {
	s := &idSet{seen: make(map[int64]bool)}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *idSet) add(id int64) {
	if id == 0 || s.seen[id] {
		return
	}
	s.seen[id] = true
	s.order = append(s.order, id)
}

func (s *idSet) slice() []int64 { return s.order }
