package fanout

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/content"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/socialgraph"
	"github.com/davidmz/freefeed-server-1/internal/stats"
	"github.com/davidmz/freefeed-server-1/internal/timeline"
	"github.com/davidmz/freefeed-server-1/internal/user"
)

// world is a shared in-memory store behind all fake repositories, so a
// scenario can be built once and observed across repos.
type world struct {
	users       map[int64]*dbmysql.User
	timelines   map[int64]*dbmysql.Timeline
	entries     map[int64]map[int64]*dbmysql.FeedEntry
	posts       map[int64]*dbmysql.Post
	comments    map[int64]*dbmysql.Comment
	likes       map[string]*dbmysql.Like
	attachments map[int64]*dbmysql.Attachment
	subs        map[[2]int64]bool
	bans        map[[2]int64]bool
	counters    map[int64]map[stats.CounterKind]int
	nextID      int64
}

func newWorld() *world {
	return &world{
		users:       make(map[int64]*dbmysql.User),
		timelines:   make(map[int64]*dbmysql.Timeline),
		entries:     make(map[int64]map[int64]*dbmysql.FeedEntry),
		posts:       make(map[int64]*dbmysql.Post),
		comments:    make(map[int64]*dbmysql.Comment),
		likes:       make(map[string]*dbmysql.Like),
		attachments: make(map[int64]*dbmysql.Attachment),
		subs:        make(map[[2]int64]bool),
		bans:        make(map[[2]int64]bool),
		counters:    make(map[int64]map[stats.CounterKind]int),
	}
}

func (w *world) id() int64 {
	w.nextID++
	return w.nextID
}

func likeKey(userID, postID int64) string {
	return fmt.Sprintf("%d:%d", userID, postID)
}

// addUser creates a user with its provisioned feeds.
func (w *world) addUser(username string) *dbmysql.User {
	u := &dbmysql.User{UserID: w.id(), Username: username, Type: "user", Privacy: "public", Active: true}
	w.users[u.UserID] = u
	for _, name := range common.AllFeedNames {
		t := &dbmysql.Timeline{ID: w.id(), UID: fmt.Sprintf("uid-%d", w.nextID), Name: name.String(), UserID: u.UserID}
		w.timelines[t.ID] = t
		w.entries[t.ID] = make(map[int64]*dbmysql.FeedEntry)
	}
	return u
}

func (w *world) addGroup(username string) *dbmysql.User {
	g := w.addUser(username)
	g.Type = "group"
	return g
}

func (w *world) feedOf(ownerID int64, name common.FeedName) *dbmysql.Timeline {
	for _, t := range w.timelines {
		if t.UserID == ownerID && t.Name == name.String() {
			return t
		}
	}
	return nil
}

// subscribe mirrors GraphService.Subscribe without its policy checks.
func (w *world) subscribe(userID, targetID int64) {
	w.subs[[2]int64{userID, w.feedOf(targetID, common.FeedNamePosts).ID}] = true
	w.subs[[2]int64{userID, w.feedOf(targetID, common.FeedNameDirects).ID}] = true
}

func (w *world) holds(timelineID, postID int64) bool {
	_, ok := w.entries[timelineID][postID]
	return ok
}

// --------- timeline.Repository ---------

type fakeTimelineRepo struct{ w *world }

var _ timeline.Repository = (*fakeTimelineRepo)(nil)

func (f *fakeTimelineRepo) WithTx(*gorm.DB) timeline.Repository { return f }

func (f *fakeTimelineRepo) ProvisionFeeds(_ context.Context, ownerID int64) ([]dbmysql.Timeline, error) {
	var feeds []dbmysql.Timeline
	for _, name := range common.AllFeedNames {
		t := &dbmysql.Timeline{ID: f.w.id(), Name: name.String(), UserID: ownerID}
		f.w.timelines[t.ID] = t
		f.w.entries[t.ID] = make(map[int64]*dbmysql.FeedEntry)
		feeds = append(feeds, *t)
	}
	return feeds, nil
}

func (f *fakeTimelineRepo) ResolveNamedFeed(_ context.Context, ownerID int64, name common.FeedName) (*dbmysql.Timeline, error) {
	if t := f.w.feedOf(ownerID, name); t != nil {
		return t, nil
	}
	return nil, common.NewNotFoundError("timeline not found")
}

func (f *fakeTimelineRepo) GetByID(_ context.Context, id int64) (*dbmysql.Timeline, error) {
	if t, ok := f.w.timelines[id]; ok {
		return t, nil
	}
	return nil, common.NewNotFoundError("timeline not found")
}

func (f *fakeTimelineRepo) GetByIDs(_ context.Context, ids []int64) ([]dbmysql.Timeline, error) {
	var out []dbmysql.Timeline
	for _, id := range ids {
		if t, ok := f.w.timelines[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTimelineRepo) ListOwnerFeeds(_ context.Context, ownerID int64) ([]dbmysql.Timeline, error) {
	var out []dbmysql.Timeline
	for _, t := range f.w.timelines {
		if t.UserID == ownerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTimelineRepo) FeedIDsOfOwners(_ context.Context, ownerIDs []int64, name common.FeedName) ([]int64, error) {
	var ids []int64
	for _, owner := range ownerIDs {
		if t := f.w.feedOf(owner, name); t != nil {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func (f *fakeTimelineRepo) AddPostToTimelines(_ context.Context, postID int64, timelineIDs []int64, createdAt, bumpedAt time.Time) error {
	for _, tid := range timelineIDs {
		if entry, ok := f.w.entries[tid][postID]; ok {
			entry.BumpedAt = bumpedAt
			continue
		}
		f.w.entries[tid][postID] = &dbmysql.FeedEntry{TimelineID: tid, PostID: postID, CreatedAt: createdAt, BumpedAt: bumpedAt}
	}
	return nil
}

func (f *fakeTimelineRepo) RemovePostFromTimelines(_ context.Context, postID int64, timelineIDs []int64) error {
	for _, tid := range timelineIDs {
		delete(f.w.entries[tid], postID)
	}
	return nil
}

func (f *fakeTimelineRepo) RemovePostEverywhere(_ context.Context, postID int64) error {
	for tid := range f.w.entries {
		delete(f.w.entries[tid], postID)
	}
	return nil
}

func (f *fakeTimelineRepo) BumpPost(_ context.Context, postID int64, timelineIDs []int64, bumpedAt time.Time) error {
	for _, tid := range timelineIDs {
		if entry, ok := f.w.entries[tid][postID]; ok {
			entry.BumpedAt = bumpedAt
		}
	}
	return nil
}

func (f *fakeTimelineRepo) ListPostTimelineIDs(_ context.Context, postID int64) ([]int64, error) {
	var ids []int64
	for tid, posts := range f.w.entries {
		if _, ok := posts[postID]; ok {
			ids = append(ids, tid)
		}
	}
	return ids, nil
}

func (f *fakeTimelineRepo) GetMembership(_ context.Context, timelineIDs []int64, filter timeline.MembershipFilter) ([]timeline.MembershipRow, error) {
	return nil, nil
}

// --------- socialgraph.Repository ---------

type fakeGraphRepo struct{ w *world }

var _ socialgraph.Repository = (*fakeGraphRepo)(nil)

func (f *fakeGraphRepo) WithTx(*gorm.DB) socialgraph.Repository { return f }

func (f *fakeGraphRepo) CreateSubscription(_ context.Context, sub *dbmysql.Subscription) error {
	key := [2]int64{sub.UserID, sub.TimelineID}
	if f.w.subs[key] {
		return common.NewConflictError("already subscribed to this feed")
	}
	f.w.subs[key] = true
	return nil
}

func (f *fakeGraphRepo) DeleteSubscription(_ context.Context, userID, timelineID int64) error {
	delete(f.w.subs, [2]int64{userID, timelineID})
	return nil
}

func (f *fakeGraphRepo) IsSubscribedToTimeline(_ context.Context, userID, timelineID int64) (bool, error) {
	return f.w.subs[[2]int64{userID, timelineID}], nil
}

func (f *fakeGraphRepo) SubscribedTimelineIDs(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for key := range f.w.subs {
		if key[0] == userID {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

func (f *fakeGraphRepo) SubscribedFeedOwnerIDs(_ context.Context, userID int64, feedName common.FeedName) ([]int64, error) {
	var ids []int64
	for key := range f.w.subs {
		if key[0] != userID {
			continue
		}
		if t, ok := f.w.timelines[key[1]]; ok && t.Name == feedName.String() {
			ids = append(ids, t.UserID)
		}
	}
	return ids, nil
}

func (f *fakeGraphRepo) SubscriberIDsOfTimelines(_ context.Context, timelineIDs []int64) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, tid := range timelineIDs {
		for key := range f.w.subs {
			if key[1] == tid && !seen[key[0]] {
				seen[key[0]] = true
				ids = append(ids, key[0])
			}
		}
	}
	return ids, nil
}

func (f *fakeGraphRepo) CreateBan(_ context.Context, ban *dbmysql.Ban) error {
	key := [2]int64{ban.UserID, ban.BannedUserID}
	if f.w.bans[key] {
		return common.NewConflictError("user is already banned")
	}
	f.w.bans[key] = true
	return nil
}

func (f *fakeGraphRepo) DeleteBan(_ context.Context, userID, bannedUserID int64) error {
	delete(f.w.bans, [2]int64{userID, bannedUserID})
	return nil
}

func (f *fakeGraphRepo) BanExists(_ context.Context, a, b int64) (bool, error) {
	return f.w.bans[[2]int64{a, b}] || f.w.bans[[2]int64{b, a}], nil
}

func (f *fakeGraphRepo) BannedUserIDs(_ context.Context, userID int64) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for key := range f.w.bans {
		var other int64
		switch userID {
		case key[0]:
			other = key[1]
		case key[1]:
			other = key[0]
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}
	return ids, nil
}

// --------- user.UserRepository ---------

type fakeUserRepo struct{ w *world }

var _ user.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) WithTx(*gorm.DB) user.UserRepository { return f }

func (f *fakeUserRepo) CreateUser(_ context.Context, u *dbmysql.User) error {
	for _, existing := range f.w.users {
		if existing.Username == u.Username {
			return common.NewConflictError("username is already taken")
		}
	}
	u.UserID = f.w.id()
	f.w.users[u.UserID] = u
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, userID int64) (*dbmysql.User, error) {
	if u, ok := f.w.users[userID]; ok {
		return u, nil
	}
	return nil, common.NewNotFoundError("user not found")
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*dbmysql.User, error) {
	for _, u := range f.w.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, common.NewNotFoundError("user not found")
}

func (f *fakeUserRepo) GetUsersByIDs(_ context.Context, userIDs []int64) ([]dbmysql.User, error) {
	var out []dbmysql.User
	for _, id := range userIDs {
		if u, ok := f.w.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, u *dbmysql.User) error {
	f.w.users[u.UserID] = u
	return nil
}

func (f *fakeUserRepo) CheckUserExists(_ context.Context, username string) (bool, error) {
	_, err := f.GetUserByUsername(context.Background(), username)
	return err == nil, nil
}

func (f *fakeUserRepo) AddGroupAdmin(_ context.Context, _ *dbmysql.GroupAdmin) error { return nil }

func (f *fakeUserRepo) ListGroupAdmins(_ context.Context, _ []int64) ([]dbmysql.GroupAdmin, error) {
	return nil, nil
}

// --------- content.Repository ---------

type fakeContentRepo struct{ w *world }

var _ content.Repository = (*fakeContentRepo)(nil)

func (f *fakeContentRepo) WithTx(*gorm.DB) content.Repository { return f }

func (f *fakeContentRepo) CreatePost(_ context.Context, post *dbmysql.Post) error {
	post.PostID = f.w.id()
	stored := *post
	f.w.posts[post.PostID] = &stored
	return nil
}

func (f *fakeContentRepo) GetPostByID(_ context.Context, id int64) (*dbmysql.Post, error) {
	if p, ok := f.w.posts[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, common.NewNotFoundError("post not found")
}

func (f *fakeContentRepo) GetPostForUpdate(ctx context.Context, id int64) (*dbmysql.Post, error) {
	return f.GetPostByID(ctx, id)
}

func (f *fakeContentRepo) GetPostsByIDs(_ context.Context, ids []int64) ([]dbmysql.Post, error) {
	var out []dbmysql.Post
	for _, id := range ids {
		if p, ok := f.w.posts[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeContentRepo) SavePost(_ context.Context, post *dbmysql.Post) error {
	stored := *post
	f.w.posts[post.PostID] = &stored
	return nil
}

func (f *fakeContentRepo) DeletePost(_ context.Context, id int64) error {
	delete(f.w.posts, id)
	return nil
}

func (f *fakeContentRepo) CreateComment(_ context.Context, comment *dbmysql.Comment) error {
	comment.CommentID = f.w.id()
	stored := *comment
	f.w.comments[comment.CommentID] = &stored
	return nil
}

func (f *fakeContentRepo) GetCommentByID(_ context.Context, id int64) (*dbmysql.Comment, error) {
	if c, ok := f.w.comments[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, common.NewNotFoundError("comment not found")
}

func (f *fakeContentRepo) SaveComment(_ context.Context, comment *dbmysql.Comment) error {
	stored := *comment
	f.w.comments[comment.CommentID] = &stored
	return nil
}

func (f *fakeContentRepo) DeleteComment(_ context.Context, id int64) error {
	delete(f.w.comments, id)
	return nil
}

func (f *fakeContentRepo) ListCommentsForPosts(_ context.Context, postIDs []int64) ([]dbmysql.Comment, error) {
	var out []dbmysql.Comment
	for _, pid := range postIDs {
		for _, c := range f.w.comments {
			if c.PostID == pid {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (f *fakeContentRepo) CountUserComments(_ context.Context, postID, userID int64) (int64, error) {
	var count int64
	for _, c := range f.w.comments {
		if c.PostID == postID && c.AuthorID == userID && c.IsVisible() {
			count++
		}
	}
	return count, nil
}

func (f *fakeContentRepo) CreateLike(_ context.Context, like *dbmysql.Like) error {
	key := likeKey(like.UserID, like.PostID)
	if _, ok := f.w.likes[key]; ok {
		return common.NewConflictError("post is already liked")
	}
	stored := *like
	f.w.likes[key] = &stored
	return nil
}

func (f *fakeContentRepo) HasLike(_ context.Context, userID, postID int64) (bool, error) {
	_, ok := f.w.likes[likeKey(userID, postID)]
	return ok, nil
}

func (f *fakeContentRepo) DeleteLike(_ context.Context, userID, postID int64) (bool, error) {
	key := likeKey(userID, postID)
	if _, ok := f.w.likes[key]; !ok {
		return false, nil
	}
	delete(f.w.likes, key)
	return true, nil
}

func (f *fakeContentRepo) ListLikesForPosts(_ context.Context, postIDs []int64) ([]dbmysql.Like, error) {
	var out []dbmysql.Like
	for _, pid := range postIDs {
		for _, l := range f.w.likes {
			if l.PostID == pid {
				out = append(out, *l)
			}
		}
	}
	return out, nil
}

func (f *fakeContentRepo) CreateAttachment(_ context.Context, att *dbmysql.Attachment) error {
	att.AttachmentID = f.w.id()
	stored := *att
	f.w.attachments[att.AttachmentID] = &stored
	return nil
}

func (f *fakeContentRepo) GetAttachmentByID(_ context.Context, id int64) (*dbmysql.Attachment, error) {
	if a, ok := f.w.attachments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, common.NewNotFoundError("attachment not found")
}

func (f *fakeContentRepo) AttachToPost(_ context.Context, attachmentIDs []int64, userID, postID int64) error {
	for _, id := range attachmentIDs {
		if a, ok := f.w.attachments[id]; ok && a.UserID == userID && a.PostID == nil {
			pid := postID
			a.PostID = &pid
		}
	}
	return nil
}

func (f *fakeContentRepo) ListAttachmentsForPosts(_ context.Context, postIDs []int64) ([]dbmysql.Attachment, error) {
	var out []dbmysql.Attachment
	for _, pid := range postIDs {
		for _, a := range f.w.attachments {
			if a.PostID != nil && *a.PostID == pid {
				out = append(out, *a)
			}
		}
	}
	return out, nil
}

func (f *fakeContentRepo) DeleteAttachmentsForPost(_ context.Context, postID int64) ([]dbmysql.Attachment, error) {
	var out []dbmysql.Attachment
	for id, a := range f.w.attachments {
		if a.PostID != nil && *a.PostID == postID {
			out = append(out, *a)
			delete(f.w.attachments, id)
		}
	}
	return out, nil
}

func (f *fakeContentRepo) DeleteCommentsForPost(_ context.Context, postID int64) error {
	for id, c := range f.w.comments {
		if c.PostID == postID {
			delete(f.w.comments, id)
		}
	}
	return nil
}

func (f *fakeContentRepo) DeleteLikesForPost(_ context.Context, postID int64) error {
	for key, l := range f.w.likes {
		if l.PostID == postID {
			delete(f.w.likes, key)
		}
	}
	return nil
}

// --------- stats.Repository ---------

type fakeStatsRepo struct{ w *world }

var _ stats.Repository = (*fakeStatsRepo)(nil)

func (f *fakeStatsRepo) WithTx(*gorm.DB) stats.Repository { return f }

func (f *fakeStatsRepo) Incr(_ context.Context, userID int64, kind stats.CounterKind) error {
	if f.w.counters[userID] == nil {
		f.w.counters[userID] = make(map[stats.CounterKind]int)
	}
	f.w.counters[userID][kind]++
	return nil
}

func (f *fakeStatsRepo) Decr(_ context.Context, userID int64, kind stats.CounterKind) error {
	if f.w.counters[userID] == nil {
		f.w.counters[userID] = make(map[stats.CounterKind]int)
	}
	if f.w.counters[userID][kind] > 0 {
		f.w.counters[userID][kind]--
	}
	return nil
}

func (f *fakeStatsRepo) Get(_ context.Context, userID int64) (*dbmysql.UserStat, error) {
	c := f.w.counters[userID]
	return &dbmysql.UserStat{
		UserID:        userID,
		PostsCount:    int64(c[stats.PostsCreated]),
		CommentsCount: int64(c[stats.CommentsGiven]),
		LikesCount:    int64(c[stats.LikesGiven]),
	}, nil
}
