package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/socialgraph"
	"github.com/davidmz/freefeed-server-1/internal/timeline"
)

// world is the shared in-memory store behind the fakes. Scenarios
// build memberships directly, the way the fan-out writer would have.
type world struct {
	users     map[int64]*dbmysql.User
	admins    []dbmysql.GroupAdmin
	timelines map[int64]*dbmysql.Timeline
	entries   map[int64]map[int64]*dbmysql.FeedEntry
	posts     map[int64]*dbmysql.Post
	comments  []dbmysql.Comment
	likes     []dbmysql.Like
	subs      map[[2]int64]bool
	bans      map[[2]int64]bool
	nextID    int64
	clock     time.Time
}

func newWorld() *world {
	return &world{
		users:     make(map[int64]*dbmysql.User),
		timelines: make(map[int64]*dbmysql.Timeline),
		entries:   make(map[int64]map[int64]*dbmysql.FeedEntry),
		posts:     make(map[int64]*dbmysql.Post),
		subs:      make(map[[2]int64]bool),
		bans:      make(map[[2]int64]bool),
		clock:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (w *world) id() int64 {
	w.nextID++
	return w.nextID
}

func (w *world) tick() time.Time {
	w.clock = w.clock.Add(time.Minute)
	return w.clock
}

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

func (w *world) feedOf(ownerID int64, name common.FeedName) *dbmysql.Timeline {
	for _, t := range w.timelines {
		if t.UserID == ownerID && t.Name == name.String() {
			return t
		}
	}
	return nil
}

func (w *world) subscribe(userID, targetID int64) {
	w.subs[[2]int64{userID, w.feedOf(targetID, common.FeedNamePosts).ID}] = true
}

// addPost creates a post and places it into the given timelines with
// the next clock tick as both creation and bump time.
func (w *world) addPost(authorID int64, propagable bool, timelineIDs ...int64) *dbmysql.Post {
	now := w.tick()
	p := &dbmysql.Post{
		PostID:       w.id(),
		Body:         fmt.Sprintf("post %d", w.nextID),
		AuthorID:     authorID,
		IsPropagable: propagable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	w.posts[p.PostID] = p
	w.place(p.PostID, now, now, timelineIDs...)
	return p
}

func (w *world) place(postID int64, createdAt, bumpedAt time.Time, timelineIDs ...int64) {
	p := w.posts[postID]
	for _, tid := range timelineIDs {
		w.entries[tid][postID] = &dbmysql.FeedEntry{TimelineID: tid, PostID: postID, CreatedAt: createdAt, BumpedAt: bumpedAt}
		if !p.FeedIntIDs.Contains(tid) {
			p.FeedIntIDs = append(p.FeedIntIDs, tid)
		}
	}
}

func (w *world) addComment(postID, authorID int64, body string, hideType int16) *dbmysql.Comment {
	c := dbmysql.Comment{
		CommentID: w.id(),
		Body:      body,
		AuthorID:  authorID,
		PostID:    postID,
		HideType:  hideType,
		CreatedAt: w.tick(),
	}
	w.comments = append(w.comments, c)
	return &c
}

func (w *world) addLike(postID, userID int64) {
	w.likes = append(w.likes, dbmysql.Like{UserID: userID, PostID: postID, CreatedAt: w.tick()})
	w.posts[postID].LikesCount++
}

// --------- ContentSource ---------

type fakeContent struct{ w *world }

var _ ContentSource = (*fakeContent)(nil)

func (f *fakeContent) GetPostsByIDs(_ context.Context, ids []int64) ([]dbmysql.Post, error) {
	var out []dbmysql.Post
	for _, id := range ids {
		if p, ok := f.w.posts[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeContent) ListCommentsForPosts(_ context.Context, postIDs []int64) ([]dbmysql.Comment, error) {
	want := make(map[int64]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	var out []dbmysql.Comment
	for _, c := range f.w.comments {
		if want[c.PostID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContent) ListLikesForPosts(_ context.Context, postIDs []int64) ([]dbmysql.Like, error) {
	want := make(map[int64]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	var out []dbmysql.Like
	for _, l := range f.w.likes {
		if want[l.PostID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeContent) ListAttachmentsForPosts(_ context.Context, _ []int64) ([]dbmysql.Attachment, error) {
	return nil, nil
}

// --------- UserDirectory ---------

type fakeUsers struct{ w *world }

var _ UserDirectory = (*fakeUsers)(nil)

func (f *fakeUsers) GetUserByID(_ context.Context, userID int64) (*dbmysql.User, error) {
	if u, ok := f.w.users[userID]; ok {
		return u, nil
	}
	return nil, common.NewNotFoundError("user not found")
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*dbmysql.User, error) {
	for _, u := range f.w.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, common.NewNotFoundError("user not found")
}

func (f *fakeUsers) GetUsersByIDs(_ context.Context, userIDs []int64) ([]dbmysql.User, error) {
	var out []dbmysql.User
	for _, id := range userIDs {
		if u, ok := f.w.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ListGroupAdmins(_ context.Context, groupIDs []int64) ([]dbmysql.GroupAdmin, error) {
	var out []dbmysql.GroupAdmin
	for _, a := range f.w.admins {
		for _, gid := range groupIDs {
			if a.GroupID == gid {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

// --------- timeline.Repository ---------

type fakeTimelines struct{ w *world }

var _ timeline.Repository = (*fakeTimelines)(nil)

func (f *fakeTimelines) WithTx(*gorm.DB) timeline.Repository { return f }

func (f *fakeTimelines) ProvisionFeeds(context.Context, int64) ([]dbmysql.Timeline, error) {
	return nil, nil
}

func (f *fakeTimelines) ResolveNamedFeed(_ context.Context, ownerID int64, name common.FeedName) (*dbmysql.Timeline, error) {
	if t := f.w.feedOf(ownerID, name); t != nil {
		return t, nil
	}
	return nil, common.NewNotFoundError("timeline not found")
}

func (f *fakeTimelines) GetByID(_ context.Context, id int64) (*dbmysql.Timeline, error) {
	if t, ok := f.w.timelines[id]; ok {
		return t, nil
	}
	return nil, common.NewNotFoundError("timeline not found")
}

func (f *fakeTimelines) GetByIDs(_ context.Context, ids []int64) ([]dbmysql.Timeline, error) {
	var out []dbmysql.Timeline
	for _, id := range ids {
		if t, ok := f.w.timelines[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTimelines) ListOwnerFeeds(_ context.Context, ownerID int64) ([]dbmysql.Timeline, error) {
	var out []dbmysql.Timeline
	for _, t := range f.w.timelines {
		if t.UserID == ownerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTimelines) FeedIDsOfOwners(_ context.Context, ownerIDs []int64, name common.FeedName) ([]int64, error) {
	var ids []int64
	for _, owner := range ownerIDs {
		if t := f.w.feedOf(owner, name); t != nil {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func (f *fakeTimelines) AddPostToTimelines(_ context.Context, postID int64, timelineIDs []int64, createdAt, bumpedAt time.Time) error {
	f.w.place(postID, createdAt, bumpedAt, timelineIDs...)
	return nil
}

func (f *fakeTimelines) RemovePostFromTimelines(_ context.Context, postID int64, timelineIDs []int64) error {
	for _, tid := range timelineIDs {
		delete(f.w.entries[tid], postID)
	}
	return nil
}

func (f *fakeTimelines) RemovePostEverywhere(_ context.Context, postID int64) error {
	for tid := range f.w.entries {
		delete(f.w.entries[tid], postID)
	}
	return nil
}

func (f *fakeTimelines) BumpPost(_ context.Context, postID int64, timelineIDs []int64, bumpedAt time.Time) error {
	for _, tid := range timelineIDs {
		if e, ok := f.w.entries[tid][postID]; ok {
			e.BumpedAt = bumpedAt
		}
	}
	return nil
}

func (f *fakeTimelines) ListPostTimelineIDs(_ context.Context, postID int64) ([]int64, error) {
	var ids []int64
	for tid, posts := range f.w.entries {
		if _, ok := posts[postID]; ok {
			ids = append(ids, tid)
		}
	}
	return ids, nil
}

// GetMembership mirrors the SQL scan: merge sources, de-duplicate with
// MIN(created)/MAX(bumped), filter, sort, paginate.
func (f *fakeTimelines) GetMembership(_ context.Context, sources []int64, flt timeline.MembershipFilter) ([]timeline.MembershipRow, error) {
	excludeAuthors := make(map[int64]bool, len(flt.ExcludeAuthorIDs))
	for _, id := range flt.ExcludeAuthorIDs {
		excludeAuthors[id] = true
	}
	onlyAuthors := make(map[int64]bool, len(flt.AuthorIDs))
	for _, id := range flt.AuthorIDs {
		onlyAuthors[id] = true
	}

	agg := make(map[int64]*timeline.MembershipRow)
	consider := func(tid int64, propagableOnly bool) {
		for pid, e := range f.w.entries[tid] {
			post, ok := f.w.posts[pid]
			if !ok {
				continue
			}
			if propagableOnly && !post.IsPropagable {
				continue
			}
			if excludeAuthors[post.AuthorID] {
				continue
			}
			if len(onlyAuthors) > 0 && !onlyAuthors[post.AuthorID] {
				continue
			}
			if flt.CreatedBefore != nil && !post.CreatedAt.Before(*flt.CreatedBefore) {
				continue
			}
			if flt.CreatedAfter != nil && !post.CreatedAt.After(*flt.CreatedAfter) {
				continue
			}
			row, ok := agg[pid]
			if !ok {
				agg[pid] = &timeline.MembershipRow{PostID: pid, CreatedAt: e.CreatedAt, BumpedAt: e.BumpedAt}
				continue
			}
			if e.CreatedAt.Before(row.CreatedAt) {
				row.CreatedAt = e.CreatedAt
			}
			if e.BumpedAt.After(row.BumpedAt) {
				row.BumpedAt = e.BumpedAt
			}
		}
	}
	for _, tid := range sources {
		consider(tid, false)
	}
	for _, tid := range flt.PropagableOnlySources {
		consider(tid, true)
	}
	if flt.ExcludeTimelineID != nil {
		for pid := range f.w.entries[*flt.ExcludeTimelineID] {
			delete(agg, pid)
		}
	}
	if len(flt.RequireTimelineIDs) > 0 {
		for pid := range agg {
			required := false
			for _, tid := range flt.RequireTimelineIDs {
				if _, ok := f.w.entries[tid][pid]; ok {
					required = true
					break
				}
			}
			if !required {
				delete(agg, pid)
			}
		}
	}

	rows := make([]timeline.MembershipRow, 0, len(agg))
	for _, row := range agg {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if flt.SortBy == "created" {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].BumpedAt.After(rows[j].BumpedAt)
	})

	if flt.Offset > 0 {
		if flt.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[flt.Offset:]
	}
	if flt.Limit > 0 && len(rows) > flt.Limit {
		rows = rows[:flt.Limit]
	}
	return rows, nil
}

// --------- socialgraph.Repository ---------

type fakeGraph struct{ w *world }

var _ socialgraph.Repository = (*fakeGraph)(nil)

func (f *fakeGraph) WithTx(*gorm.DB) socialgraph.Repository { return f }

func (f *fakeGraph) CreateSubscription(_ context.Context, sub *dbmysql.Subscription) error {
	f.w.subs[[2]int64{sub.UserID, sub.TimelineID}] = true
	return nil
}

func (f *fakeGraph) DeleteSubscription(_ context.Context, userID, timelineID int64) error {
	delete(f.w.subs, [2]int64{userID, timelineID})
	return nil
}

func (f *fakeGraph) IsSubscribedToTimeline(_ context.Context, userID, timelineID int64) (bool, error) {
	return f.w.subs[[2]int64{userID, timelineID}], nil
}

func (f *fakeGraph) SubscribedTimelineIDs(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for key := range f.w.subs {
		if key[0] == userID {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

func (f *fakeGraph) SubscribedFeedOwnerIDs(_ context.Context, userID int64, feedName common.FeedName) ([]int64, error) {
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

func (f *fakeGraph) SubscriberIDsOfTimelines(_ context.Context, timelineIDs []int64) ([]int64, error) {
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

func (f *fakeGraph) CreateBan(_ context.Context, ban *dbmysql.Ban) error {
	f.w.bans[[2]int64{ban.UserID, ban.BannedUserID}] = true
	return nil
}

func (f *fakeGraph) DeleteBan(_ context.Context, userID, bannedUserID int64) error {
	delete(f.w.bans, [2]int64{userID, bannedUserID})
	return nil
}

func (f *fakeGraph) BanExists(_ context.Context, a, b int64) (bool, error) {
	return f.w.bans[[2]int64{a, b}] || f.w.bans[[2]int64{b, a}], nil
}

func (f *fakeGraph) BannedUserIDs(_ context.Context, userID int64) ([]int64, error) {
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
