package feed

import (
	"time"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

// TimelineView is the feed metadata returned with every read, even
// when visibility rules empty the post list.
type TimelineView struct {
	UID     string `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
}

type UserView struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	ScreenName string `json:"screen_name"`
	Type       string `json:"type"`
	Privacy    string `json:"privacy"`
}

type CommentView struct {
	CommentID int64     `json:"comment_id"`
	Body      string    `json:"body"`
	AuthorID  int64     `json:"author_id"`
	HideType  int16     `json:"hide_type"`
	CreatedAt time.Time `json:"created_at"`
}

type PostView struct {
	PostID        int64          `json:"post_id"`
	Body          string         `json:"body"`
	AuthorID      int64          `json:"author_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	BumpedAt      time.Time      `json:"bumped_at"`
	Destinations  []TimelineView `json:"destinations"`
	Comments      []CommentView  `json:"comments"`
	CommentsCount int            `json:"comments_count"`
	// OmittedComments counts comments dropped by the viewer's hidden
	// comment type preference.
	OmittedComments int     `json:"omitted_comments"`
	LikerIDs        []int64 `json:"liker_ids"`
	LikesCount      int     `json:"likes_count"`
	OmittedLikes    int     `json:"omitted_likes"`
	AttachmentIDs   []int64 `json:"attachment_ids"`
}

// Response is one page of a feed read. Users carries every account
// referenced anywhere in the page so clients resolve ids locally.
type Response struct {
	Timeline      TimelineView `json:"timeline"`
	Posts         []PostView   `json:"posts"`
	Users         []UserView   `json:"users"`
	AdminIDs      []int64      `json:"admin_ids,omitempty"`
	SubscriberIDs []int64      `json:"subscriber_ids,omitempty"`
	IsLastPage    bool         `json:"is_last_page"`
}

func timelineView(t *dbmysql.Timeline) TimelineView {
	return TimelineView{UID: t.UID, Name: t.Name, OwnerID: t.UserID}
}

func userView(u *dbmysql.User) UserView {
	return UserView{
		UserID:     u.UserID,
		Username:   u.Username,
		ScreenName: u.ScreenName,
		Type:       u.Type,
		Privacy:    u.Privacy,
	}
}

// redactedBody is the placeholder shown for a comment whose body the
// viewer may not see but whose slot in the sequence is kept.
func redactedBody(hideType int16) string {
	switch hideType {
	case common.CommentHiddenByBan:
		return "Hidden comment"
	case common.CommentDeleted:
		return "Deleted comment"
	case common.CommentHiddenArchived:
		return "Archived comment"
	default:
		return "Hidden comment"
	}
}
