package feed

import (
	"time"
)

// HomefeedMode selects which activity sources a RiverOfNews read
// merges in besides the materialized river itself.
type HomefeedMode string

const (
	// HomefeedModeFriendsOnly reads the river alone.
	HomefeedModeFriendsOnly HomefeedMode = "friends-only"
	// HomefeedModeClassic adds comment/like activity of subscribed
	// users, restricted to propagable posts.
	HomefeedModeClassic HomefeedMode = "classic"
	// HomefeedModeFriendsAllActivity widens classic to the activity of
	// mutual friends, without the propagability restriction.
	HomefeedModeFriendsAllActivity HomefeedMode = "friends-all-activity"
)

func (m HomefeedMode) IsValid() bool {
	switch m {
	case HomefeedModeFriendsOnly, HomefeedModeClassic, HomefeedModeFriendsAllActivity:
		return true
	}
	return false
}

const (
	defaultPageSize = 30
	maxPageSize     = 120

	SortByBumped  = "bumped"
	SortByCreated = "created"
)

// Params controls one feed read. The zero value is usable; Normalize
// fills in defaults and clamps out-of-range values instead of failing,
// matching how lenient the query-string surface is.
type Params struct {
	Limit  int
	Offset int
	Sort   string // "bumped" (default) or "created"

	HomefeedMode HomefeedMode
	WithMyPosts  bool

	// HiddenCommentTypes overrides the viewer's stored preference when
	// non-nil: comments with these hide types are omitted from post
	// views and counted instead.
	HiddenCommentTypes []int16

	CreatedBefore *time.Time
	CreatedAfter  *time.Time
}

func (p Params) Normalize() Params {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Sort != SortByCreated {
		p.Sort = SortByBumped
	}
	if !p.HomefeedMode.IsValid() {
		p.HomefeedMode = HomefeedModeClassic
	}
	return p
}
