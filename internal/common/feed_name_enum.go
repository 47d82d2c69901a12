package common

// FeedName represents the named feed kinds a user or group owns.
// Every account gets one timeline per name, provisioned at signup.
type FeedName string

const (
	FeedNamePosts         FeedName = "Posts"
	FeedNameComments      FeedName = "Comments"
	FeedNameLikes         FeedName = "Likes"
	FeedNameDirects       FeedName = "Directs"
	FeedNameRiverOfNews   FeedName = "RiverOfNews"
	FeedNameMyDiscussions FeedName = "MyDiscussions"
	FeedNameHides         FeedName = "Hides"
)

// AllFeedNames lists every feed provisioned for a new account.
var AllFeedNames = []FeedName{
	FeedNamePosts,
	FeedNameComments,
	FeedNameLikes,
	FeedNameDirects,
	FeedNameRiverOfNews,
	FeedNameMyDiscussions,
	FeedNameHides,
}

// String returns the string representation
func (fn FeedName) String() string {
	return string(fn)
}

// IsValid checks if the feed name is one of the provisioned kinds
func (fn FeedName) IsValid() bool {
	for _, n := range AllFeedNames {
		if fn == n {
			return true
		}
	}
	return false
}

// IsActivity reports whether the feed records comment/like activity
// rather than authored posts. Activity feeds are the extra sources a
// homefeed pulls in under the classic and friends-all-activity modes.
func (fn FeedName) IsActivity() bool {
	return fn == FeedNameComments || fn == FeedNameLikes
}

// IsPersonal reports whether the feed is readable only by its owner.
func (fn FeedName) IsPersonal() bool {
	return fn == FeedNameRiverOfNews || fn == FeedNameMyDiscussions || fn == FeedNameHides
}

// ParseFeedName normalizes a request-supplied feed name.
func ParseFeedName(s string) (FeedName, bool) {
	fn := FeedName(s)
	return fn, fn.IsValid()
}

// Comment hide types. A non-zero hide type redacts the comment body
// while preserving its position in the post's comment sequence.
const (
	CommentVisible        int16 = 0
	CommentHiddenByBan    int16 = 1
	CommentDeleted        int16 = 2
	CommentHiddenArchived int16 = 3
)
