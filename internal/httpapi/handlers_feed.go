package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/feed"
)

// parseFeedParams reads the query string leniently: malformed values
// fall back to defaults instead of failing the request, out-of-range
// values are clamped by Params.Normalize.
func parseFeedParams(r *http.Request) feed.Params {
	q := r.URL.Query()
	p := feed.Params{
		Sort:         q.Get("sort"),
		HomefeedMode: feed.HomefeedMode(q.Get("homefeed-mode")),
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		p.Offset = v
	}
	if v, err := strconv.ParseBool(q.Get("with-my-posts")); err == nil {
		p.WithMyPosts = v
	}
	if t, ok := parseLenientTime(q.Get("created-before")); ok {
		p.CreatedBefore = &t
	}
	if t, ok := parseLenientTime(q.Get("created-after")); ok {
		p.CreatedAfter = &t
	}
	if raw, present := q["hidden-comment-types"]; present {
		p.HiddenCommentTypes = parseHideTypes(raw)
	}
	return p
}

// parseLenientTime accepts RFC3339 or unix seconds.
func parseLenientTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), true
	}
	return time.Time{}, false
}

func parseHideTypes(raw []string) []int16 {
	types := []int16{}
	for _, group := range raw {
		for _, part := range strings.Split(group, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if v, err := strconv.ParseInt(part, 10, 16); err == nil {
				types = append(types, int16(v))
			}
		}
	}
	return types
}

func (a *API) readFeed(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	feedName, ok := common.ParseFeedName(vars["feedName"])
	if !ok {
		writeError(w, common.NewValidationError("unknown feed name"))
		return
	}
	page, err := a.reader.ReadFeed(r.Context(), vars["username"], feedName, viewerID(r), parseFeedParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
