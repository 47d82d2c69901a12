package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/davidmz/freefeed-server-1/internal/fanout"
	"github.com/davidmz/freefeed-server-1/internal/feed"
	"github.com/davidmz/freefeed-server-1/internal/media"
	"github.com/davidmz/freefeed-server-1/internal/socialgraph"
	"github.com/davidmz/freefeed-server-1/internal/stats"
	"github.com/davidmz/freefeed-server-1/internal/user"
)

// API wires every service behind the HTTP surface.
type API struct {
	writer      *fanout.Writer
	reader      *feed.Reader
	users       *user.UserService
	userLookup  user.UserRepository
	graph       *socialgraph.GraphService
	stats       *stats.StatsService
	attachments *media.Service
}

func NewAPI(
	writer *fanout.Writer,
	reader *feed.Reader,
	users *user.UserService,
	userLookup user.UserRepository,
	graph *socialgraph.GraphService,
	statsSvc *stats.StatsService,
	attachments *media.Service,
) *API {
	return &API{
		writer:      writer,
		reader:      reader,
		users:       users,
		userLookup:  userLookup,
		graph:       graph,
		stats:       statsSvc,
		attachments: attachments,
	}
}

// Router builds the versioned route table.
func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/users", a.register).Methods(http.MethodPost)
	v1.HandleFunc("/groups", requireAuth(a.createGroup)).Methods(http.MethodPost)
	v1.HandleFunc("/users/me/preferences", requireAuth(a.updatePreferences)).Methods(http.MethodPut)
	v1.HandleFunc("/users/{username}/stats", a.userStats).Methods(http.MethodGet)

	v1.HandleFunc("/users/{username}/subscribe", requireAuth(a.subscribe)).Methods(http.MethodPost)
	v1.HandleFunc("/users/{username}/unsubscribe", requireAuth(a.unsubscribe)).Methods(http.MethodPost)
	v1.HandleFunc("/users/{username}/ban", requireAuth(a.ban)).Methods(http.MethodPost)
	v1.HandleFunc("/users/{username}/unban", requireAuth(a.unban)).Methods(http.MethodPost)

	v1.HandleFunc("/posts", requireAuth(a.createPost)).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{postID}", requireAuth(a.updatePost)).Methods(http.MethodPut)
	v1.HandleFunc("/posts/{postID}", requireAuth(a.deletePost)).Methods(http.MethodDelete)
	v1.HandleFunc("/posts/{postID}/hide", requireAuth(a.hidePost)).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{postID}/unhide", requireAuth(a.unhidePost)).Methods(http.MethodPost)

	v1.HandleFunc("/posts/{postID}/comments", requireAuth(a.addComment)).Methods(http.MethodPost)
	v1.HandleFunc("/comments/{commentID}", requireAuth(a.updateComment)).Methods(http.MethodPut)
	v1.HandleFunc("/comments/{commentID}", requireAuth(a.deleteComment)).Methods(http.MethodDelete)
	v1.HandleFunc("/comments/{commentID}/hide", requireAuth(a.hideComment)).Methods(http.MethodPost)

	v1.HandleFunc("/posts/{postID}/like", requireAuth(a.addLike)).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{postID}/like", requireAuth(a.removeLike)).Methods(http.MethodDelete)

	v1.HandleFunc("/timelines/{username}/{feedName}", a.readFeed).Methods(http.MethodGet)

	v1.HandleFunc("/attachments", requireAuth(a.uploadAttachment)).Methods(http.MethodPost)
	v1.HandleFunc("/attachments/{attachmentID}/download", a.downloadAttachment).Methods(http.MethodGet)

	return requestLogging(withAuth(r))
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
