package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

type registerRequest struct {
	Username   string `json:"username"`
	ScreenName string `json:"screen_name"`
	Privacy    string `json:"privacy"`
}

type sessionResponse struct {
	User  *dbmysql.User `json:"user"`
	Token string        `json:"token"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := a.users.Register(r.Context(), req.Username, req.ScreenName, req.Privacy)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := common.GenerateToken(u.UserID, u.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: u, Token: token})
}

func (a *API) createGroup(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	g, err := a.users.CreateGroup(r.Context(), viewerID(r), req.Username, req.ScreenName, req.Privacy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

type preferencesRequest struct {
	Privacy            string  `json:"privacy"`
	HiddenCommentTypes []int16 `json:"hidden_comment_types"`
}

func (a *API) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := a.users.UpdatePreferences(r.Context(), viewerID(r), req.Privacy, req.HiddenCommentTypes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) userStats(w http.ResponseWriter, r *http.Request) {
	u, err := a.userLookup.GetUserByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeError(w, err)
		return
	}
	stat, err := a.stats.Get(r.Context(), u.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stat)
}

// targetUser resolves the {username} path variable.
func (a *API) targetUser(r *http.Request) (*dbmysql.User, error) {
	return a.userLookup.GetUserByUsername(r.Context(), mux.Vars(r)["username"])
}

func (a *API) subscribe(w http.ResponseWriter, r *http.Request) {
	target, err := a.targetUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.graph.Subscribe(r.Context(), viewerID(r), target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) unsubscribe(w http.ResponseWriter, r *http.Request) {
	target, err := a.targetUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.graph.Unsubscribe(r.Context(), viewerID(r), target.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) ban(w http.ResponseWriter, r *http.Request) {
	target, err := a.targetUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.graph.Ban(r.Context(), viewerID(r), target.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) unban(w http.ResponseWriter, r *http.Request) {
	target, err := a.targetUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.graph.Unban(r.Context(), viewerID(r), target.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
