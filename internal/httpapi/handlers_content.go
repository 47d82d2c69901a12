package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/fanout"
)

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError("invalid " + name)
	}
	return id, nil
}

type createPostRequest struct {
	Body          string  `json:"body"`
	Destinations  []int64 `json:"destinations"`
	AttachmentIDs []int64 `json:"attachment_ids"`
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	post, err := a.writer.CreatePost(r.Context(), fanout.CreatePostRequest{
		AuthorID:      viewerID(r),
		Body:          req.Body,
		Destinations:  req.Destinations,
		AttachmentIDs: req.AttachmentIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

type bodyRequest struct {
	Body string `json:"body"`
}

func (a *API) updatePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req bodyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	post, err := a.writer.UpdatePost(r.Context(), viewerID(r), postID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	attachments, err := a.writer.DeletePost(r.Context(), viewerID(r), postID)
	if err != nil {
		writeError(w, err)
		return
	}
	a.attachments.DeleteBlobs(r.Context(), attachments)
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) hidePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.writer.HidePost(r.Context(), viewerID(r), postID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) unhidePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.writer.UnhidePost(r.Context(), viewerID(r), postID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) addComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req bodyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	comment, err := a.writer.AddComment(r.Context(), viewerID(r), postID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (a *API) updateComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req bodyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	comment, err := a.writer.UpdateComment(r.Context(), viewerID(r), commentID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.writer.DeleteComment(r.Context(), viewerID(r), commentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type hideCommentRequest struct {
	HideType int16 `json:"hide_type"`
}

func (a *API) hideComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}
	req := hideCommentRequest{HideType: common.CommentDeleted}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := a.writer.HideComment(r.Context(), viewerID(r), commentID, req.HideType); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) addLike(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.writer.AddLike(r.Context(), viewerID(r), postID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) removeLike(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.writer.RemoveLike(r.Context(), viewerID(r), postID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
