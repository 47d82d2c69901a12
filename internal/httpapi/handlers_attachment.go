package httpapi

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/davidmz/freefeed-server-1/internal/common"
)

const maxUploadBytes = 32 << 20

func (a *API) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, common.NewValidationError("malformed multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, common.NewValidationError("file field is required"))
		return
	}
	defer file.Close()

	att, err := a.attachments.Upload(r.Context(), viewerID(r), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (a *API) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID, err := pathID(r, "attachmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	att, reader, err := a.attachments.Open(r.Context(), attachmentID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", att.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(att.FileSize, 10))
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("stream attachment %d: %v", att.AttachmentID, err)
	}
}
