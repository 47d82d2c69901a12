package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/davidmz/freefeed-server-1/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain error kinds onto HTTP statuses. Anything
// unclassified is a 500 with a generic body so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	var derr *common.DomainError
	if !errors.As(err, &derr) {
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch derr.Kind {
	case common.KindValidation:
		status = http.StatusUnprocessableEntity
	case common.KindConflict:
		status = http.StatusConflict
	case common.KindNotFound:
		status = http.StatusNotFound
	case common.KindAccessDenied:
		status = http.StatusForbidden
	case common.KindTransientStore:
		log.Printf("store error: %v", derr.Unwrap())
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "temporary storage problem"})
		return
	}
	writeJSON(w, status, errorBody{Error: derr.Message})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewValidationError("malformed request body")
	}
	return nil
}
