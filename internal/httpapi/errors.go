package httpapi

import (
	"net/http"

	"github.com/deepdreamgames/pachka/internal/apperr"
	"github.com/deepdreamgames/pachka/internal/ojson"
)

// writeError renders the wire protocol's JSON error body:
// {"statusCode": <code>, "error": <message>}.
func writeError(w http.ResponseWriter, status int, message string) {
	body := ojson.NewObject()
	body.Set("statusCode", int64(status))
	body.Set("error", message)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	ojson.Write(w, body)
}

// writeAppErr translates an *apperr.Error into a JSON error response, using
// its tagged status code. An error never wrapped by apperr defaults to
// CodeBadRequest, matching the wire protocol's default error code.
func writeAppErr(w http.ResponseWriter, err error) {
	code := apperr.CodeBadRequest
	if apperr.HasCode(err, apperr.CodeNotFound) {
		code = apperr.CodeNotFound
	} else if apperr.HasCode(err, apperr.CodeInternal) {
		code = apperr.CodeInternal
	}
	writeError(w, apperr.ToHTTPStatus(code), err.Error())
}
