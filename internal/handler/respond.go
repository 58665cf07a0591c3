package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// writeJSON encodes a response body with the given encoder function and
// writes it with the status code. Encoding happens before headers are sent,
// so an encoder bug can never produce a half-written 200.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard error envelope {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}
