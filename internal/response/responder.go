package response

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Responder renders handler outcomes. Unexpected errors get an error id which
// is logged; their message is only shown in DebugMode.
type Responder struct {
	DebugMode bool
}

// RespondAndLogError will respond with generic error code (500) and log with slog.LevelError level
func (rr *Responder) RespondAndLogError(w http.ResponseWriter, ctx context.Context, err error) {
	errId := uuid.NewString()
	log(ctx, slog.LevelError, err.Error(), slog.String("err_id", errId))
	rr.renderError(w, ctx, http.StatusInternalServerError, err.Error(), errId)
}

// RespondWithMessage shows the message whatever the mode. Use for errors the
// client caused or can act upon.
func (rr *Responder) RespondWithMessage(w http.ResponseWriter, ctx context.Context, err error, status int) {
	log(ctx, slog.LevelInfo, err.Error(), slog.Int("status", status))
	rr.renderMessage(w, ctx, status, capitalize(err.Error()))
}

func (rr *Responder) SendText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

func (rr *Responder) SendJson(w http.ResponseWriter, ctx context.Context, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		rr.RespondAndLogError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

// SendXml renders data with the XML header and the given content type.
func (rr *Responder) SendXml(w http.ResponseWriter, ctx context.Context, contentType string, data any) {
	bs, err := xml.MarshalIndent(data, "", "  ")
	if err != nil {
		rr.RespondAndLogError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, xml.Header)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func (rr *Responder) renderError(w http.ResponseWriter, ctx context.Context, status int, message, errId string) {
	if rr.DebugMode {
		message = capitalize(message)
	} else {
		message = "Unknown error occurred while processing your request. Error ID: " + errId
	}

	rr.renderMessage(w, ctx, status, message)
}

func (rr *Responder) renderMessage(w http.ResponseWriter, ctx context.Context, status int, message string) {
	bs, err := json.Marshal(map[string]any{"error": message})
	if err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		log(ctx, slog.LevelError, "cannot marshall error response body: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bs = []byte("unknown error")
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func capitalize(message string) string {
	r, s := utf8.DecodeRuneInString(message)
	if r == utf8.RuneError {
		return message
	}

	return string(unicode.ToUpper(r)) + message[s:]
}

// Needed because it skips one more frame item than the slog.Log
func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	l := slog.Default()

	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}
