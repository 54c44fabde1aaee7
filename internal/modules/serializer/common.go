package serializer

import (
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

var causeLogger atomic.Pointer[zap.Logger]

// SetLogger installs the logger that records the cause of failed requests.
func SetLogger(l *zap.Logger) {
	causeLogger.Store(l)
}

func logCause(status int, msg string, err error) {
	l := causeLogger.Load()
	if l == nil || err == nil {
		return
	}
	if status >= http.StatusInternalServerError {
		l.Error(msg, zap.Int("status", status), zap.Error(err))
		return
	}
	l.Debug(msg, zap.Int("status", status), zap.Error(err))
}

func Ok(data interface{}, msg string) Response {
	return Response{Success: true, Data: data, Message: msg}
}

// Err builds a failure envelope. err is logged, never serialized.
func Err(status int, msg string, err error) Response {
	logCause(status, msg, err)
	return Response{Success: false, Error: msg}
}

// DBErr
func DBErr(msg string, err error) Response {
	if msg == "" {
		msg = "Internal server error"
	}
	return Err(http.StatusInternalServerError, msg, err)
}

// ParamErr
func ParamErr(msg string, err error) Response {
	if msg == "" {
		msg = "Invalid request"
	}
	return Err(http.StatusBadRequest, msg, err)
}

// AuthErr
func AuthErr(msg string) Response {
	if msg == "" {
		msg = "Unauthorized request"
	}
	return Err(http.StatusUnauthorized, msg, nil)
}

func NotFoundErr(msg string) Response {
	if msg == "" {
		msg = "Not found"
	}
	return Err(http.StatusNotFound, msg, nil)
}
