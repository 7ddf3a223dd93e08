package app

import (
	"errors"

	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

// Codes d'erreur stables, exposés tels quels par l'API et persistés dans Job.errorCode.
const (
	CodeFetchTimeout        = "fetch_timeout"
	CodeFetchFailed         = "fetch_failed"
	CodeNoAudioResource     = "no_audio_resource"
	CodePlaybackFailed      = "playback_failed"
	CodeLocationUnavailable = "location_unavailable"
	CodeInvalidIndex        = "invalid_index"
	CodeInvalidParams       = "invalid_params"
	CodeHTTPStatus          = "http_status"
	CodeNetworkError        = "network_error"
	CodeIOError             = "io_error"
	CodeNoChapter           = "no_chapter"
)

// CodedError permet de renvoyer un code d'erreur stable avec le message et la cause.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

func coded(code, message string, err error) *CodedError {
	return &CodedError{Code: code, Message: message, Err: err}
}

// ErrorCode renvoie le code porté par err, ou "" s'il n'y en a pas.
func ErrorCode(err error) string {
	var c *CodedError
	if errors.As(err, &c) {
		return c.Code
	}
	switch {
	case errors.Is(err, ports.ErrFetchTimeout):
		return CodeFetchTimeout
	case errors.Is(err, ports.ErrFetchFailed):
		return CodeFetchFailed
	}
	return ""
}

func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// fetchError normalise une erreur de fournisseur distant en fetch_timeout / fetch_failed.
func fetchError(message string, err error) error {
	if err == nil {
		return nil
	}
	var c *CodedError
	if errors.As(err, &c) {
		return err
	}
	if errors.Is(err, ports.ErrFetchTimeout) {
		return coded(CodeFetchTimeout, message, err)
	}
	return coded(CodeFetchFailed, message, err)
}
