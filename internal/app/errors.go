package app

import (
	"errors"
	"net/http"

	"mealtrack-bff/internal/pkg/apperr"
)

var (
	ErrInvalidInput  = apperr.BadRequest("invalid input")
	ErrTooManyImages = apperr.BadRequest("a meal takes at most 3 images")
	ErrEmptyAudio    = apperr.BadRequest("no speech recognized in audio")
	ErrMealNotFound  = apperr.New(http.StatusNotFound, apperr.CodeMealNotFound, "meal not found")
	ErrRunTimeout    = apperr.New(http.StatusGatewayTimeout, apperr.CodeUpstreamTimeout, "assistant run timed out")

	ErrRunTerminal = errors.New("assistant run ended without a reply")
)

func upstreamError(err error, message string) error {
	return apperr.Wrap(err, http.StatusInternalServerError, apperr.CodeUpstreamFailure, message)
}
