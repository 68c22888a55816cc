package serverutils

import (
	"errors"

	"visuallm-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

type ErrorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

type ErrorBody struct {
	Result string      `json:"result"`
	Error  ErrorDetail `json:"error"`
}

func SuccessResponse(message string, data interface{}) fiber.Map {
	return fiber.Map{
		"result":  "success",
		"message": message,
		"data":    data,
	}
}

func ErrorResponse(kind apperr.Kind, field, message string) ErrorBody {
	return ErrorBody{
		Result: "error",
		Error:  ErrorDetail{Kind: kind, Field: field, Message: message},
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidSelection, apperr.KindInvalidRequest, apperr.KindInvalidPayload:
		return fiber.StatusBadRequest
	case apperr.KindUninitializedVocabulary, apperr.KindUninitializedContext:
		return fiber.StatusConflict
	case apperr.KindDimensionMismatch, apperr.KindMetricComputation:
		return fiber.StatusUnprocessableEntity
	case apperr.KindUnknownEndpoint:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorResponseFor translates any error into a status and the structured body.
// Internal errors do not leak their message.
func ErrorResponseFor(err error) (int, ErrorBody) {
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		kind := apperr.KindInvalidRequest
		switch {
		case ferr.Code == fiber.StatusNotFound:
			kind = apperr.KindUnknownEndpoint
		case ferr.Code >= fiber.StatusInternalServerError:
			kind = apperr.KindInternal
		}
		return ferr.Code, ErrorResponse(kind, "", ferr.Message)
	}

	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		message = "internal server error"
	}
	return StatusFor(kind), ErrorResponse(kind, apperr.FieldOf(err), message)
}
