package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/origami/repo-data/types"
)

// Verify Interface Compliance
var _ error = (*Err)(nil)

// Err defines service errors.
type Err struct {
	Code    int64  `json:"code"`
	Message string `json:"error"`
}

var (
	ErrBadRequest = Err{Code: http.StatusBadRequest, Message: "invalid request"}
	ErrNotFound   = Err{Code: http.StatusNotFound, Message: "not found"}
	ErrConflict   = Err{Code: http.StatusConflict, Message: "conflict"}
	ErrInternal   = Err{Code: http.StatusInternalServerError, Message: "internal error"}
)

func (e Err) Enrich(message string) Err {
	return Err{
		Code:    e.Code,
		Message: fmt.Sprintf("%s: %s", e.Message, message),
	}
}

func (e Err) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// CodeOf returns the status code of a service error, 500 for anything else.
func CodeOf(err error) int64 {
	var e Err
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

func InternalErrorWithError(err error) Err {
	return ErrInternal.Enrich(err.Error())
}

func BadRequestWithError(err error) Err {
	return ErrBadRequest.Enrich(err.Error())
}

// fromStoreError maps a storage error onto a service error.
func fromStoreError(err error) error {
	if err == nil {
		return nil
	}
	if types.IsKind(err, types.ConflictError) {
		return ErrConflict.Enrich(err.Error())
	}
	return InternalErrorWithError(err)
}
