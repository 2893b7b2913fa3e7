// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/maruel/factsheet/internal/export"
	"github.com/maruel/factsheet/internal/extract"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/factsheet/internal/server/dto"
)

// maxRequestBodyBytes bounds JSON request bodies.
const maxRequestBodyBytes = 1 << 20

// Wrap wraps a handler function to work as an http.Handler.
//
// The request body is decoded as JSON into In, then fields tagged with
// `path:"name"` and `query:"name"` are populated and Validate is called.
//
// Example:
//
//	type DeleteRowRequest struct {
//	    ID string `path:"id"`
//	}
//
//	func (h *Handler) DeleteRow(ctx context.Context, req *DeleteRowRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input) {
			return
		}

		populatePathParams(r, input)
		populateQueryParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			writeError(ctx, w, err, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIError(w, dto.NewAPIError(http.StatusRequestEntityTooLarge, dto.ErrorCodeValidationFailed, "Request body too large").WithDetail("limit", maxBytesErr.Limit))
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeAPIError(w, dto.NewAPIError(http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Failed to read request body"))
		return false
	}
	if len(bytes.TrimSpace(body)) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			slog.WarnContext(ctx, "Failed to decode request body", "err", err)
			writeAPIError(w, dto.NewAPIError(http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid request body"))
			return false
		}
	}
	return true
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		writeError(ctx, w, err, http.StatusInternalServerError, dto.ErrorCodeInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// sentinels maps domain errors to API errors.
var sentinels = []struct {
	err    error
	status int
	code   dto.ErrorCode
}{
	{rows.ErrNotFound, http.StatusNotFound, dto.ErrorCodeNotFound},
	{rows.ErrInvalidEdit, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{rows.ErrInvalidPredicate, http.StatusBadRequest, dto.ErrorCodeInvalidFormat},
	{rows.ErrPersist, http.StatusInternalServerError, dto.ErrorCodeStorageError},
	{extract.ErrExtractionFailed, http.StatusBadGateway, dto.ErrorCodeExtractionFailed},
	{export.ErrEmpty, http.StatusConflict, dto.ErrorCodeNoData},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, dto.ErrorCodeExtractionFailed},
}

// writeError writes err as a JSON error response. Errors that are neither a
// dto.APIError nor a known domain error use the given defaults.
func writeError(ctx context.Context, w http.ResponseWriter, err error, statusCode int, errorCode dto.ErrorCode) {
	var apiErr *dto.APIError
	if !errors.As(err, &apiErr) {
		for _, s := range sentinels {
			if errors.Is(err, s.err) {
				statusCode = s.status
				errorCode = s.code
				break
			}
		}
		apiErr = dto.NewAPIError(statusCode, errorCode, err.Error())
	}
	if apiErr.StatusCode() >= 500 {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", apiErr.StatusCode(), "code", apiErr.Code())
	} else {
		slog.WarnContext(ctx, "Handler error", "err", err, "statusCode", apiErr.StatusCode(), "code", apiErr.Code())
	}
	writeAPIError(w, apiErr)
}

func writeAPIError(w http.ResponseWriter, e *dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	_ = json.NewEncoder(w).Encode(e.Response())
}

// populatePathParams extracts chi URL parameters and populates struct fields
// tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		paramValue := chi.URLParam(r, tag)
		if paramValue == "" {
			continue
		}
		if field.Type.Kind() == reflect.String {
			elem.Field(i).SetString(paramValue)
		}
	}
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		paramValue := query.Get(tag)
		if paramValue == "" {
			continue
		}
		fieldVal := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(paramValue)
		case reflect.Int:
			if intVal, err := strconv.Atoi(paramValue); err == nil {
				fieldVal.SetInt(int64(intVal))
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(paramValue); err == nil {
				fieldVal.SetBool(b)
			}
		default:
			if fieldVal.CanAddr() {
				if unmarshaler, ok := fieldVal.Addr().Interface().(encoding.TextUnmarshaler); ok {
					_ = unmarshaler.UnmarshalText([]byte(paramValue))
				}
			}
		}
	}
}
