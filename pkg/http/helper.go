package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "studyrooms/pkg/errors"
)

// DecodeJSON decodes the request body into v. An empty body leaves v untouched
// when allowEmpty is set, which DELETE requests rely on.
func DecodeJSON(r *http.Request, v any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperrors.InvalidInput("Invalid request body")
	}

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.New(apperrors.CodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
	}
	return apperrors.InvalidInput("Invalid request body")
}
