package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodySize = 1 << 20 // 1 MB

// decode reads a single JSON value of type T from the request body. Unknown
// fields are ignored so the site can add form fields ahead of the API.
func decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	defer body.Close()

	dec := json.NewDecoder(body)

	var data T
	if err := dec.Decode(&data); err != nil {
		return data, fmt.Errorf("decode request: %w", err)
	}

	var trailing struct{}
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			return data, errors.New("decode request: body must contain a single JSON value")
		}
		return data, fmt.Errorf("decode request: %w", err)
	}
	return data, nil
}
