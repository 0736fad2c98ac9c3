package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodySize bounds request bodies; login envelopes are small.
const maxBodySize = 64 * 1024

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return err
	}
	if len(body) > maxBodySize {
		return errors.New("request body too large")
	}
	return json.Unmarshal(body, v)
}
