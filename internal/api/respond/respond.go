// Package respond writes the JSON envelopes returned by the HTTP API.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/wb-go/wbf/zlog"
)

type success struct {
	Result interface{} `json:"result"`
}

type failure struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

// OK writes a 200 response wrapping result.
func OK(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusOK, success{Result: result})
}

// Created writes a 201 response wrapping result.
func Created(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusCreated, success{Result: result})
}

// Accepted writes a 202 response wrapping result.
func Accepted(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusAccepted, success{Result: result})
}

// Fail writes an error response.
func Fail(w http.ResponseWriter, status int, err error) {
	JSON(w, status, failure{Error: err.Error()})
}
