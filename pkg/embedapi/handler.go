// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/btwotwo/batch-proxy/internal/batchproxy"
	"github.com/btwotwo/batch-proxy/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server is the public-facing HTTP frontend for the batch proxy. It
// decodes POST /embed bodies, hands them to the Manager, and waits for
// the caller's one-shot reply.
type Server struct {
	manager *batchproxy.Manager
	logger  *zap.Logger
}

// NewServer constructs a Server bound to manager.
func NewServer(manager *batchproxy.Manager, logger *zap.Logger) *Server {
	return &Server{manager: manager, logger: logger}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/embed", s.handleEmbed)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", metrics.Handler())
}

// handleEmbed is the single public entry point (§6): it decomposes the
// request into a grouping key and data items, routes it through the
// Manager, and waits on the one-shot reply channel for the result.
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RequestRejected("bad_json")
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if len(req.Inputs) == 0 {
		metrics.RequestRejected("empty_inputs")
		writeError(w, http.StatusBadRequest, "inputs must not be empty")
		return
	}

	key, data := Decompose(req)
	callerID := uuid.NewString()
	reply := batchproxy.NewReplyChannel()

	metrics.RequestAccepted()
	s.manager.NewRequest(key, batchproxy.Request{CallerID: callerID, Data: data, Reply: reply, Ctx: r.Context()})

	res := reply.Recv()
	if res.Err != nil {
		s.logger.Warn("request failed", zap.String("caller_id", callerID), zap.Error(res.Err))
		writeError(w, http.StatusInternalServerError, res.Err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res.Embeddings); err != nil {
		s.logger.Error("failed to write response", zap.String("caller_id", callerID), zap.Error(err))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ListenAndServe starts the HTTP server on the specified address. It is a
// convenience for simple callers; production wiring (cmd/batch-proxy)
// builds its own http.Server for graceful shutdown instead.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}
