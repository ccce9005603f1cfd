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

// Package main provides the entry point for the embedding batch proxy.
//
// It orchestrates the whole service: load configuration, build the
// structured logger, wire the backend client into the Manager, start the
// public HTTP frontend, and manage graceful shutdown so in-flight batches
// still get a chance to flush before the process exits.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/btwotwo/batch-proxy/internal/batchproxy"
	"github.com/btwotwo/batch-proxy/internal/config"
	"github.com/btwotwo/batch-proxy/internal/logging"
	"github.com/btwotwo/batch-proxy/pkg/embedapi"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load settings: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("loaded settings",
		zap.Int("max_batch_size", cfg.Batch.MaxBatchSize),
		zap.Int64("max_waiting_time_ms", cfg.Batch.MaxWaitingTimeMs),
		zap.String("inference_target_url", cfg.InferenceAPI.TargetURL),
		zap.Int("api_target_port", cfg.API.TargetPort),
	)

	backend := embedapi.NewHTTPBackendClient(
		cfg.InferenceAPI.TargetURL,
		time.Duration(cfg.InferenceAPI.TimeoutMs)*time.Millisecond,
	)

	maxWaitingTime := time.Duration(cfg.Batch.MaxWaitingTimeMs) * time.Millisecond
	manager := batchproxy.NewManager(backend, cfg.Batch.MaxBatchSize, maxWaitingTime, logger)
	manager.Start()

	apiServer := embedapi.NewServer(manager, logger)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	addr := fmt.Sprintf(":%d", cfg.API.TargetPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("batch proxy listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v", addr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// httpServer.Shutdown blocks until every in-flight handler returns, and
	// those handlers are blocked on reply.Recv() until their worker flushes
	// — which only happens once manager.Shutdown fires. Running the two
	// shutdowns concurrently, sharing shutdownCtx, lets that flush happen
	// while httpServer.Shutdown is still waiting instead of after it has
	// already spent the whole deadline.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Error("manager shutdown did not complete in time", zap.Error(err))
		}
	}()
	wg.Wait()

	logger.Info("batch proxy stopped")
}
