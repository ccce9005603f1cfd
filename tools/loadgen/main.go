// loadgen is a tiny, dependency-free HTTP load generator for the batch
// proxy. It reuses HTTP connections (keep-alive) and supports concurrency
// so demo scripts run fast without relying on external tools.
//
// Modes:
//   - single: every request shares the same tuning parameters, so the
//     proxy should coalesce them into a handful of backend calls.
//   - mixed: requests round-robin across a number of distinct dimensions
//     values (normalize is always true), so coalescing is bounded by how
//     many distinct grouping keys are in flight at once.
//
// Usage examples:
//
//	loadgen -base=http://127.0.0.1:8080 -mode=single -n=5000 -c=16
//	loadgen -base=http://127.0.0.1:8080 -mode=mixed -keys=8 -n=8000 -c=16
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeMixed  modeType = "mixed"
)

type embedRequest struct {
	Inputs     string `json:"inputs"`
	Dimensions *int   `json:"dimensions,omitempty"`
	Normalize  *bool  `json:"normalize,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func main() {
	var (
		base  = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host")
		path  = flag.String("path", "/embed", "Request path")
		modeS = flag.String("mode", string(modeSingle), "Mode: single|mixed")
		nKeys = flag.Int("keys", 8, "Number of distinct grouping keys to round-robin in mixed mode")
		N     = flag.Int("n", 5000, "Total requests to send")
		conc  = flag.Int("c", 8, "Number of concurrent workers")

		timeout    = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeMixed {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|mixed)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeMixed && *nKeys <= 0 {
		fmt.Fprintln(os.Stderr, "-keys must be > 0 in mixed mode")
		os.Exit(2)
	}

	baseURL := strings.TrimRight(*base, "/")
	p := *path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	fullURL := baseURL + p

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done, failed int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}

			req := embedRequest{
				Inputs:    fmt.Sprintf("worker-%d-req-%d", id, i),
				Normalize: boolPtr(true),
			}
			if m == modeMixed {
				req.Dimensions = intPtr(((i + id) % *nKeys) + 1)
			}
			body, _ := json.Marshal(req)

			httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
			httpReq.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(httpReq)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					atomic.AddInt64(&failed, 1)
				}
			} else {
				atomic.AddInt64(&failed, 1)
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s N=%d c=%d go=%d failed=%d Duration=%s Throughput=%.0f req/s\n",
		m, *N, *conc, runtime.GOMAXPROCS(0), failed, elapsed.Truncate(time.Millisecond), ops)
}
