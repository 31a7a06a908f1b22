// Command driveauth-sim drives many concurrent tab sessions through the
// full lifecycle against a stub backend and reports throughput and login
// latency percentiles.
//
// Each simulated tab builds its own manager, logs in, emits a burst of
// interactions, optionally revalidates, and logs out. The cross-tab logout
// signal is backed by a real Redis when -redis-addr (or REDIS_ADDR) is set,
// and by an embedded miniredis otherwise.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ritasahaa/driveauth"
	"github.com/ritasahaa/driveauth/role"
)

func main() {
	var (
		tabs        = flag.Int("tabs", 1000, "number of tab sessions to run")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *tabs <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "tabs and concurrency must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
	}
	if cleanup != nil {
		defer cleanup()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	apiAddr, stopAPI := startStubAPI()
	defer stopAPI()

	roles := []string{"user", "user", "owner", "admin"}

	var (
		wg        sync.WaitGroup
		failures  atomic.Uint64
		latencyMu sync.Mutex
		latencies []time.Duration
	)
	work := make(chan int)

	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			for range work {
				d, err := runTab(apiAddr, rdb, roles[rng.Intn(len(roles))], rng)
				if err != nil {
					failures.Add(1)
					continue
				}
				latencyMu.Lock()
				latencies = append(latencies, d)
				latencyMu.Unlock()
			}
		}()
	}
	for i := 0; i < *tabs; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
	elapsed := time.Since(start)

	ok := len(latencies)
	fmt.Printf("tabs:      %d (%d failed)\n", *tabs, failures.Load())
	fmt.Printf("elapsed:   %v (%.0f tabs/s)\n", elapsed.Round(time.Millisecond), float64(ok)/elapsed.Seconds())
	if ok > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("login p50: %v\n", latencies[ok/2].Round(time.Microsecond))
		fmt.Printf("login p99: %v\n", latencies[ok*99/100].Round(time.Microsecond))
	}
}

// runTab walks one tab through login, interactions, revalidation, logout.
// Returns the login latency.
func runTab(apiAddr string, rdb *redis.Client, roleName string, rng *rand.Rand) (time.Duration, error) {
	cfg, err := driveauth.ConfigFromEnv()
	if err != nil {
		return 0, err
	}
	cfg.API.BaseURL = "http://" + apiAddr
	cfg.Events.Enabled = false

	m, err := driveauth.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		return 0, err
	}
	defer m.Close()

	ctx := context.Background()
	if _, err := m.Initialize(ctx, "/"); err != nil {
		return 0, err
	}

	begin := time.Now()
	if _, err := m.LoginWithCredentials(ctx, roleName+"@sim.test", "sim-password"); err != nil {
		return 0, err
	}
	latency := time.Since(begin)

	for i := 0; i < rng.Intn(8); i++ {
		m.ObserveInteraction(driveauth.InteractionPointer)
	}
	if rng.Intn(4) == 0 {
		m.Revalidate(ctx)
	}

	if err := m.Logout(ctx); err != nil {
		return 0, err
	}
	return latency, nil
}

// startStubAPI accepts any sim credential and answers identity lookups for
// the role encoded in the email local part.
func startStubAPI() (addr string, stop func()) {
	profileFor := func(roleName string) driveauth.UserProfile {
		return driveauth.UserProfile{
			ID:    "sim-" + roleName,
			Name:  "Sim " + roleName,
			Email: roleName + "@sim.test",
			Role:  roleName,
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		roleName := strings.TrimSuffix(req.Email, "@sim.test")
		if _, err := role.Parse(roleName); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"token":   mintToken(roleName),
			"user":    profileFor(roleName),
		})
	})
	identity := func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if raw == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "user": profileFor("user")})
	}
	mux.HandleFunc("GET /api/auth/me", identity)
	mux.HandleFunc("GET /api/admin/me", identity)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	return ln.Addr().String(), func() { srv.Close() }
}

func mintToken(roleName string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": roleName,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := tok.SignedString([]byte("sim-signing-key"))
	return signed
}
