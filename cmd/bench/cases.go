// README: Smoke and load cases; covers DB, Redis change feed, quote API and throughput.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"courier/internal/modules/zone"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusFail, Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: statusFail, Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Migration: apply (optional)", Run: applyMigration},
		{Name: "Migration: tables exist", Run: tablesExist},
		{Name: "Zones: mapping row present", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusFail, Note: "db not configured"}
			}
			var n int
			if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM zones").Scan(&n); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if n == 0 {
				return Result{Status: statusSkip, Note: "no zone mapping saved; regular routes will not price"}
			}
			return Result{Status: statusPass, Note: fmt.Sprintf("rows=%d", n)}
		}},
		{Name: "Zones: change feed has subscribers", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: statusFail, Note: "redis not configured"}
			}
			n, err := r.redis.PubSubNumSub(ctx, zone.ChangeChannel).Result()
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if n[zone.ChangeChannel] == 0 {
				return Result{Status: statusFail, Note: "no API instance subscribed to " + zone.ChangeChannel}
			}
			return Result{Status: statusPass, Note: fmt.Sprintf("subscribers=%d", n[zone.ChangeChannel])}
		}},

		httpCase("API: health", http.MethodGet, base+"/health", nil, http.StatusOK, nil),
		httpCase("API: metrics exposed", http.MethodGet, base+"/metrics", nil, http.StatusOK, func(body []byte) string {
			if !strings.Contains(string(body), "courier_http_requests_total") {
				return "courier_http_requests_total missing"
			}
			return ""
		}),

		httpCase("Quote: island intra-zone", http.MethodPost, base+"/api/quotes", map[string]any{
			"origin_district":      "Adalar",
			"destination_district": "Adalar",
		}, http.StatusOK, func(body []byte) string {
			var q struct {
				FinalPrice     int64  `json:"final_price"`
				FormattedPrice string `json:"formatted_price"`
			}
			if err := json.Unmarshal(body, &q); err != nil {
				return err.Error()
			}
			// 500 off-peak, 575 in traffic hours.
			if q.FinalPrice != 500 && q.FinalPrice != 575 {
				return fmt.Sprintf("final_price=%d", q.FinalPrice)
			}
			if !strings.HasSuffix(q.FormattedPrice, "₺") {
				return "formatted_price=" + q.FormattedPrice
			}
			return ""
		}),
		httpCase("Quote: missing fields -> 400", http.MethodPost, base+"/api/quotes", map[string]any{}, http.StatusBadRequest, nil),
		httpCase("Quote: unknown district -> 422", http.MethodPost, base+"/api/quotes", map[string]any{
			"origin_district":      "Atlantis",
			"destination_district": "Kadıköy",
		}, http.StatusUnprocessableEntity, nil),

		httpCase("Auth: zones require token", http.MethodGet, base+"/api/zones", nil, http.StatusUnauthorized, nil),
		httpCase("Auth: package intake requires token", http.MethodPost, base+"/api/packages", map[string]any{}, http.StatusUnauthorized, nil),

		{Name: "Concurrency: identical quotes agree", Run: func(ctx context.Context, r *Runner) Result {
			return concurrentQuotes(ctx, r, base+"/api/quotes")
		}},
		{Name: "Perf: quote throughput", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, base+"/api/quotes", map[string]any{
				"origin_district":      "Adalar",
				"destination_district": "Kadıköy",
				"desi":                 "2-5",
			})
		}},
	}
}

// httpCase sends one request and expects want. check, when set, inspects the body
// and returns a failure note or "".
func httpCase(name, method, url string, body any, want int, check func([]byte) string) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			var reader io.Reader
			if body != nil {
				b, _ := json.Marshal(body)
				reader = strings.NewReader(string(b))
			}
			req, _ := http.NewRequestWithContext(ctx, method, url, reader)
			req.Header.Set("Content-Type", "application/json")
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			defer resp.Body.Close()
			payload, _ := io.ReadAll(resp.Body)
			latency := time.Since(start)

			if resp.StatusCode != want {
				return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			if check != nil {
				if note := check(payload); note != "" {
					return Result{Status: statusFail, Latency: latency, Note: note}
				}
			}
			return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
		},
	}
}

func applyMigration(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: statusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, s := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}
	return Result{Status: statusPass}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass}
}

// concurrentQuotes fires the same quote from many goroutines; every answer must match.
func concurrentQuotes(ctx context.Context, r *Runner, url string) Result {
	b, _ := json.Marshal(map[string]any{
		"origin_district":      "Adalar",
		"destination_district": "Üsküdar",
		"desi":                 "5-10",
	})
	var wg sync.WaitGroup
	var mu sync.Mutex
	prices := map[int64]int{}
	failures := 0

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
			req.Header.Set("Content-Type", "application/json")
			resp, err := r.httpc.Do(req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			defer resp.Body.Close()
			var q struct {
				FinalPrice int64 `json:"final_price"`
			}
			if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&q) != nil {
				failures++
				return
			}
			prices[q.FinalPrice]++
		}()
	}
	wg.Wait()

	if failures > 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("failures=%d", failures)}
	}
	// A traffic window boundary crossed mid-run can legitimately yield two prices.
	if len(prices) > 2 {
		return Result{Status: statusFail, Note: fmt.Sprintf("prices=%v", prices)}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("prices=%v", prices)}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					mu.Lock()
					errCount++
					mu.Unlock()
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				mu.Lock()
				count++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
