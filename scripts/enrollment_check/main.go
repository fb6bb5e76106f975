// Command enrollment_check races students for seats in one class against a
// running API and verifies both sides of every enrollment agree afterwards.
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
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type record struct {
	ID                 string   `json:"id"`
	CurrentEnrollment  int      `json:"current_enrollment"`
	EnrolledClassIDs   []string `json:"enrolled_class_ids"`
	EnrolledStudentIDs []string `json:"enrolled_student_ids"`
}

type client struct {
	http *http.Client
	base string
}

func main() {
	var (
		base        string
		students    int
		capacity    int
		concurrency int
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.IntVar(&students, "students", 40, "Students racing for seats")
	flag.IntVar(&capacity, "capacity", 25, "Class capacity")
	flag.IntVar(&concurrency, "concurrency", 16, "Parallel enrollment requests")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync() //nolint:errcheck

	c := &client{http: &http.Client{Timeout: timeout}, base: strings.TrimRight(base, "/")}
	violations, err := run(context.Background(), c, students, capacity, concurrency, logger)
	if err != nil {
		logger.Fatal("check aborted", zap.Error(err))
	}
	if violations > 0 {
		logger.Error("consistency violations found", zap.Int("violations", violations))
		os.Exit(1)
	}
	logger.Info("enrollment state consistent")
}

func run(ctx context.Context, c *client, students, capacity, concurrency int, logger *zap.Logger) (int, error) {
	var class record
	if _, err := c.do(ctx, http.MethodPost, "/classes", map[string]interface{}{
		"name": fmt.Sprintf("Consistency Check %d", time.Now().Unix()), "max_capacity": capacity,
	}, &class); err != nil {
		return 0, fmt.Errorf("create class: %w", err)
	}

	ids := make([]string, students)
	for i := range ids {
		var st record
		if _, err := c.do(ctx, http.MethodPost, "/students", map[string]string{
			"first_name": fmt.Sprintf("Racer%d", i), "last_name": "Check",
		}, &st); err != nil {
			return 0, fmt.Errorf("create student %d: %w", i, err)
		}
		ids[i] = st.ID
	}

	var accepted, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	start := time.Now()
	for _, id := range ids {
		g.Go(func() error {
			status, err := c.do(gctx, http.MethodPost, "/students/"+id+"/classes", map[string]string{"class_id": class.ID}, nil)
			switch {
			case status == http.StatusOK:
				accepted.Add(1)
			case status == http.StatusConflict:
				rejected.Add(1)
			case err != nil:
				return fmt.Errorf("enroll %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	logger.Info("enrollment race finished",
		zap.Int64("accepted", accepted.Load()),
		zap.Int64("rejected", rejected.Load()),
		zap.Duration("elapsed", time.Since(start)))

	if _, err := c.do(ctx, http.MethodGet, "/classes/"+class.ID, nil, &class); err != nil {
		return 0, fmt.Errorf("reload class: %w", err)
	}

	violations := 0
	report := func(msg string, fields ...zap.Field) {
		violations++
		logger.Warn(msg, fields...)
	}

	expected := min(students, capacity)
	if class.CurrentEnrollment != expected {
		report("unexpected enrollment count", zap.Int("got", class.CurrentEnrollment), zap.Int("want", expected))
	}
	if len(class.EnrolledStudentIDs) != class.CurrentEnrollment {
		report("count disagrees with roster", zap.Int("count", class.CurrentEnrollment), zap.Int("roster", len(class.EnrolledStudentIDs)))
	}
	if int(accepted.Load()) != class.CurrentEnrollment {
		report("accepted requests disagree with class", zap.Int64("accepted", accepted.Load()))
	}

	rostered := make(map[string]bool, len(class.EnrolledStudentIDs))
	for _, id := range class.EnrolledStudentIDs {
		rostered[id] = true
	}
	for _, id := range ids {
		var st record
		if _, err := c.do(ctx, http.MethodGet, "/students/"+id, nil, &st); err != nil {
			return violations, fmt.Errorf("reload student %s: %w", id, err)
		}
		lists := contains(st.EnrolledClassIDs, class.ID)
		if lists != rostered[id] {
			report("student and class disagree", zap.String("student_id", id), zap.Bool("student_lists_class", lists), zap.Bool("class_lists_student", rostered[id]))
		}
	}
	return violations, nil
}

func (c *client) do(ctx context.Context, method, path string, body interface{}, dst interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if env.Error != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: %s (%s)", method, path, env.Error.Message, env.Error.Code)
	}
	if dst != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
