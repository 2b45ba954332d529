package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/kallahq/kalla/internal/adapter/observability"
	"github.com/kallahq/kalla/internal/config"
)

// CallbackKind distinguishes the three callback shapes a job can fire,
// per §4.4 stage 8: progress and error are best-effort single attempts,
// completion is retried.
type CallbackKind string

const (
	CallbackProgress   CallbackKind = "progress"
	CallbackError      CallbackKind = "error"
	CallbackCompletion CallbackKind = "completion"
)

// ProgressCallback is the body POSTed to "<callback_url>/progress", per §6.
// Progress is a pointer because stage 5 (matching) may report nil/null while
// streaming, since the total batch count is unknown until the stream ends.
type ProgressCallback struct {
	Stage        string   `json:"stage"`
	RunID        string   `json:"run_id"`
	Progress     *float64 `json:"progress"`
	Source       string   `json:"source,omitempty"`
	MatchedCount *int64   `json:"matched_count,omitempty"`
}

// ErrorCallback is the body POSTed to "<callback_url>/error", per §6.
type ErrorCallback struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// OutputPaths is the completion callback's output_paths object, per §6.
type OutputPaths struct {
	Matched        string `json:"matched,omitempty"`
	UnmatchedLeft  string `json:"unmatched_left,omitempty"`
	UnmatchedRight string `json:"unmatched_right,omitempty"`
}

// CompletionCallback is the body POSTed to "<callback_url>/complete", per §6.
type CompletionCallback struct {
	RunID               string      `json:"run_id"`
	MatchedCount        int64       `json:"matched_count"`
	UnmatchedLeftCount  int64       `json:"unmatched_left_count"`
	UnmatchedRightCount int64       `json:"unmatched_right_count"`
	OutputPaths         OutputPaths `json:"output_paths"`
}

// Notifier POSTs job callbacks to a run's callback_url.
type Notifier struct {
	hc  *http.Client
	cfg config.CallbackRetryConfig
}

// NewNotifier builds a Notifier whose retry budget comes from cfg. Only the
// connect phase is bounded on the transport (ConnectTimeout); the overall
// per-attempt budget (TotalTimeout) is enforced via the request context
// instead of Client.Timeout, so it governs the whole attempt rather than
// collapsing connect+total into one number (§5: "connect <=5s, total <=10s").
func NewNotifier(cfg config.Config) *Notifier {
	rc := cfg.GetCallbackRetryConfig()
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: rc.ConnectTimeout}).DialContext,
	}
	return &Notifier{
		hc:  &http.Client{Transport: transport},
		cfg: rc,
	}
}

// SendProgress fires a single, best-effort "<callback_url>/progress" POST.
// Failures are logged, never returned to the pipeline (§7: progress/error
// callbacks are best-effort; only completion is critical).
func (n *Notifier) SendProgress(ctx context.Context, base string, payload ProgressCallback) {
	n.sendBestEffort(ctx, CallbackProgress, base, "/progress", payload, payload.RunID)
}

// SendError fires a single, best-effort "<callback_url>/error" POST.
func (n *Notifier) SendError(ctx context.Context, base string, payload ErrorCallback) {
	n.sendBestEffort(ctx, CallbackError, base, "/error", payload, payload.RunID)
}

func (n *Notifier) sendBestEffort(ctx context.Context, kind CallbackKind, base, suffix string, payload any, runID string) {
	if base == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, n.cfg.TotalTimeout)
	defer cancel()
	if err := n.post(ctx, base+suffix, payload); err != nil {
		observability.RecordCallbackRetry(string(kind))
		slog.Warn("callback delivery failed", slog.String("kind", string(kind)), slog.String("run_id", runID), slog.Any("error", err))
	}
}

// SendCompletion retries "<callback_url>/complete" up to cfg.MaxRetries times
// with exponential backoff, per §4.4 stage 8's "critical, retried" rule.
// It is the only callback kind whose failure the caller should act on.
func (n *Notifier) SendCompletion(ctx context.Context, base string, payload CompletionCallback) error {
	if base == "" {
		return nil
	}
	url := base + "/complete"

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = n.cfg.InitialDelay
	bo.MaxInterval = n.cfg.MaxDelay
	bo.Multiplier = n.cfg.Multiplier
	bounded := backoff.WithMaxRetries(bo, uint64(n.cfg.MaxRetries))

	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, n.cfg.TotalTimeout)
		defer cancel()
		err := n.post(attemptCtx, url, payload)
		if err != nil && attempt > 1 {
			observability.RecordCallbackRetry(string(CallbackCompletion))
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(bounded, ctx)); err != nil {
		return fmt.Errorf("op=runner.SendCompletion: %w", err)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.hc.Do(req)
	if err != nil {
		return fmt.Errorf("callback request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// retryDelay is exposed for tests asserting the configured backoff shape
// matches §4.4's "500ms/1s/2s" schedule without sleeping through it.
func retryDelay(cfg config.CallbackRetryConfig, attempt int) time.Duration {
	d := cfg.InitialDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * cfg.Multiplier)
		if d > cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return d
}
