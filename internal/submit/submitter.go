// Package submit sends URL notifications to the indexing endpoint one at a
// time, pacing the batch so the upstream rate limit is respected. Every
// attempt produces exactly one Result; failed attempts are not retried.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// maxResponseBytes caps how much of a response body is kept on a Result.
const maxResponseBytes = 1 << 20

// Sleeper blocks for the pacing interval.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Recorder receives per-attempt and pacing observations.
type Recorder interface {
	ObserveSubmission(status indexing.StatusCode)
	ObservePacingDelay(d time.Duration)
}

// ProgressFunc is called after each attempt with its 1-based position.
type ProgressFunc func(position, total int, result indexing.Result)

// Config controls endpoint and pacing.
type Config struct {
	Endpoint  string
	UserAgent string
	// PaceEvery is the number of calls between pacing waits.
	PaceEvery int
	// PaceDelay is the fixed wait after every PaceEvery-th call.
	PaceDelay time.Duration
}

// Submitter issues notifications with a bearer token from a TokenProvider.
type Submitter struct {
	client   *http.Client
	tokens   indexing.TokenProvider
	sink     indexing.ResultSink
	clock    indexing.Clock
	sleeper  Sleeper
	recorder Recorder
	cfg      Config
	runID    string
	logger   *zap.Logger
}

// New constructs a Submitter. sink and recorder may be nil.
func New(
	client *http.Client,
	tokens indexing.TokenProvider,
	sink indexing.ResultSink,
	clock indexing.Clock,
	sleeper Sleeper,
	recorder Recorder,
	cfg Config,
	logger *zap.Logger,
) *Submitter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PaceEvery <= 0 {
		cfg.PaceEvery = 10
	}
	return &Submitter{
		client:   client,
		tokens:   tokens,
		sink:     sink,
		clock:    clock,
		sleeper:  sleeper,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// WithRunID returns a copy that stamps runID on every Result.
func (s *Submitter) WithRunID(runID string) *Submitter {
	cp := *s
	cp.runID = runID
	cp.logger = s.logger.With(zap.String("run_id", runID))
	return &cp
}

// WithTokens returns a copy that authenticates with tokens.
func (s *Submitter) WithTokens(tokens indexing.TokenProvider) *Submitter {
	cp := *s
	cp.tokens = tokens
	return &cp
}

type notification struct {
	URL  string          `json:"url"`
	Type indexing.Action `json:"type"`
}

// Submit sends one notification and records the outcome. The only error
// returned is a fatal token failure; HTTP and transport failures become a
// failed Result instead.
func (s *Submitter) Submit(ctx context.Context, url string, action indexing.Action) (indexing.Result, error) {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return indexing.Result{}, fmt.Errorf("submit %s: %w", url, err)
	}

	result := s.send(ctx, url, action, token)
	switch {
	case result.Success():
		s.logger.Info("successfully submitted URL", zap.String("url", url))
	case result.StatusCode == indexing.StatusError:
		s.logger.Error("error submitting URL", zap.String("url", url), zap.Any("error", result.Response))
	default:
		s.logger.Warn("failed to submit URL", zap.String("url", url), zap.Stringer("status", result.StatusCode))
	}

	if s.recorder != nil {
		s.recorder.ObserveSubmission(result.StatusCode)
	}
	if s.sink != nil {
		// The attempt already happened; record it even if the run was canceled.
		if err := s.sink.Append(context.WithoutCancel(ctx), result); err != nil {
			s.logger.Warn("failed to record result", zap.String("url", url), zap.Error(err))
		}
	}
	return result, nil
}

func (s *Submitter) send(ctx context.Context, url string, action indexing.Action, token string) indexing.Result {
	result := indexing.Result{RunID: s.runID, URL: url}
	fail := func(err error) indexing.Result {
		result.StatusCode = indexing.StatusError
		result.Response = err.Error()
		result.Timestamp = s.clock.Now()
		return result
	}

	body, err := json.Marshal(notification{URL: url, Type: action})
	if err != nil {
		return fail(fmt.Errorf("encode notification: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result.StatusCode = indexing.StatusCode(resp.StatusCode)
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		result.Response = fmt.Sprintf("read response: %v", err)
	} else {
		result.Response = decodePayload(raw)
	}
	result.Timestamp = s.clock.Now()
	return result
}

// decodePayload keeps JSON bodies as structured data, anything else as text,
// and an empty body as an empty object.
func decodePayload(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	return string(raw)
}

// SubmitAll submits urls in order, waiting PaceDelay after every PaceEvery-th
// call. It stops early on a fatal token error or when ctx is done, returning
// the results gathered so far together with the error.
func (s *Submitter) SubmitAll(
	ctx context.Context,
	urls []string,
	action indexing.Action,
	progress ProgressFunc,
) ([]indexing.Result, error) {
	results := make([]indexing.Result, 0, len(urls))
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := s.Submit(ctx, url, action)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		if progress != nil {
			progress(i+1, len(urls), result)
		}

		if (i+1)%s.cfg.PaceEvery == 0 {
			if err := s.pace(ctx, i+1); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

func (s *Submitter) pace(ctx context.Context, done int) error {
	if s.sleeper == nil || s.cfg.PaceDelay <= 0 {
		return nil
	}
	s.logger.Debug("pacing submissions", zap.Int("submitted", done), zap.Duration("delay", s.cfg.PaceDelay))
	if err := s.sleeper.Sleep(ctx, s.cfg.PaceDelay); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}
	if s.recorder != nil {
		s.recorder.ObservePacingDelay(s.cfg.PaceDelay)
	}
	return nil
}
