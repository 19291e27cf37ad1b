package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

// Mode selects how a post lands on the destination site.
type Mode string

const (
	ModeDraft    Mode = "draft"
	ModePublish  Mode = "publish"
	ModeSchedule Mode = "schedule"
)

// PublishParams describes the finalized article to hand over.
type PublishParams struct {
	Title      string
	Markdown   string
	Slug       string
	Excerpt    string
	Mode       Mode
	ScheduleAt time.Time
}

// PostRef identifies the created remote post.
type PostRef struct {
	ID  int64  `json:"id"`
	URL string `json:"link"`
}

type postPayload struct {
	Title   string `json:"title"`
	Slug    string `json:"slug,omitempty"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt,omitempty"`
	Status  string `json:"status"`
	Date    string `json:"date,omitempty"`
}

// Publisher ships finalized articles to a WordPress site over the REST API.
// Taxonomy resolution and media upload are out of scope here.
type Publisher struct {
	cfg       WordPressConfig
	client    *http.Client
	auth      string
	retryWait time.Duration
	log       *zap.Logger
}

func New(cfg WordPressConfig, client *http.Client, log *zap.Logger) (*Publisher, error) {
	if cfg.BaseURL == "" || cfg.Username == "" || cfg.AppPassword == "" {
		return nil, errors.New("wordpress config must include base_url, username and app_password")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.AppPassword))
	return &Publisher{
		cfg:       cfg,
		client:    client,
		auth:      "Basic " + creds,
		retryWait: time.Second,
		log:       log,
	}, nil
}

// Publish converts the article body to HTML and creates the post in the
// requested mode. Schedule mode requires a future timestamp.
func (p *Publisher) Publish(ctx context.Context, params PublishParams) (PostRef, error) {
	status, date, err := resolveMode(params.Mode, params.ScheduleAt)
	if err != nil {
		return PostRef{}, err
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(params.Markdown), &html); err != nil {
		return PostRef{}, fmt.Errorf("render markdown: %w", err)
	}

	payload := postPayload{
		Title:   params.Title,
		Slug:    params.Slug,
		Content: html.String(),
		Excerpt: params.Excerpt,
		Status:  status,
		Date:    date,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return PostRef{}, err
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/wp-json/wp/v2/posts"
	p.log.Info("publishing article",
		zap.String("title", params.Title),
		zap.String("status", status))

	ref, err := p.postWithRetry(ctx, url, body)
	if err != nil {
		return PostRef{}, err
	}
	p.log.Info("article published", zap.Int64("post_id", ref.ID), zap.String("url", ref.URL))
	return ref, nil
}

func resolveMode(mode Mode, scheduleAt time.Time) (status, date string, err error) {
	switch mode {
	case ModeDraft, "":
		return "draft", "", nil
	case ModePublish:
		return "publish", "", nil
	case ModeSchedule:
		if scheduleAt.IsZero() || !scheduleAt.After(time.Now()) {
			return "", "", errors.New("schedule mode requires a future schedule_at")
		}
		return "future", scheduleAt.UTC().Format(time.RFC3339), nil
	default:
		return "", "", fmt.Errorf("unknown publish mode %q", mode)
	}
}

// postWithRetry retries transport faults and 5xx responses; auth and other
// client errors fail immediately.
func (p *Publisher) postWithRetry(ctx context.Context, url string, body []byte) (PostRef, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.retryWait

	op := func() (PostRef, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return PostRef{}, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", p.auth)
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			p.log.Warn("wordpress request failed, will retry", zap.Error(err))
			return PostRef{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return PostRef{}, err
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return PostRef{}, backoff.Permanent(errors.New("wordpress authentication failed"))
		case resp.StatusCode >= 500:
			p.log.Warn("wordpress server error, will retry", zap.Int("status", resp.StatusCode))
			return PostRef{}, fmt.Errorf("wordpress server error %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return PostRef{}, backoff.Permanent(fmt.Errorf("wordpress error %d: %s", resp.StatusCode, truncate(data, 200)))
		}

		var ref PostRef
		if err := json.Unmarshal(data, &ref); err != nil {
			return PostRef{}, backoff.Permanent(fmt.Errorf("parse wordpress response: %w", err))
		}
		return ref, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(3))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
