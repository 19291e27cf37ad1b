package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"auto_blog_article_writer/generator"
	"auto_blog_article_writer/publisher"
)

// Server exposes the request/status/publish surface over the pipeline.
type Server struct {
	pipeline *generator.Pipeline
	pub      *publisher.Publisher
	briefs   *briefStore
	log      *zap.Logger
}

// briefStore remembers the Brief behind each fingerprint so status lookups
// and regeneration work after submission, plus the last run failure (the
// cache drops failed runs so they stay retryable).
type briefStore struct {
	mu     sync.Mutex
	briefs map[string]generator.Brief
	errs   map[string]error
}

func newBriefStore() *briefStore {
	return &briefStore{
		briefs: make(map[string]generator.Brief),
		errs:   make(map[string]error),
	}
}

func (s *briefStore) put(fp string, b generator.Brief) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.briefs[fp] = b
}

func (s *briefStore) get(fp string) (generator.Brief, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.briefs[fp]
	return b, ok
}

func (s *briefStore) setErr(fp string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, fp)
		return
	}
	s.errs[fp] = err
}

func (s *briefStore) lastErr(fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[fp]
}

// New builds the server. pub may be nil when no publishing destination is
// configured; the publish endpoint then answers 503.
func New(pipeline *generator.Pipeline, pub *publisher.Publisher, log *zap.Logger) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		pipeline: pipeline,
		pub:      pub,
		briefs:   newBriefStore(),
		log:      log,
	}, nil
}

// Routes wires the gin router.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/articles")
	api.POST("", s.handleSubmit)
	api.GET("/:fingerprint", s.handleStatus)
	api.POST("/:fingerprint/regenerate", s.handleRegenerate)
	api.GET("/:fingerprint/preview", s.handlePreview)
	api.POST("/:fingerprint/publish", s.handlePublish)

	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

type submitResp struct {
	Fingerprint string           `json:"fingerprint"`
	Status      generator.Status `json:"status"`
}

type statusResp struct {
	Fingerprint      string             `json:"fingerprint"`
	Status           generator.Status   `json:"status"`
	CharCount        int                `json:"char_count,omitempty"`
	LengthOutOfRange bool               `json:"length_out_of_range,omitempty"`
	Error            string             `json:"error,omitempty"`
	Article          *generator.Article `json:"article,omitempty"`
}

// handleSubmit accepts a Brief and starts (or reuses) a generation run.
func (s *Server) handleSubmit(c *gin.Context) {
	var brief generator.Brief
	if err := c.ShouldBindJSON(&brief); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.pipeline.ValidateBrief(brief); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	fp := brief.Fingerprint()
	s.briefs.put(fp, brief)

	if _, status, ok := s.pipeline.Cache().Peek(fp); ok {
		c.JSON(http.StatusAccepted, submitResp{Fingerprint: fp, Status: status})
		return
	}

	s.launch(brief, fp, false)
	c.JSON(http.StatusAccepted, submitResp{Fingerprint: fp, Status: generator.StatusPending})
}

// launch runs generation detached from the HTTP request; the pipeline applies
// its own deadline and the cache keeps duplicates down to one run. fresh
// forces a rerun past a finished result.
func (s *Server) launch(brief generator.Brief, fp string, fresh bool) {
	s.briefs.setErr(fp, nil)
	run := s.pipeline.Generate
	if fresh {
		run = s.pipeline.Regenerate
	}
	go func() {
		if _, err := run(context.Background(), brief); err != nil {
			s.log.Error("generation failed", zap.String("fingerprint", fp), zap.Error(err))
			s.briefs.setErr(fp, err)
		}
	}()
}

func (s *Server) handleStatus(c *gin.Context) {
	fp := c.Param("fingerprint")
	article, status, ok := s.pipeline.Cache().Peek(fp)
	if !ok {
		if _, known := s.briefs.get(fp); !known {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown fingerprint"})
			return
		}
		if err := s.briefs.lastErr(fp); err != nil {
			c.JSON(http.StatusOK, statusResp{Fingerprint: fp, Status: generator.StatusFailed, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, statusResp{Fingerprint: fp, Status: generator.StatusPending})
		return
	}
	if article == nil {
		c.JSON(http.StatusOK, statusResp{Fingerprint: fp, Status: status})
		return
	}
	c.JSON(http.StatusOK, statusResp{
		Fingerprint:      fp,
		Status:           article.Status,
		CharCount:        article.CharCount,
		LengthOutOfRange: article.LengthOutOfRange,
		Article:          article,
	})
}

// handleRegenerate forces a fresh pipeline run for a known Brief. Discarding
// the terminal entry and claiming the new run is atomic inside the cache.
func (s *Server) handleRegenerate(c *gin.Context) {
	fp := c.Param("fingerprint")
	brief, ok := s.briefs.get(fp)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown fingerprint"})
		return
	}
	if _, status, exists := s.pipeline.Cache().Peek(fp); exists && !status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "generation already in flight"})
		return
	}
	s.launch(brief, fp, true)
	c.JSON(http.StatusAccepted, submitResp{Fingerprint: fp, Status: generator.StatusPending})
}

func (s *Server) handlePreview(c *gin.Context) {
	article, ok := s.terminalArticle(c)
	if !ok {
		return
	}
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(article.Body), &html); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html.Bytes())
}

type publishReq struct {
	Mode       publisher.Mode `json:"mode" binding:"required,oneof=draft publish schedule"`
	ScheduleAt *time.Time     `json:"schedule_at"`
}

func (s *Server) handlePublish(c *gin.Context) {
	if s.pub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no publishing destination configured"})
		return
	}
	article, ok := s.terminalArticle(c)
	if !ok {
		return
	}
	var req publishReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params := publisher.PublishParams{
		Title:    article.Title,
		Markdown: article.Body,
		Slug:     article.Slug,
		Excerpt:  article.Excerpt,
		Mode:     req.Mode,
	}
	if req.ScheduleAt != nil {
		params.ScheduleAt = *req.ScheduleAt
	}
	ref, err := s.pub.Publish(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": ref.ID, "url": ref.URL})
}

// terminalArticle fetches the ready article for the fingerprint parameter,
// answering the error response itself when there is none.
func (s *Server) terminalArticle(c *gin.Context) (*generator.Article, bool) {
	fp := c.Param("fingerprint")
	article, _, ok := s.pipeline.Cache().Peek(fp)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown fingerprint"})
		return nil, false
	}
	if article == nil || article.Status != generator.StatusReady {
		c.JSON(http.StatusConflict, gin.H{"error": "article is not ready"})
		return nil, false
	}
	return article, true
}
