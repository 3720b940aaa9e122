package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/arkitecto/internal/budget"
	"github.com/ppiankov/arkitecto/internal/extract"
	"github.com/ppiankov/arkitecto/internal/model"
	"github.com/ppiankov/arkitecto/internal/pipeline"
)

const maxSearchLimit = 50

// budgetRequest is the body of POST /api/v1/budget
type budgetRequest struct {
	Query string  `json:"query"`
	Area  float64 `json:"area"`  // m2, optional
	Count int     `json:"count"` // units, optional
}

// categorySummary is one entry of GET /api/v1/categories
type categorySummary struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Items int    `json:"items"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "arkitecto",
		"version": s.version,
	})
}

func (s *Server) health(c *gin.Context) {
	store := s.pipeline.Store()
	ai := s.pipeline.Estimator().ProviderName()
	if ai == "" {
		ai = "offline"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"catalog": gin.H{
			"categories": len(store.Categories()),
			"items":      store.ItemCount(),
		},
		"ai": ai,
	})
}

func (s *Server) analyzeBudget(c *gin.Context) {
	req := pipeline.Request{Instruction: c.PostForm("instruction")}

	if header, err := c.FormFile("image"); err == nil {
		if s.cfg.MaxUploadBytes > 0 && header.Size > s.cfg.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		}

		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image"})
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image"})
			return
		}

		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("%s is not an image", extract.SanitizeFilename(header.Filename)),
			})
			return
		}
		req.Image = data
		req.ImageMIME = mime
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	analysis, err := s.pipeline.Analyze(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, extract.ErrEmptyInstruction) || errors.Is(err, extract.ErrSuspiciousInput) || errors.Is(err, budget.ErrHintOutOfRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		if errors.Is(err, model.ErrAmountOverflow) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "budget amounts out of range"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "budget generation failed"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (s *Server) searchAPUs(c *gin.Context) {
	query := c.Query("q")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit)})
			return
		}
		limit = n
	}

	hits := s.pipeline.Search(query, limit)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(hits),
		"results": hits,
	})
}

func (s *Server) buildBudget(c *gin.Context) {
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	hints := budget.Hints{Area: req.Area, Count: req.Count}
	if err := hints.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b := s.pipeline.BuildBudget(req.Query, hints)
	if err := b.CheckAmounts(); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "budget amounts out of range"})
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) categories(c *gin.Context) {
	cats := s.pipeline.Store().Categories()
	out := make([]categorySummary, len(cats))
	for i, cat := range cats {
		out[i] = categorySummary{Key: cat.Key, Name: cat.DisplayName, Items: len(cat.Items)}
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}
