package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/filedrop/internal/delivery"
	"github.com/rickgao/filedrop/internal/router"
	"github.com/rickgao/filedrop/internal/session"
	"github.com/rickgao/filedrop/internal/version"
)

// Multipart parts above this size spill to temp files while parsing.
const uploadMemory = 8 << 20

func (s *Server) handleWS(c *gin.Context) {
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub shutting down"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err, "client_ip", c.ClientIP())
		return
	}
	if s.cfg.MaxInboundFrameBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxInboundFrameBytes)
	}

	sess := session.New(conn, s.registry, s.cfg.Session, s.recorder,
		s.logger.With("remote", c.ClientIP()))
	if !s.track(sess) {
		conn.Close()
		return
	}
	defer s.untrack(sess)

	if err := sess.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		identity, _ := sess.Identity()
		s.logger.Info("session ended with error",
			"identity", identity,
			"remote", c.ClientIP(),
			"error", err,
		)
	}
}

func (s *Server) handleUpload(c *gin.Context) {
	if limit := s.cfg.MaxUploadBytes; limit > 0 {
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", limit)})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	if err := c.Request.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	target := strings.TrimSpace(c.Request.FormValue("target"))
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing target"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	payload, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file part"})
		return
	}

	filename := fh.Filename
	if name := strings.TrimSpace(c.Request.FormValue("filename")); name != "" {
		filename = name
	}

	receipt, err := s.router.Deliver(target, filename, payload)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, receipt)
	case errors.Is(err, router.ErrTargetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "target not found", "target": target})
	case errors.Is(err, router.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "target queue full", "target": target})
	case errors.Is(err, delivery.ErrInvalidFilename):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
	default:
		s.logger.Error("deliver failed", "target", target, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleClients(c *gin.Context) {
	online := s.router.ListOnline()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(online),
		"clients": online,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"instance": s.cfg.InstanceID,
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
		"clients":  s.registry.Len(),
		"sockets":  s.SessionCount(),
		"version":  version.Version,
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.HTML(http.StatusOK, dashboardName, dashboardData{
		Instance: s.cfg.InstanceID,
		Version:  version.String(),
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		Clients:  s.router.ListOnline(),
		WSPath:   s.cfg.WSPath,
	})
}
