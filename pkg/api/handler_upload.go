package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/queue"
	"github.com/mondrian-project/mondrian/pkg/store"
)

// uploadHandler handles POST /upload (spec.md §6): accepts an image plus
// advisor selection, creates a queued job, and returns URLs for the
// caller to follow progress.
func (s *Server) uploadHandler(c *gin.Context) {
	advisor := c.PostForm("advisor")
	if advisor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "advisor is required"})
		return
	}
	if err := queue.ValidateAdvisorToken(s.advisors, advisor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown advisor: %v", err)})
		return
	}

	mode := models.Mode(c.DefaultPostForm("mode", ""))
	if mode == "" {
		// enable_rag is a deprecated alias for mode=rag, honored only
		// when mode itself is omitted (spec.md §6 note on redundant
		// enable_rag/mode fields — mode is authoritative).
		if enableRAG, _ := strconv.ParseBool(c.PostForm("enable_rag")); enableRAG {
			mode = models.ModeRAG
		} else {
			mode = models.Mode(s.cfg.Defaults.Mode)
		}
	}
	if !models.ValidModes[mode] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown mode %q", mode)})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	imageRef, err := s.saveUpload(file, header.Filename)
	if err != nil {
		respondStoreError(c, fmt.Errorf("save upload: %w", err))
		return
	}

	jobID, err := s.store.CreateJob(c.Request.Context(), store.CreateJobSpec{
		ImageRef:      imageRef,
		AdvisorID:     advisor,
		RequestedMode: mode,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		JobID:     jobID,
		Advisor:   advisor,
		Status:    models.StatusQueued,
		EnableRAG: mode == models.ModeRAG || mode == models.ModeRAGLoRA,
		StreamURL: "/stream/" + jobID,
		StatusURL: "/status/" + jobID,
	})
}

// saveUpload writes the incoming file to the configured upload directory
// under a fresh id, preserving the original extension, and returns the
// path jobs reference as image_ref. File-format handling beyond "write
// the bytes somewhere stable" is an out-of-scope collaborator (spec.md
// §1 "file-format handling for image uploads").
func (s *Server) saveUpload(src io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.New().String() + filepath.Ext(originalName)
	path := filepath.Join(s.cfg.Server.UploadDir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}
