package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"imgferry/internal/ingest"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// handleGetImage serves the stored bytes. Assets that never received their
// canonical path are reported as missing.
func (s *Server) handleGetImage(c *gin.Context) {
	if s.opts.Assets == nil {
		respondError(c, http.StatusServiceUnavailable, "asset store unavailable")
		return
	}
	asset, err := s.opts.Assets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "could not load image", err)
		return
	}
	if asset == nil || asset.CanonicalPath == "" {
		respondError(c, http.StatusNotFound, "image not found")
		return
	}
	etag := `"` + asset.ID + `"`
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("ETag", etag)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, asset.MIMEType, asset.Data)
}

func (s *Server) handleListImages(c *gin.Context) {
	if s.opts.Assets == nil {
		respondError(c, http.StatusServiceUnavailable, "asset store unavailable")
		return
	}
	limit := queryInt(c, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := max(queryInt(c, "offset", 0), 0)
	items, total, err := s.opts.Assets.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.fail(c, "could not list images", err)
		return
	}
	build := s.urlBuilder(c)
	out := ImageListResponse{Images: make([]Image, 0, len(items)), Total: total, Limit: limit, Offset: offset}
	for _, item := range items {
		out.Images = append(out.Images, FromSummary(item, build))
	}
	respond(c, http.StatusOK, "images listed", out)
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	if s.opts.Assets == nil {
		respondError(c, http.StatusServiceUnavailable, "asset store unavailable")
		return
	}
	if err := s.opts.Assets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, "could not delete image", err)
		return
	}
	respond(c, http.StatusOK, "image deleted", nil)
}

// handleUploadImages stores up to ingest.MaxUploadFiles multipart "image"
// parts as manual assets. The response lists the stored images; files that
// failed are only reported when nothing could be stored.
func (s *Server) handleUploadImages(c *gin.Context) {
	if s.opts.Ingest == nil {
		respondError(c, http.StatusServiceUnavailable, "ingest unavailable")
		return
	}
	author, ok := authorID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes+(1<<20))
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		respondError(c, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := form.File["image"]
	if len(headers) > ingest.MaxUploadFiles {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("at most %d images per upload", ingest.MaxUploadFiles))
		return
	}
	files := make([]ingest.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "unreadable image file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(c, http.StatusBadRequest, "unreadable image file")
			return
		}
		files = append(files, ingest.UploadFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := s.opts.Ingest.UploadImages(c.Request.Context(), ingest.UploadInput{
		Files:      files,
		AltText:    c.PostForm("altText"),
		UploadedBy: author,
	}, s.urlBuilder(c))
	if err != nil {
		s.fail(c, "could not upload images", err)
		return
	}
	if len(res.Images) == 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Envelope{
			Success: false,
			Message: "no images could be stored",
			Data:    res.Failures,
			Error:   res.Failures[0].Error,
		})
		return
	}
	message := "images uploaded"
	if len(res.Failures) > 0 {
		message = fmt.Sprintf("%d of %d images uploaded", len(res.Images), len(files))
	}
	respond(c, http.StatusCreated, message, res.Images)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
