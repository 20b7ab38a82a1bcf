package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"imgferry/internal/archive"
	"imgferry/internal/ingest"
	"imgferry/internal/pipeline"
)

func authorID(c *gin.Context) (string, bool) {
	author := strings.TrimSpace(c.GetHeader(headerAuthorID))
	if author == "" {
		respondError(c, http.StatusBadRequest, "missing "+headerAuthorID+" header")
		return "", false
	}
	return author, true
}

func (s *Server) handleCreatePost(c *gin.Context) {
	if s.opts.Ingest == nil {
		respondError(c, http.StatusServiceUnavailable, "ingest unavailable")
		return
	}
	author, ok := authorID(c)
	if !ok {
		return
	}
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.opts.Ingest.CreateDocument(c.Request.Context(), ingest.DocumentInput{
		Title:    req.Title,
		Summary:  req.Summary,
		Content:  req.Content,
		AuthorID: author,
	}, s.urlBuilder(c))
	if err != nil {
		s.fail(c, "could not create post", err)
		return
	}
	respond(c, http.StatusCreated, "post created", postResponse(res))
}

func (s *Server) handleUpdatePost(c *gin.Context) {
	if s.opts.Ingest == nil {
		respondError(c, http.StatusServiceUnavailable, "ingest unavailable")
		return
	}
	author, ok := authorID(c)
	if !ok {
		return
	}
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.opts.Ingest.UpdateDocument(c.Request.Context(), c.Param("id"), ingest.DocumentInput{
		Title:    req.Title,
		Summary:  req.Summary,
		Content:  req.Content,
		AuthorID: author,
	}, s.urlBuilder(c))
	if err != nil {
		s.fail(c, "could not update post", err)
		return
	}
	respond(c, http.StatusOK, "post updated", postResponse(res))
}

func (s *Server) handleImportPost(c *gin.Context) {
	if s.opts.Ingest == nil {
		respondError(c, http.StatusServiceUnavailable, "ingest unavailable")
		return
	}
	author, ok := authorID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes+(1<<20))
	header, err := c.FormFile("archive")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		respondError(c, http.StatusBadRequest, "missing archive file")
		return
	}
	if header.Size > s.opts.MaxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("archive exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable archive file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable archive file")
		return
	}

	res, err := s.opts.Ingest.ImportArchive(c.Request.Context(), archive.Upload{
		Filename:   header.Filename,
		Data:       data,
		UploadedBy: author,
		URLBuilder: s.urlBuilder(c),
	})
	if err != nil {
		s.fail(c, "could not import archive", err)
		return
	}
	respond(c, http.StatusCreated, "post imported", ImportResponse{Post: FromDocument(res.Document), Import: res.Archive})
}

func postResponse(res *ingest.Result) PostResponse {
	out := PostResponse{
		Post:            FromDocument(res.Document),
		ProcessedImages: res.Outcome.Succeeded,
		Errors:          res.Outcome.Failed,
	}
	if out.ProcessedImages == nil {
		out.ProcessedImages = []pipeline.Success{}
	}
	if out.Errors == nil {
		out.Errors = []pipeline.Failure{}
	}
	return out
}
