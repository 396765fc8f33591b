package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"document-qa/internal/models"
)

type searchRequest struct {
	Query    string `form:"query" json:"query"`
	FileName string `form:"file_name" json:"file_name"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) upload(c *gin.Context) {
	fh, ok := s.formFile(c)
	if !ok {
		return
	}
	result, err := s.ingest(c, fh)
	if err != nil {
		RespondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) search(c *gin.Context) {
	req, err := bindSearch(c)
	if err != nil {
		RespondWithBadRequest(c, err.Error())
		return
	}
	if req.FileName == "" {
		RespondWithBadRequest(c, "file_name is required")
		return
	}
	result, err := s.svc.Query(c.Request.Context(), req.FileName, req.Query)
	if err != nil {
		RespondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) documents(c *gin.Context) {
	docs, err := s.svc.Documents(c.Request.Context())
	if err != nil {
		RespondWithPipelineError(c, err)
		return
	}
	if docs == nil {
		docs = []models.DocumentInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// formFile reads the multipart "file" field, replying with an error when it is missing or too large.
func (s *Server) formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	s.limitBody(c)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		RespondWithBadRequest(c, "multipart field \"file\" is required")
		return nil, false
	}
	return fh, true
}

func (s *Server) limitBody(c *gin.Context) {
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}
}

func (s *Server) ingest(c *gin.Context, fh *multipart.FileHeader) (*models.IngestResult, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.svc.Ingest(c.Request.Context(), fh.Filename, f)
}

// bindSearch accepts query and file_name as URL query parameters, form fields or a JSON body.
func bindSearch(c *gin.Context) (searchRequest, error) {
	var req searchRequest
	if c.ContentType() == binding.MIMEJSON {
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				return req, fmt.Errorf("invalid JSON body: %w", err)
			}
		}
	} else if err := c.ShouldBind(&req); err != nil {
		return req, fmt.Errorf("invalid form: %w", err)
	}
	if req.Query == "" {
		req.Query = c.Query("query")
	}
	if req.FileName == "" {
		req.FileName = c.Query("file_name")
	}
	req.FileName = strings.TrimSpace(req.FileName)
	return req, nil
}
