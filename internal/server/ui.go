package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"document-qa/internal/models"
)

//go:embed templates/index.html
var templatesFS embed.FS

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

type pageData struct {
	Filename   string
	Question   string
	Upload     *models.IngestResult
	Result     *models.QueryResult
	AnswerHTML template.HTML
	Error      string
}

func (s *Server) uiIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{Filename: c.Query("file_name")})
}

func (s *Server) uiUpload(c *gin.Context) {
	s.limitBody(c)
	fh, err := c.FormFile("file")
	if err != nil {
		c.HTML(http.StatusBadRequest, "index.html", pageData{Error: "Choose a .pdf or .txt file to upload."})
		return
	}
	result, err := s.ingest(c, fh)
	if err != nil {
		_ = c.Error(err)
		status, _ := classify(err)
		c.HTML(status, "index.html", pageData{Filename: fh.Filename, Error: "Failed to upload: " + err.Error()})
		return
	}
	c.HTML(http.StatusOK, "index.html", pageData{Filename: result.Filename, Upload: result})
}

func (s *Server) uiAsk(c *gin.Context) {
	data := pageData{
		Filename: c.PostForm("file_name"),
		Question: c.PostForm("query"),
	}
	if data.Filename == "" || data.Question == "" {
		data.Error = "Please upload a file and type your question first."
		c.HTML(http.StatusBadRequest, "index.html", data)
		return
	}
	result, err := s.svc.Query(c.Request.Context(), data.Filename, data.Question)
	if err != nil {
		_ = c.Error(err)
		status, _ := classify(err)
		data.Error = "Search failed: " + err.Error()
		c.HTML(status, "index.html", data)
		return
	}
	data.Result = result
	data.AnswerHTML = renderAnswer(result.Answer)
	c.HTML(http.StatusOK, "index.html", data)
}

// renderAnswer converts the model's markdown answer to HTML; raw HTML in the answer is not passed through.
func renderAnswer(answer string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(answer), &buf); err != nil {
		log.Warn().Err(err).Msg("Error rendering answer")
		return template.HTML(template.HTMLEscapeString(answer))
	}
	return template.HTML(buf.String())
}
