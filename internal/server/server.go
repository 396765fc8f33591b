package server

import (
	"context"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// Service is the document QA pipeline the handlers call into.
type Service interface {
	Ingest(ctx context.Context, filename string, body io.Reader) (*models.IngestResult, error)
	Query(ctx context.Context, filename, question string) (*models.QueryResult, error)
	Documents(ctx context.Context) ([]models.DocumentInfo, error)
}

type Server struct {
	cfg    config.ServerConfig
	svc    Service
	router *gin.Engine
}

func New(cfg config.ServerConfig, svc Service) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	s := &Server{cfg: cfg, svc: svc}

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), RequestLogger())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}
	router.SetHTMLTemplate(template.Must(template.New("index.html").Funcs(template.FuncMap{
		"add1": func(i int) int { return i + 1 },
	}).ParseFS(templatesFS, "templates/index.html")))

	router.GET("/health", s.health)
	router.POST("/upload", s.upload)
	router.POST("/search", s.search)
	router.GET("/documents", s.documents)

	router.GET("/", s.uiIndex)
	router.POST("/ui/upload", s.uiUpload)
	router.POST("/ui/ask", s.uiAsk)

	s.router = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns an http.Server bound to the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}
