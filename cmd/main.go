package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-qa/internal/config"
	"document-qa/internal/db"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/llmservice"
	"document-qa/internal/rag"
	"document-qa/internal/server"
	"document-qa/internal/storage"
)

const defaultConfigFilePath = "./configs/config.yaml"

var (
	configFilePath string
	debug          bool
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about uploaded documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFilePath, "config", "c", defaultConfigFilePath, "path to config.yaml")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(serveCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(documentsCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and upload/question form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pipeline, closeFn, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			srv := server.New(cfg.Server, pipeline).HTTPServer()
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("Server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Failed to start server")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info().Msg("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			log.Info().Msg("Server exited")
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>",
		Short: "Upload a local .pdf or .txt file and build its index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipeline, closeFn, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := pipeline.Ingest(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			helper.PrettyPrint(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func queryCmd() *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question about an ingested document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipeline, closeFn, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := pipeline.Query(cmd.Context(), filename, strings.Join(args, " "))
			if err != nil {
				return err
			}
			helper.PrettyPrint(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filename, "file", "f", "", "name of the ingested document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func documentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipeline, closeFn, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			docs, err := pipeline.Documents(cmd.Context())
			if err != nil {
				return err
			}
			helper.PrettyPrint(cmd.OutOrStdout(), docs)
			return nil
		},
	}
}

// setup loads the config and wires the pipeline. The returned func releases the catalog connection.
func setup(ctx context.Context) (*config.Config, *rag.RAG, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	setLogLevel(cfg.LogLevel)
	log.Debug().Str("config", configFilePath).Msg("Loaded config")

	store, err := storage.NewStore(cfg.RAG.StorageDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error creating storage folder: %w", err)
	}
	log.Debug().Str("storage", store.Dir()).Msg("Using storage folder")

	closeFn := func() {}
	var catalog rag.Catalog
	if cfg.Database.Enabled {
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("error connecting to database: %w", err)
		}
		dbInstance := db.NewDB(sqldb, cfg.Database.Debug)
		if err := db.InitDB(ctx, dbInstance); err != nil {
			dbInstance.Close()
			return nil, nil, nil, fmt.Errorf("error initializing database: %w", err)
		}
		c := db.NewCatalog(dbInstance)
		catalog = c
		closeFn = func() {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing database")
			}
		}
	}

	pipeline, err := rag.NewRAG(store, embedding.NewLazy(cfg.EmbedLLM), llmservice.NewLazy(cfg.InferenceLLM), catalog, &cfg.RAG)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return cfg, pipeline, closeFn, nil
}

func setLogLevel(level string) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
