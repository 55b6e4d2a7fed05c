package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/photogram/api/core"
	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/internal/di"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	cfg := loadConfig()
	log := logger.Named("server")

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	container := di.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatal("Failed to initialize container", zap.Error(err))
	}

	// 自动DDL
	if err := container.GetDatabaseFactory().AutoMigrate(); err != nil {
		log.Fatal("Failed to auto migrate database", zap.Error(err))
	}

	server, cleanup := core.StartServer(container)
	go func() {
		log.Info("Server started",
			zap.String("addr", cfg.Addr()),
			zap.String("version", config.Version),
			zap.String("commit", config.CommitHash),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if cleanup != nil {
		cleanup()
	}

	if err := container.Close(); err != nil {
		log.Error("Error closing container", zap.Error(err))
	}

	log.Info("Server exited successfully")
}
