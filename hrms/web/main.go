package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tfshrms.cloud/hrms/core"
	hrms "tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	"tfshrms.cloud/hrms/infrastructure/communication"
	"tfshrms.cloud/hrms/infrastructure/devops"
	"tfshrms.cloud/hrms/infrastructure/filesystem"
	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/security"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hrms-api",
	Short: "Serve the hrms HTTP API",
	Long: `hrms-api serves the tracker, target and dashboard API until it receives
SIGINT or SIGTERM, then drains open requests.

Configuration is read from the --config file, then the SSM parameter
document, then HRMS_* environment variables.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runServe,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", os.Getenv("HRMS_CONFIG"), "path to the YAML config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := devops.Load(ctx, configPath, nil)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "server stopped", zap.Error(err))
		return err
	}
	return nil
}

func run(ctx context.Context, cfg *devops.Config, logger *logging.Logger) error {
	dm, err := core.New(cfg.Database.DSN.Value(), cfg.Database.MaxConnections, core.ParseLogLevel(cfg.Database.LogLevel))
	if err != nil {
		return err
	}
	defer dm.Close()

	jwtSecret, err := cfg.JWTSecret()
	if err != nil {
		return err
	}
	key, err := cfg.EncryptionKey()
	if err != nil {
		return err
	}
	cipher, err := security.NewCipher(key)
	if err != nil {
		return err
	}

	var files hrms.FileStore
	if cfg.Storage.Bucket != "" {
		store, err := filesystem.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.PublicBaseURL)
		if err != nil {
			return err
		}
		files = store
	} else {
		logger.Warn(ctx, "storage.bucket is not set, file uploads are disabled")
	}

	var mailer hrms.Mailer
	if cfg.Mail.Enabled {
		ses, err := communication.NewSESMailer(ctx, cfg.Mail.From)
		if err != nil {
			return err
		}
		mailer = ses
	}
	mail := hrms.NewMailDispatcher(mailer, logger.Named("mail"))
	defer mail.Wait()

	var notifier common.Notifier = communication.Discard{}
	if token := cfg.Slack.Token.Value(); token != "" {
		notifier = communication.NewSlack(token, communication.SlackOption{
			InfoChannelID:  cfg.Slack.InfoChannelID,
			ErrorChannelID: cfg.Slack.ErrorChannelID,
			Source:         "hrms-api",
		})
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(Deps{
		DB:        dm.DB(context.Background()),
		Log:       logger,
		Notifier:  notifier,
		Files:     files,
		Mail:      mail,
		Sealer:    cipher,
		JWTSecret: jwtSecret,
		TokenTTL:  cfg.Security.TokenTTL,
		ResetTokens: security.ResetTokens{
			Secret: []byte(cfg.Security.ResetSecret.Value()),
			TTL:    cfg.Security.ResetTokenTTL,
		},
		ResetURL:    cfg.Security.ResetFrontendURL,
		CorsOrigins: cfg.Server.CorsOrigins,
		Ready:       dm.Ping,
	})

	srv := &http.Server{Addr: cfg.Server.Address, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
