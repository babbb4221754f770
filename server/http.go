package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/client"
	"github.com/VanGongwanxiaowan/batch-video2/config"
	"github.com/VanGongwanxiaowan/batch-video2/constant"
	"github.com/VanGongwanxiaowan/batch-video2/entities"
	jobHandler "github.com/VanGongwanxiaowan/batch-video2/handler"
	"github.com/VanGongwanxiaowan/batch-video2/pipeline"
	"github.com/VanGongwanxiaowan/batch-video2/pkg/media"
	"github.com/VanGongwanxiaowan/batch-video2/pkg/rabbitmq"
	"github.com/VanGongwanxiaowan/batch-video2/pkg/storage"
	"github.com/VanGongwanxiaowan/batch-video2/repository"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	repo := repository.NewRepo(cfg.DB)
	blobs := storage.New(cfg.Storage, cfg.MinIOBucket)

	deps := pipeline.Deps{
		Speech:  client.NewSpeechClient(cfg.Services.SpeechURL, cfg.Services.Timeout),
		Image:   client.NewImageClient(cfg.Services.ImageURL, cfg.Services.Timeout),
		Avatar:  client.NewAvatarClient(cfg.Services.AvatarURL, cfg.Services.Timeout),
		Media:   media.NewEngine(),
		Storage: blobs,
	}
	executor := pipeline.NewExecutor(repo, cfg.Pipeline, deps)

	serviceDeps := jobHandler.ServiceDependencies{
		Executor: executor,
	}

	jobConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.JobHandler)
	go func() {
		err := jobConsumer.Consume(ctx, serviceDeps)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Job consumer error")
		}
	}()

	go runSweeper(ctx, repo, cfg.Pipeline)

	r := gin.Default()
	addHealth(r)
	addExecutionStatus(r, repo, blobs)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

// runSweeper periodically fails executions stuck in RUNNING, recovering
// rows orphaned by crashed workers.
func runSweeper(ctx context.Context, repo repository.JobRepository, cfg config.Pipeline) {
	if cfg.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := repo.FailStale(ctx, cfg.StaleAfter)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("stale execution sweep failed")
				continue
			}
			if swept > 0 {
				zerolog.Ctx(ctx).Warn().Int64("count", swept).Msg("failed stale executions")
			}
		}
	}
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func addExecutionStatus(r *gin.Engine, repo repository.JobRepository, blobs *storage.Client) {
	r.GET("/jobs/:id/execution", func(c *gin.Context) {
		jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
			return
		}

		execution, err := repo.LatestByJobID(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if execution == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no execution for job"})
			return
		}

		body := gin.H{
			"execution_id":  execution.ID,
			"job_id":        execution.JobID,
			"status":        execution.Status,
			"status_detail": execution.StatusDetail,
			"retry_count":   execution.RetryCount,
			"error_message": execution.ErrorMessage,
			"result_key":    execution.ResultKey,
			"started_at":    execution.StartedAt,
			"finished_at":   execution.FinishedAt,
		}
		if url := signFinalVideo(c.Request.Context(), blobs, execution); url != "" {
			body["download_url"] = url
		}

		c.JSON(http.StatusOK, body)
	})
}

// signFinalVideo presigns the final video of a successful execution so
// callers can download it without bucket credentials.
func signFinalVideo(ctx context.Context, blobs *storage.Client, execution *entities.JobExecution) string {
	if execution.Status != constant.ExecutionStatusSuccess || execution.ResultKey == "" {
		return ""
	}
	var result map[string]string
	if err := json.Unmarshal([]byte(execution.ResultKey), &result); err != nil {
		return ""
	}
	key, ok := result["final_video_key"]
	if !ok {
		return ""
	}
	url, err := blobs.SignURL(ctx, key, time.Hour)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to presign final video")
		return ""
	}
	return url
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
