package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/dto"
	"github.com/VanGongwanxiaowan/batch-video2/pipeline"
)

type ServiceDependencies struct {
	Executor *pipeline.Executor
}

// JobHandler decodes a queue delivery and hands it to the executor. A
// returned error means the delivery could not be handled at all and is
// eligible for redelivery; pipeline outcomes never surface as errors.
func JobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.JobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal job message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", job.JobID).
		Msg("received job message")

	outcome, err := deps.Executor.Execute(ctx, job.JobID)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", outcome.JobID).
		Str("execution_id", outcome.ExecutionID.String()).
		Str("status", outcome.Status.String()).
		Msg("job message handled")

	return nil
}
