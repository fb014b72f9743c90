package jobs

import (
	"context"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	redisclient "github.com/yungbote/studybridge-backend/internal/clients/redis"
	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/services"
	"github.com/yungbote/studybridge-backend/internal/types"
)

// Consumer subscribes to job transition events and drives each job forward
// through its automatic stages. Classification hands off to a human from
// awaiting_assignment onward; the consumer only takes a job as far as a
// suggestion. Redundant deliveries are expected and harmless: a stage whose
// precondition no longer holds refuses with a precondition error, which the
// consumer logs at debug and drops.
type Consumer struct {
	log      *logger.Logger
	bus      redisclient.JobBus
	pipeline services.PipelineService
}

func NewConsumer(log *logger.Logger, bus redisclient.JobBus, pipeline services.PipelineService) *Consumer {
	return &Consumer{
		log:      log.With("service", "JobConsumer"),
		bus:      bus,
		pipeline: pipeline,
	}
}

// Start subscribes and dispatches until ctx is cancelled. Stage work runs
// on the bus's consumer goroutine one event at a time; jobs serialize
// naturally behind their own transitions.
func (c *Consumer) Start(ctx context.Context) error {
	return c.bus.StartConsumer(ctx, func(evt redisclient.JobTransition) {
		c.dispatch(ctx, evt)
	})
}

func (c *Consumer) dispatch(ctx context.Context, evt redisclient.JobTransition) {
	var err error
	switch evt.To {
	case types.JobStatusIngesting:
		err = c.pipeline.Ingest(ctx, evt.JobID)
	case types.JobStatusNeedsSplit:
		err = c.pipeline.SplitExtracted(ctx, evt.JobID)
	case types.JobStatusExtracted:
		err = c.pipeline.Plan(ctx, evt.JobID)
	case types.JobStatusPlanningDone, types.JobStatusReadyForGeneration:
		err = c.pipeline.StartGeneration(ctx, evt.JobID)
	case types.JobStatusAwaitingAssignment:
		err = c.pipeline.SuggestAssignment(ctx, evt.JobID, "")
	default:
		return
	}
	if err == nil {
		return
	}
	if apperr.IsPrecondition(err) {
		c.log.Debug("stale job transition dropped", "job_id", evt.JobID, "to", evt.To, "error", err)
		return
	}
	c.log.Warn("job stage failed", "job_id", evt.JobID, "to", evt.To, "error", err)
}
