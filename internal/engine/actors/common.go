package actors

import (
	"context"
	"fmt"
	"time"

	"gator-overflow/internal/database"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// storeActor carries what every stateless data access actor needs. Actors
// built on it hold no domain state between messages so any number of them
// can sit behind a router.
type storeActor struct {
	name    string
	store   database.DBAdapter
	metrics *utils.MetricsCollector
	logger  *zap.Logger
	timeout time.Duration
}

func newStoreActor(name string, store database.DBAdapter, metrics *utils.MetricsCollector, logger *zap.Logger, timeout time.Duration) storeActor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return storeActor{
		name:    name,
		store:   store,
		metrics: metrics,
		logger:  logger.With(zap.String("actor", name)),
		timeout: timeout,
	}
}

// opContext bounds a single store operation.
func (a *storeActor) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

// respond records latency and replies with either the result or an
// *utils.AppError. Server-side failures are logged here and nowhere else.
func (a *storeActor) respond(ctx actor.Context, operation string, startTime time.Time, result interface{}, err error) {
	if a.metrics != nil {
		a.metrics.AddOperationLatency(operation, time.Since(startTime))
	}

	if err != nil {
		appErr := utils.AsAppError(err)
		if !utils.IsClientError(appErr.Code) {
			a.logger.Error("Operation failed",
				zap.String("operation", operation),
				zap.Error(appErr))
		}
		ctx.Respond(appErr)
		return
	}
	ctx.Respond(result)
}

func (a *storeActor) lifecycle(ctx actor.Context) bool {
	switch ctx.Message().(type) {
	case *actor.Started:
		a.logger.Debug("Actor started")
	case *actor.Stopping:
		a.logger.Debug("Actor stopping")
	case *actor.Stopped:
		a.logger.Debug("Actor stopped")
	case *actor.Restarting:
		a.logger.Warn("Actor restarting")
	default:
		return false
	}
	return true
}

func typeName(msg interface{}) string {
	return fmt.Sprintf("%T", msg)
}
