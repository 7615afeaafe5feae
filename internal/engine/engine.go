package engine

import (
	"time"

	"gator-overflow/internal/database"
	"gator-overflow/internal/engine/actors"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/router"
	"go.uber.org/zap"
)

// Options sizes the actor pools and bounds each store call.
type Options struct {
	PoolSize         int
	OperationTimeout time.Duration
	MaxImageSize     int64
}

// Engine coordinates communication between actors. Each domain gets a
// round-robin pool of stateless actors sharing one store.
type Engine struct {
	postActor *actor.PID
	tagActor  *actor.PID
	userActor *actor.PID
}

func NewEngine(system *actor.ActorSystem, store database.DBAdapter, metrics *utils.MetricsCollector, logger *zap.Logger, opts Options) *Engine {
	context := system.Root
	if opts.PoolSize < 1 {
		opts.PoolSize = 1
	}

	// Spawn post actor pool
	postPID := context.Spawn(router.NewRoundRobinPool(opts.PoolSize, actor.WithProducer(func() actor.Actor {
		return actors.NewPostActor(store, metrics, logger, opts.OperationTimeout)
	})))

	// Spawn tag actor pool
	tagPID := context.Spawn(router.NewRoundRobinPool(opts.PoolSize, actor.WithProducer(func() actor.Actor {
		return actors.NewTagActor(store, metrics, logger, opts.OperationTimeout)
	})))

	// Spawn user actor pool
	userPID := context.Spawn(router.NewRoundRobinPool(opts.PoolSize, actor.WithProducer(func() actor.Actor {
		return actors.NewUserActor(store, metrics, logger, opts.OperationTimeout, opts.MaxImageSize)
	})))

	logger.Info("Actor pools started", zap.Int("poolSize", opts.PoolSize))

	return &Engine{
		postActor: postPID,
		tagActor:  tagPID,
		userActor: userPID,
	}
}

// GetPostActor returns the PID of the post actor pool
func (e *Engine) GetPostActor() *actor.PID {
	return e.postActor
}

// GetTagActor returns the PID of the tag actor pool
func (e *Engine) GetTagActor() *actor.PID {
	return e.tagActor
}

// GetUserActor returns the PID of the user actor pool
func (e *Engine) GetUserActor() *actor.PID {
	return e.userActor
}

// Stop stops every pool and waits for the routees to finish.
func (e *Engine) Stop(system *actor.ActorSystem) {
	for _, pid := range []*actor.PID{e.postActor, e.tagActor, e.userActor} {
		_ = system.Root.StopFuture(pid).Wait()
	}
}
