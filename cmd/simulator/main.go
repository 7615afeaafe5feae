package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"gator-overflow/internal/utils"
	"gator-overflow/simulator"

	"go.uber.org/zap"
)

func main() {
	config := simulator.DefaultSimConfig()

	flag.StringVar(&config.EngineURL, "url", config.EngineURL, "base URL of the engine")
	flag.IntVar(&config.NumUsers, "users", config.NumUsers, "number of simulated users")
	flag.IntVar(&config.NumTags, "tags", config.NumTags, "size of the tag vocabulary")
	flag.IntVar(&config.TagsPerPost, "tags-per-post", config.TagsPerPost, "tags attached to each question")
	flag.DurationVar(&config.SimulationTime, "duration", config.SimulationTime, "how long to run")
	flag.Float64Var(&config.PostFrequency, "post-rate", config.PostFrequency, "questions per user per hour")
	flag.Float64Var(&config.AnswerFrequency, "answer-rate", config.AnswerFrequency, "answers per user per hour")
	flag.Float64Var(&config.VoteFrequency, "vote-rate", config.VoteFrequency, "upvote toggles per user per hour")
	flag.Float64Var(&config.ViewFrequency, "view-rate", config.ViewFrequency, "post reads per user per hour")
	flag.Float64Var(&config.ZipfS, "zipf", config.ZipfS, "Zipf exponent for tag popularity")
	flag.StringVar(&config.JWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "secret used to sign per-user tokens")
	flag.StringVar(&config.JWTIssuer, "jwt-issuer", os.Getenv("JWT_ISSUER"), "issuer claim for signed tokens")
	debug := flag.Bool("debug", false, "log every request outcome")
	flag.Parse()

	logger, err := utils.NewLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting simulation",
		zap.String("engineURL", config.EngineURL),
		zap.Int("users", config.NumUsers),
		zap.Int("tags", config.NumTags),
		zap.Duration("duration", config.SimulationTime),
		zap.Float64("postRate", config.PostFrequency),
		zap.Float64("answerRate", config.AnswerFrequency),
		zap.Float64("voteRate", config.VoteFrequency),
		zap.Float64("zipf", config.ZipfS),
		zap.Bool("signedRequests", config.JWTSecret != ""))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.SimulationTime)
	defer cancel()

	sim := simulator.NewEnhancedSimulator(config, logger)
	if err := sim.Run(ctx); err != nil {
		logger.Fatal("Simulation failed", zap.Error(err))
	}

	metrics := sim.GetMetrics()
	logger.Info("Simulation completed",
		zap.Int("totalUsers", metrics.TotalUsers),
		zap.Int("activeUsers", metrics.ActiveUsers),
		zap.Int("posts", metrics.TotalPosts),
		zap.Int("answers", metrics.TotalAnswers),
		zap.Int("votes", metrics.TotalVotes),
		zap.Int("views", metrics.TotalViews),
		zap.Int("errors", metrics.ErrorCount),
		zap.Float64("requestsPerSecond", metrics.RequestsPerSecond))
}
