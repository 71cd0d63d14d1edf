package sweeper

import (
	"context"
	"log"
	"time"

	"gymbuddy-backend/internal/engine"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const TaskPresenceSweep = "presence:sweep"

// Sweeper runs the periodic presence sweep: expired availability rows are
// flipped to inactive in the background instead of inside read paths.
type Sweeper struct {
	presence *engine.PresenceService
	server   *asynq.Server
	client   *asynq.Client
	interval time.Duration
}

func redisOpt(redisURL string) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "localhost:6379"}
	if parsed, err := redis.ParseURL(redisURL); err == nil {
		opt.Addr = parsed.Addr
		opt.Password = parsed.Password
		opt.DB = parsed.DB
	}
	return opt
}

func New(presence *engine.PresenceService, redisURL string, interval time.Duration) *Sweeper {
	opt := redisOpt(redisURL)

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			"maintenance": 1,
		},
	})

	return &Sweeper{
		presence: presence,
		server:   server,
		client:   asynq.NewClient(opt),
		interval: interval,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPresenceSweep, s.handleSweepTask)

	go func() {
		if err := s.server.Run(mux); err != nil {
			log.Printf("[SWEEPER] asynq server error: %v", err)
		}
	}()

	go s.enqueueLoop(ctx)

	log.Printf("[SWEEPER] started, interval %v", s.interval)
	return nil
}

func (s *Sweeper) Stop() {
	s.server.Shutdown()
	s.client.Close()
}

func (s *Sweeper) handleSweepTask(ctx context.Context, task *asynq.Task) error {
	count, err := s.presence.SweepExpired(ctx)
	if err != nil {
		log.Printf("[SWEEPER] sweep failed: %v", err)
		return err
	}
	if count > 0 {
		log.Printf("[SWEEPER] swept %d expired presences", count)
	}
	return nil
}

func (s *Sweeper) enqueueLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task := asynq.NewTask(TaskPresenceSweep, nil)
			if _, err := s.client.Enqueue(task, asynq.Queue("maintenance")); err != nil {
				log.Printf("[SWEEPER] failed to enqueue sweep task: %v", err)
			}
		}
	}
}
