// Package scheduler runs riptide's periodic maintenance tasks on cron
// schedules and exposes their state for the API.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

// TaskConfig declares one task: identity, schedule, and body. A task is
// scheduled either by Cron or by Every; Every wins when both are set.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Cron        string        // five-field cron expression
	Every       time.Duration // fixed interval, alternative to Cron
	Func        TaskFunc
	RunOnStart  bool
}

// TaskInfo is the API view of a task's state.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cron        string     `json:"cron,omitempty"`
	Every       string     `json:"every,omitempty"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
}

// task pairs a config with its gocron job and run state.
type task struct {
	cfg     TaskConfig
	job     gocron.Job
	lastRun *time.Time
	running bool
}

// Scheduler owns the gocron instance and the task registry.
type Scheduler struct {
	cron   gocron.Scheduler
	logger zerolog.Logger

	mu    sync.RWMutex
	tasks map[string]*task
}

func New(logger zerolog.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		cron:   cron,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*task),
	}, nil
}

// RegisterTask adds a task to the registry and schedules it. IDs must be
// unique; registration happens before Start.
func (s *Scheduler) RegisterTask(cfg TaskConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.tasks[cfg.ID]; dup {
		return fmt.Errorf("task %q already registered", cfg.ID)
	}

	schedule := gocron.CronJob(cfg.Cron, false)
	if cfg.Every > 0 {
		schedule = gocron.DurationJob(cfg.Every)
	}

	id := cfg.ID
	job, err := s.cron.NewJob(
		schedule,
		gocron.NewTask(func() { s.run(id) }),
		gocron.WithName(cfg.Name),
		gocron.WithTags(cfg.ID),
	)
	if err != nil {
		return fmt.Errorf("schedule task %q: %w", cfg.ID, err)
	}

	s.tasks[cfg.ID] = &task{cfg: cfg, job: job}
	s.logger.Info().
		Str("task", cfg.ID).
		Str("schedule", scheduleString(cfg)).
		Bool("runOnStart", cfg.RunOnStart).
		Msg("registered task")
	return nil
}

// Start begins cron dispatch and kicks off any run-on-start tasks.
func (s *Scheduler) Start() error {
	s.cron.Start()

	s.mu.RLock()
	var immediate []string
	for id, t := range s.tasks {
		if t.cfg.RunOnStart {
			immediate = append(immediate, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range immediate {
		go s.run(id)
	}
	s.logger.Info().Int("tasks", len(s.tasks)).Msg("scheduler started")
	return nil
}

// Stop shuts the cron dispatcher down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("stopping scheduler")
	return s.cron.Shutdown()
}

// RunNow triggers one task outside its schedule. Already-running tasks
// are not started twice.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	t, ok := s.tasks[id]
	running := ok && t.running
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("task %q not found", id)
	}
	if running {
		return fmt.Errorf("task %q is already running", id)
	}
	go s.run(id)
	return nil
}

// run executes a task body, tracking start time and running state.
func (s *Scheduler) run(id string) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok || t.running {
		s.mu.Unlock()
		return
	}
	t.running = true
	s.mu.Unlock()

	started := time.Now()
	err := t.cfg.Func(context.Background())
	elapsed := time.Since(started)

	s.mu.Lock()
	t.running = false
	t.lastRun = &started
	s.mu.Unlock()

	event := s.logger.Info()
	if err != nil {
		event = s.logger.Error().Err(err)
	}
	event.Str("task", id).Dur("elapsed", elapsed).Msg("task finished")
}

// ListTasks returns the state of every registered task, ordered by ID.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		infos = append(infos, t.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// GetTask returns the state of one task.
func (s *Scheduler) GetTask(id string) (*TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q not found", id)
	}
	info := t.info()
	return &info, nil
}

// info builds the API view. Caller holds at least a read lock.
func (t *task) info() TaskInfo {
	info := TaskInfo{
		ID:          t.cfg.ID,
		Name:        t.cfg.Name,
		Description: t.cfg.Description,
		LastRun:     t.lastRun,
		Running:     t.running,
	}
	if t.cfg.Every > 0 {
		info.Every = t.cfg.Every.String()
	} else {
		info.Cron = t.cfg.Cron
	}
	if next, err := t.job.NextRun(); err == nil {
		info.NextRun = &next
	}
	return info
}

func scheduleString(cfg TaskConfig) string {
	if cfg.Every > 0 {
		return "every " + cfg.Every.String()
	}
	return cfg.Cron
}
