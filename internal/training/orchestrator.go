package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/metrics"
	"github.com/rate-estimator/internal/model"
)

var (
	ErrShutdown   = errors.New("training: orchestrator is shut down")
	ErrQueueFull  = errors.New("training: job queue is full")
	ErrUnknownJob = errors.New("training: unknown job")
)

// State is the lifecycle position of a job.
type State string

const (
	Queued    State = "queued"
	Running   State = "running"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// Completion reports the end of a job.
type Completion struct {
	JobID    string                   `json:"jobId"`
	Kind     artifacts.Kind           `json:"kind"`
	Success  bool                     `json:"success"`
	Metrics  map[string]model.Metrics `json:"metrics,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Duration time.Duration            `json:"duration"`
}

// Status is a snapshot of one job.
type Status struct {
	JobID      string         `json:"jobId"`
	Kind       artifacts.Kind `json:"kind"`
	State      State          `json:"state"`
	Submitted  time.Time      `json:"submitted"`
	Completion *Completion    `json:"completion,omitempty"`
}

// Config sizes the orchestrator.
type Config struct {
	Workers int
	Queue   int
	// Retain bounds how many finished jobs stay visible to Status.
	Retain int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Queue <= 0 {
		c.Queue = 16
	}
	if c.Retain <= 0 {
		c.Retain = 100
	}
	return c
}

// Runner executes one job. *Trainer implements it.
type Runner interface {
	Train(ctx context.Context, job Job) (map[string]model.Metrics, error)
}

type task struct {
	id        string
	job       Job
	ctx       context.Context
	cancel    context.CancelFunc
	submitted time.Time
	done      chan Completion

	state      State
	completion *Completion
}

// Orchestrator runs training jobs on a fixed pool of workers, away from the
// request path. Each job reports once on its completion channel.
type Orchestrator struct {
	runner Runner
	cfg    Config
	log    *zap.Logger

	queue     chan *task
	stop      chan struct{}
	base      context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	jobs     map[string]*task
	finished []string
}

// NewOrchestrator starts cfg.Workers workers.
func NewOrchestrator(runner Runner, cfg Config, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	base, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		runner:    runner,
		cfg:       cfg,
		log:       log.Named("training"),
		queue:     make(chan *task, cfg.Queue),
		stop:      make(chan struct{}),
		base:      base,
		cancelAll: cancel,
		jobs:      make(map[string]*task),
	}
	for i := range cfg.Workers {
		o.wg.Add(1)
		go o.worker(i)
	}
	return o
}

// Submit validates and queues a job. Column checks run here, so a sheet that
// cannot be trained is rejected before it reaches a worker.
func (o *Orchestrator) Submit(ctx context.Context, job Job) (string, <-chan Completion, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if err := Check(job); err != nil {
		return "", nil, err
	}

	jobCtx, cancel := context.WithCancel(o.base)
	t := &task{
		id:        uuid.NewString(),
		job:       job,
		ctx:       jobCtx,
		cancel:    cancel,
		submitted: time.Now(),
		done:      make(chan Completion, 1),
		state:     Queued,
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		cancel()
		return "", nil, ErrShutdown
	}
	select {
	case o.queue <- t:
	default:
		cancel()
		return "", nil, ErrQueueFull
	}
	o.jobs[t.id] = t

	o.log.Info("job queued",
		zap.String("job_id", t.id),
		zap.String("kind", string(job.Kind)),
		zap.Int("rows", len(job.Table.Rows)))
	return t.id, t.done, nil
}

// Status returns a snapshot of a queued, running or recently finished job.
func (o *Orchestrator) Status(id string) (Status, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.jobs[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return Status{JobID: t.id, Kind: t.job.Kind, State: t.state, Submitted: t.submitted, Completion: t.completion}, nil
}

// Cancel stops a queued or running job. The job still reports a failed
// completion.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	t, ok := o.jobs[id]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	t.cancel()
	return nil
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, running jobs are cancelled. Jobs still queued fail with
// ErrShutdown.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()
	close(o.stop)

	idle := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(idle)
	}()

	var err error
	select {
	case <-idle:
	case <-ctx.Done():
		err = ctx.Err()
		o.cancelAll()
		<-idle
	}

	for {
		select {
		case t := <-o.queue:
			o.finish(t, Completion{JobID: t.id, Kind: t.job.Kind, Error: ErrShutdown.Error()})
		default:
			o.cancelAll()
			return err
		}
	}
}

func (o *Orchestrator) worker(n int) {
	defer o.wg.Done()
	for {
		select {
		case <-o.stop:
			o.log.Debug("worker stopped", zap.Int("worker", n))
			return
		case t := <-o.queue:
			o.run(t)
		}
	}
}

func (o *Orchestrator) run(t *task) {
	log := o.log.With(zap.String("job_id", t.id), zap.String("kind", string(t.job.Kind)))

	o.mu.Lock()
	t.state = Running
	o.mu.Unlock()
	log.Info("job started")

	start := time.Now()
	m, err := o.execute(t, log)
	c := Completion{
		JobID:    t.id,
		Kind:     t.job.Kind,
		Success:  err == nil,
		Metrics:  m,
		Duration: time.Since(start),
	}

	metrics.TrainingJobDuration.WithLabelValues(string(t.job.Kind)).Observe(c.Duration.Seconds())
	if err != nil {
		c.Error = err.Error()
		metrics.TrainingJobsTotal.WithLabelValues(string(t.job.Kind), metrics.OutcomeError).Inc()
		log.Error("job failed", zap.Error(err), zap.Duration("took", c.Duration))
	} else {
		metrics.TrainingJobsTotal.WithLabelValues(string(t.job.Kind), metrics.OutcomeOK).Inc()
		log.Info("job succeeded", zap.Duration("took", c.Duration))
	}
	o.finish(t, c)
}

// execute runs the job and turns a panic into an error.
func (o *Orchestrator) execute(t *task, log *zap.Logger) (m map[string]model.Metrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r), zap.Stack("stack"))
			m, err = nil, fmt.Errorf("training panicked: %v", r)
		}
	}()

	if err := t.ctx.Err(); err != nil {
		return nil, err
	}
	return o.runner.Train(t.ctx, t.job)
}

func (o *Orchestrator) finish(t *task, c Completion) {
	t.cancel()

	o.mu.Lock()
	if c.Success {
		t.state = Succeeded
	} else {
		t.state = Failed
	}
	t.completion = &c
	o.jobs[t.id] = t
	o.finished = append(o.finished, t.id)
	for len(o.finished) > o.cfg.Retain {
		delete(o.jobs, o.finished[0])
		o.finished = o.finished[1:]
	}
	o.mu.Unlock()

	t.done <- c
	close(t.done)
}
