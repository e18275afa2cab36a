package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is invoked on every scheduled run with the wall-clock time of the run.
type Task func(ctx context.Context, now time.Time)

// Config tunes daily schedule behaviour.
type Config struct {
	SendAt   string // HH:MM wall-clock time of day
	Location *time.Location
	Logger   *zap.Logger
}

// Daily runs a task once per day at a fixed wall-clock time. Runs never
// overlap: the next timer is armed only after the task returns.
type Daily struct {
	name string
	task Task

	hour   int
	minute int
	loc    *time.Location
	logger *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewDaily builds a daily scheduler for the provided task.
func NewDaily(name string, task Task, cfg Config) (*Daily, error) {
	hour, minute, err := parseSendAt(cfg.SendAt)
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Daily{
		name:   name,
		task:   task,
		hour:   hour,
		minute: minute,
		loc:    cfg.Location,
		logger: cfg.Logger,
	}, nil
}

// Start launches the scheduling loop. Safe to call once.
func (d *Daily) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.loop()
	d.started = true
	d.logger.Sugar().Infow("scheduler started", "schedule", d.name, "next_run", d.NextRun())
}

// Stop cancels the loop and waits for it to exit.
func (d *Daily) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Sugar().Infow("scheduler stopped", "schedule", d.name)
}

// NextRun reports the next scheduled invocation time.
func (d *Daily) NextRun() time.Time {
	return d.nextAfter(time.Now().In(d.loc))
}

func (d *Daily) loop() {
	defer d.wg.Done()
	for {
		now := time.Now().In(d.loc)
		next := d.nextAfter(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-d.ctx.Done():
			timer.Stop()
			return
		case runAt := <-timer.C:
			d.logger.Sugar().Infow("scheduled run starting", "schedule", d.name)
			d.task(d.ctx, runAt.In(d.loc))
		}
	}
}

// nextAfter returns the first occurrence of the configured time of day
// strictly after now.
func (d *Daily) nextAfter(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func parseSendAt(raw string) (hour, minute int, err error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid send-at time %q, expected HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid send-at hour %q", parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid send-at minute %q", parts[1])
	}
	return hour, minute, nil
}
