package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/isdelr/taskflow-api/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const alertCooldown = 24 * time.Hour

// OverdueSource reports unfinished tasks past their due date, per user.
type OverdueSource interface {
	OverdueCounts(ctx context.Context, today models.Date) (map[string]int, error)
}

type alertState struct {
	count int
	at    time.Time
}

// ReminderScheduler periodically tells users about overdue tasks.
type ReminderScheduler struct {
	tasks    OverdueSource
	events   services.EventServiceProvider
	notifier services.Notifier
	cron     *cron.Cron
	now      func() time.Time

	mu        sync.Mutex
	lastAlert map[string]alertState
}

// NewReminderScheduler creates a new scheduler instance. events and notifier
// may be nil.
func NewReminderScheduler(tasks OverdueSource, events services.EventServiceProvider, notifier services.Notifier) *ReminderScheduler {
	return &ReminderScheduler{
		tasks:     tasks,
		events:    events,
		notifier:  notifier,
		cron:      cron.New(cron.WithLogger(cronLogger{})),
		now:       time.Now,
		lastAlert: make(map[string]alertState),
	}
}

// Start schedules the overdue check with a standard cron expression or a
// descriptor such as "@hourly".
func (s *ReminderScheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.CheckOverdue(context.Background()); err != nil {
			log.Error().Err(err).Msg("Reminder: overdue check failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	log.Info().Str("schedule", spec).Msg("Starting background reminder scheduler...")
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits up to timeout for a running check.
func (s *ReminderScheduler) Stop(timeout time.Duration) {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Info().Msg("Stopping background reminder scheduler.")
	case <-time.After(timeout):
		log.Warn().Msg("Reminder scheduler did not stop in time")
	}
}

// CheckOverdue notifies every user with overdue tasks and returns how many
// users were notified. An activity event is recorded when the count changes
// or the previous alert is older than a day.
func (s *ReminderScheduler) CheckOverdue(ctx context.Context) (int, error) {
	now := s.now()
	counts, err := s.tasks.OverdueCounts(ctx, models.DateOf(now))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, count := range counts {
		if s.notifier != nil {
			s.notifier.NotifyUser(userID, models.EventTasksOverdue, map[string]int{"count": count})
		}

		last, seen := s.lastAlert[userID]
		if seen && last.count == count && now.Sub(last.at) < alertCooldown {
			continue
		}
		s.lastAlert[userID] = alertState{count: count, at: now}

		if s.events != nil {
			msg := fmt.Sprintf("You have %d overdue task(s).", count)
			if err := s.events.CreateEvent(ctx, userID, models.EventTasksOverdue, "warn", msg, nil); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("Reminder: failed to record event")
			}
		}
	}

	// Users who caught up get a fresh alert next time they fall behind.
	for userID := range s.lastAlert {
		if _, ok := counts[userID]; !ok {
			delete(s.lastAlert, userID)
		}
	}

	log.Debug().Int("users", len(counts)).Msg("Reminder: overdue check complete")
	return len(counts), nil
}

// cronLogger routes robfig/cron's internal logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
