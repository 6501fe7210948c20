package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/taskflow-api/internal/database"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/isdelr/taskflow-api/internal/validation"
	"github.com/rs/zerolog/log"
)

// TaskServiceProvider defines the interface for task services. Every method
// is scoped to ownerID; tasks of other users behave as if they did not exist.
type TaskServiceProvider interface {
	ListTasks(ctx context.Context, ownerID string, query models.TaskQuery) (models.TaskList, error)
	Stats(ctx context.Context, ownerID string) (models.TaskStats, error)
	GetTask(ctx context.Context, ownerID, taskID string) (models.Task, error)
	CreateTask(ctx context.Context, ownerID string, input models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (models.Task, error)
	RemoveTask(ctx context.Context, ownerID, taskID string) error
	OverdueCounts(ctx context.Context, today models.Date) (map[string]int, error)
}

// TaskService provides business logic for task management.
type TaskService struct {
	db       *sql.DB
	events   EventServiceProvider
	cache    StatsCache
	notifier Notifier
	now      func() time.Time
}

// TaskOption configures a TaskService.
type TaskOption func(*TaskService)

// WithStatsCache enables caching of per-user counters.
func WithStatsCache(cache StatsCache) TaskOption {
	return func(s *TaskService) {
		s.cache = cache
	}
}

// WithNotifier publishes task changes to the owner's live connections.
func WithNotifier(n Notifier) TaskOption {
	return func(s *TaskService) {
		s.notifier = n
	}
}

// NewTaskService creates a new TaskService. events may be nil.
func NewTaskService(db *sql.DB, events EventServiceProvider, opts ...TaskOption) *TaskService {
	s := &TaskService{db: db, events: events, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const taskColumns = "id, user_id, title, description, status, priority, due_date, created_at, updated_at"

var sortExpressions = map[string]string{
	"createdAt": "created_at",
	"dueDate":   "due_date",
	"title":     "fold(title)",
	"priority":  "CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END",
	"status":    "CASE status WHEN 'todo' THEN 0 WHEN 'in-progress' THEN 1 ELSE 2 END",
}

// buildListQuery turns raw list parameters into SQL. Unknown filter and sort
// values are ignored rather than rejected.
func buildListQuery(ownerID string, q models.TaskQuery) (string, []any) {
	where := []string{"user_id = ?"}
	args := []any{ownerID}

	if models.IsStatus(q.Status) {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if models.IsPriority(q.Priority) {
		where = append(where, "priority = ?")
		args = append(args, q.Priority)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		term := database.Fold(search)
		where = append(where, "(instr(fold(title), ?) > 0 OR instr(fold(description), ?) > 0)")
		args = append(args, term, term)
	}

	orderExpr, ok := sortExpressions[q.SortBy]
	if !ok {
		orderExpr = sortExpressions["createdAt"]
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(q.Order), "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM tasks WHERE %s ORDER BY %s %s, created_at %s, id %s",
		taskColumns, strings.Join(where, " AND "), orderExpr, direction, direction, direction)
	return query, args
}


// ListTasks returns the owner's tasks matching the query together with
// counters over the owner's whole collection.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, query models.TaskQuery) (models.TaskList, error) {
	sqlQuery, args := buildListQuery(ownerID, query)
	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return models.TaskList{}, fmt.Errorf("query tasks: %w", err)
	}
	tasks, err := scanTasks(rows)
	if err != nil {
		return models.TaskList{}, err
	}

	stats, err := s.Stats(ctx, ownerID)
	if err != nil {
		return models.TaskList{}, err
	}
	return models.TaskList{Tasks: tasks, Stats: stats}, nil
}

// Stats counts the owner's tasks by status, independent of any filter.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (models.TaskStats, error) {
	if s.cache != nil {
		if stats, ok := s.cache.Get(ctx, ownerID); ok {
			return stats, nil
		}
	}

	var stats models.TaskStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'todo' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'in-progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE user_id = ?`, ownerID).
		Scan(&stats.Total, &stats.Todo, &stats.InProgress, &stats.Done)
	if err != nil {
		return models.TaskStats{}, fmt.Errorf("count tasks: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, ownerID, stats)
	}
	return stats, nil
}

// GetTask retrieves a single task owned by ownerID.
func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", taskID, ownerID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return task, nil
}

// CreateTask validates input, applies defaults and stores a new task.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, input models.TaskInput) (models.Task, error) {
	input.Normalize()
	if err := validation.Struct(input); err != nil {
		return models.Task{}, err
	}

	now := s.now().UTC()
	task := models.Task{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if input.DueDate != "" {
		due, err := models.ParseDate(input.DueDate)
		if err != nil {
			return models.Task{}, validation.New("dueDate", err.Error())
		}
		task.DueDate = &due
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		task.ID, task.UserID, task.Title, task.Description, task.Status, task.Priority, dateArg(task.DueDate), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}

	s.changed(ctx, ownerID, models.EventTaskCreated, fmt.Sprintf("Task '%s' created.", task.Title), task.ID, task)
	return task, nil
}

// UpdateTask applies the fields present in patch and leaves the rest alone.
// All validation happens before the row is touched.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (models.Task, error) {
	if patch.Empty() {
		return s.GetTask(ctx, ownerID, taskID)
	}
	sets, args, err := patchAssignments(patch)
	if err != nil {
		return models.Task{}, err
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, s.now().UTC(), taskID, ownerID)

	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task %s: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, fmt.Errorf("update task %s: %w", taskID, err)
	}
	if n == 0 {
		return models.Task{}, ErrNotFound
	}

	task, err := s.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return models.Task{}, err
	}
	s.changed(ctx, ownerID, models.EventTaskUpdated, fmt.Sprintf("Task '%s' updated.", task.Title), task.ID, task)
	return task, nil
}

// patchAssignments validates a patch and returns the SET clauses for it.
func patchAssignments(p models.TaskPatch) ([]string, []any, error) {
	var (
		sets []string
		args []any
		errs []*validation.Error
	)

	if p.Title.Set {
		title := strings.TrimSpace(p.Title.Value)
		if p.Title.Null {
			title = ""
		}
		if verr := validation.Var("title", title, "required,max=100"); verr != nil {
			errs = append(errs, verr)
		}
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if p.Description.Set {
		description := strings.TrimSpace(p.Description.Value)
		if verr := validation.Var("description", description, "max=500"); verr != nil {
			errs = append(errs, verr)
		}
		sets = append(sets, "description = ?")
		args = append(args, description)
	}
	if p.Status.Set {
		if verr := validation.Var("status", p.Status.Value, "required,oneof=todo in-progress done"); verr != nil {
			errs = append(errs, verr)
		}
		sets = append(sets, "status = ?")
		args = append(args, p.Status.Value)
	}
	if p.Priority.Set {
		if verr := validation.Var("priority", p.Priority.Value, "required,oneof=low medium high"); verr != nil {
			errs = append(errs, verr)
		}
		sets = append(sets, "priority = ?")
		args = append(args, p.Priority.Value)
	}
	if p.DueDate.Set {
		raw := strings.TrimSpace(p.DueDate.Value)
		var due *models.Date
		if !p.DueDate.Null && raw != "" {
			parsed, err := models.ParseDate(raw)
			if err != nil {
				errs = append(errs, validation.New("dueDate", "Due date must be a date in YYYY-MM-DD format"))
			} else {
				due = &parsed
			}
		}
		sets = append(sets, "due_date = ?")
		args = append(args, dateArg(due))
	}

	if err := validation.Merge(errs...); err != nil {
		return nil, nil, err
	}
	return sets, args, nil
}

// RemoveTask deletes a task owned by ownerID.
func (s *TaskService) RemoveTask(ctx context.Context, ownerID, taskID string) error {
	var title string
	err := s.db.QueryRowContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ? RETURNING title", taskID, ownerID).Scan(&title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}

	s.changed(ctx, ownerID, models.EventTaskDeleted, fmt.Sprintf("Task '%s' deleted.", title), taskID, map[string]string{"id": taskID})
	return nil
}

// OverdueCounts returns, per user, how many unfinished tasks were due
// before today.
func (s *TaskService) OverdueCounts(ctx context.Context, today models.Date) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*) FROM tasks
		WHERE status != 'done' AND due_date IS NOT NULL AND due_date < ?
		GROUP BY user_id`, today.String())
	if err != nil {
		return nil, fmt.Errorf("query overdue tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("scan overdue count: %w", err)
		}
		counts[userID] = n
	}
	return counts, rows.Err()
}

// changed runs the side effects of a successful mutation.
func (s *TaskService) changed(ctx context.Context, ownerID, eventType, message, taskID string, payload any) {
	if s.cache != nil {
		s.cache.Evict(ctx, ownerID)
	}
	if s.events != nil {
		level := "info"
		if eventType == models.EventTaskDeleted {
			level = "warn"
		}
		if err := s.events.CreateEvent(ctx, ownerID, eventType, level, message, &taskID); err != nil {
			log.Warn().Err(err).Str("user_id", ownerID).Str("task_id", taskID).Msg("Failed to record task event")
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyUser(ownerID, eventType, payload)
	}
}

func dateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()
	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// scanTask is a helper to scan a task from a row or rows object.
func scanTask(scanner interface{ Scan(...any) error }) (models.Task, error) {
	var task models.Task
	var due sql.NullString
	err := scanner.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.Status, &task.Priority, &due, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, err
	}
	if due.Valid && due.String != "" {
		parsed, err := models.ParseDate(due.String)
		if err != nil {
			return models.Task{}, err
		}
		task.DueDate = &parsed
	}
	return task, nil
}
