package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// The scheduler loop and command handlers write concurrently; wait out
	// short lock contention instead of surfacing SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertTask(ctx, tx, in); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, list_id, title, detail, completed, due_date, due_time,
		       reminder_enabled, reminder_offset_minutes,
		       repeat_type, repeat_days_of_week, repeat_days_of_month,
		       created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	actions, err := r.taskActions(ctx, id)
	if err != nil {
		return Task{}, err
	}
	task.Actions = actions
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	daysOfWeek, err := encodeDays(in.RepeatDaysOfWeek)
	if err != nil {
		return err
	}
	daysOfMonth, err := encodeDays(in.RepeatDaysOfMonth)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET list_id = ?, title = ?, detail = ?, completed = ?, due_date = ?, due_time = ?,
		    reminder_enabled = ?, reminder_offset_minutes = ?,
		    repeat_type = ?, repeat_days_of_week = ?, repeat_days_of_month = ?,
		    updated_at = ?
		WHERE id = ?`,
		nullStr(in.ListID), in.Title, nullStr(in.Detail), boolInt(in.Completed),
		nullStr(in.DueDate), nullStr(in.DueTime),
		boolInt(in.ReminderEnabled), in.ReminderOffsetMinutes,
		nullStr(in.RepeatType), daysOfWeek, daysOfMonth,
		mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	if err := replaceTaskActions(ctx, tx, in.ID, in.Actions); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `
		SELECT id, list_id, title, detail, completed, due_date, due_time,
		       reminder_enabled, reminder_offset_minutes,
		       repeat_type, repeat_days_of_week, repeat_days_of_month,
		       created_at, updated_at
		FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.ListID != "" {
		clauses = append(clauses, "list_id = ?")
		args = append(args, filter.ListID)
	}
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY completed ASC, due_date IS NULL ASC, due_date ASC, due_time IS NULL ASC, due_time ASC, rowid DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	grouped, err := r.allTaskActions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Actions = grouped[out[i].ID]
	}
	return out, nil
}

func (r *SQLiteRepository) SetTaskCompleted(ctx context.Context, id string, completed bool, successor *Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ?`,
		boolInt(completed), mustTime(time.Now()), id,
	)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	if successor != nil {
		if err := insertTask(ctx, tx, *successor); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateList(ctx context.Context, in List) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lists (id, name, icon) VALUES (?, ?, ?)`,
		in.ID, in.Name, in.Icon,
	)
	return err
}

func (r *SQLiteRepository) UpdateList(ctx context.Context, in List) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE lists SET name = ?, icon = ? WHERE id = ?`,
		in.Name, in.Icon, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteList(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListLists(ctx context.Context) ([]List, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon FROM lists ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]List, 0)
	for rows.Next() {
		var item List
		if err := rows.Scan(&item.ID, &item.Name, &item.Icon); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateScheme(ctx context.Context, in Scheme) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schemes (id, name, icon, template, kind, param_type) VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Icon, in.Template, in.Kind, in.ParamType,
	)
	return err
}

func (r *SQLiteRepository) UpdateScheme(ctx context.Context, in Scheme) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schemes SET name = ?, icon = ?, template = ?, kind = ?, param_type = ? WHERE id = ?`,
		in.Name, in.Icon, in.Template, in.Kind, in.ParamType, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteScheme(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schemes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListSchemes(ctx context.Context) ([]Scheme, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, template, kind, param_type FROM schemes ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Scheme, 0)
	for rows.Next() {
		var item Scheme
		if err := rows.Scan(&item.ID, &item.Name, &item.Icon, &item.Template, &item.Kind, &item.ParamType); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListReminderCandidates returns the scheduler's working set ordered by due
// date, due time, then creation order so equal remind instants resolve to the
// earliest-created task.
func (r *SQLiteRepository) ListReminderCandidates(ctx context.Context) ([]ReminderCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.detail, l.name, t.due_date, t.due_time, t.reminder_offset_minutes
		FROM tasks t
		LEFT JOIN lists l ON l.id = t.list_id
		WHERE t.completed = 0
		  AND t.due_date IS NOT NULL
		  AND t.due_time IS NOT NULL
		  AND t.reminder_enabled = 1
		ORDER BY t.due_date ASC, t.due_time ASC, t.created_at ASC, t.rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ReminderCandidate, 0)
	for rows.Next() {
		var item ReminderCandidate
		var detail, listName sql.NullString
		if err := rows.Scan(&item.TaskID, &item.Title, &detail, &listName, &item.DueDate, &item.DueTime, &item.OffsetMinutes); err != nil {
			return nil, err
		}
		item.Detail = detail.String
		item.ListName = listName.String
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) IsReminderFired(ctx context.Context, taskID string, remindAt int64) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM fired_reminders WHERE task_id = ? AND remind_at = ?)`,
		taskID, remindAt,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists != 0, nil
}

func (r *SQLiteRepository) MarkReminderFired(ctx context.Context, taskID string, remindAt, firedAt int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO fired_reminders (task_id, remind_at, fired_at) VALUES (?, ?, ?)`,
		taskID, remindAt, firedAt,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *SQLiteRepository) PurgeFiredReminders(ctx context.Context, threshold int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM fired_reminders WHERE fired_at < ?`, threshold)
	return err
}

func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	lists, err := r.ListLists(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	tasks, err := r.ListTasks(ctx, TaskListFilter{})
	if err != nil {
		return Snapshot{}, err
	}
	schemes, err := r.ListSchemes(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Lists: lists, Tasks: tasks, Schemes: schemes}, nil
}

// ImportSnapshot replaces all durable state in a single transaction. The fired
// ledger is cleared too: imported tasks carry fresh remind instants and stale
// claims would block them.
func (r *SQLiteRepository) ImportSnapshot(ctx context.Context, in Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"task_actions", "fired_reminders", "tasks", "schemes", "lists"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, list := range in.Lists {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lists (id, name, icon) VALUES (?, ?, ?)`,
			list.ID, list.Name, list.Icon,
		); err != nil {
			return fmt.Errorf("insert list %s: %w", list.ID, err)
		}
	}
	for _, scheme := range in.Schemes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schemes (id, name, icon, template, kind, param_type) VALUES (?, ?, ?, ?, ?, ?)`,
			scheme.ID, scheme.Name, scheme.Icon, scheme.Template, scheme.Kind, scheme.ParamType,
		); err != nil {
			return fmt.Errorf("insert scheme %s: %w", scheme.ID, err)
		}
	}
	for _, task := range in.Tasks {
		if err := insertTask(ctx, tx, task); err != nil {
			return fmt.Errorf("insert task %s: %w", task.ID, err)
		}
	}
	return tx.Commit()
}

func insertTask(ctx context.Context, tx *sql.Tx, in Task) error {
	daysOfWeek, err := encodeDays(in.RepeatDaysOfWeek)
	if err != nil {
		return err
	}
	daysOfMonth, err := encodeDays(in.RepeatDaysOfMonth)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, list_id, title, detail, completed, due_date, due_time,
		                   reminder_enabled, reminder_offset_minutes,
		                   repeat_type, repeat_days_of_week, repeat_days_of_month,
		                   created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, nullStr(in.ListID), in.Title, nullStr(in.Detail), boolInt(in.Completed),
		nullStr(in.DueDate), nullStr(in.DueTime),
		boolInt(in.ReminderEnabled), in.ReminderOffsetMinutes,
		nullStr(in.RepeatType), daysOfWeek, daysOfMonth,
		mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	); err != nil {
		return err
	}
	return replaceTaskActions(ctx, tx, in.ID, in.Actions)
}

func replaceTaskActions(ctx context.Context, tx *sql.Tx, taskID string, actions []TaskAction) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_actions WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for i, action := range actions {
		params, err := json.Marshal(action.Params)
		if err != nil {
			return fmt.Errorf("encode action params: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_actions (task_id, position, scheme_id, params) VALUES (?, ?, ?, ?)`,
			taskID, i, action.SchemeID, string(params),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) taskActions(ctx context.Context, taskID string) ([]TaskAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT scheme_id, params FROM task_actions WHERE task_id = ? ORDER BY position ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TaskAction, 0)
	for rows.Next() {
		var schemeID, paramsJSON string
		if err := rows.Scan(&schemeID, &paramsJSON); err != nil {
			return nil, err
		}
		out = append(out, TaskAction{SchemeID: schemeID, Params: decodeParams(paramsJSON)})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) allTaskActions(ctx context.Context) (map[string][]TaskAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT task_id, scheme_id, params FROM task_actions ORDER BY task_id ASC, position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := make(map[string][]TaskAction)
	for rows.Next() {
		var taskID, schemeID, paramsJSON string
		if err := rows.Scan(&taskID, &schemeID, &paramsJSON); err != nil {
			return nil, err
		}
		grouped[taskID] = append(grouped[taskID], TaskAction{SchemeID: schemeID, Params: decodeParams(paramsJSON)})
	}
	return grouped, rows.Err()
}

func decodeParams(raw string) []string {
	var params []string
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil
	}
	return params
}

func encodeDays(days []int) (any, error) {
	if len(days) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("encode repeat days: %w", err)
	}
	return string(raw), nil
}

func decodeDays(raw sql.NullString) []int {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var days []int
	if err := json.Unmarshal([]byte(raw.String), &days); err != nil {
		return nil
	}
	return days
}

func nullStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var listID, detail, dueDate, dueTime, repeatType sql.NullString
	var daysOfWeek, daysOfMonth sql.NullString
	var completed, reminderEnabled int
	var created, updated string
	if err := s.Scan(
		&out.ID, &listID, &out.Title, &detail, &completed, &dueDate, &dueTime,
		&reminderEnabled, &out.ReminderOffsetMinutes,
		&repeatType, &daysOfWeek, &daysOfMonth,
		&created, &updated,
	); err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Task{}, err
	}
	out.ListID = strPtr(listID)
	out.Detail = strPtr(detail)
	out.Completed = completed == 1
	out.DueDate = strPtr(dueDate)
	out.DueTime = strPtr(dueTime)
	out.ReminderEnabled = reminderEnabled == 1
	out.RepeatType = strPtr(repeatType)
	out.RepeatDaysOfWeek = decodeDays(daysOfWeek)
	out.RepeatDaysOfMonth = decodeDays(daysOfMonth)
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
