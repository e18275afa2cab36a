package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/libinstruct/lir-api/internal/models"
)

// ClassRepository persists class records and their attached flags.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, librarian_name, librarian2_name, instructor_name, instructor_email, instructor_phone,
class_start, class_end, class_location, class_type, audience, class_description, department_group,
course_number, attendance, owner_id, last_updated, last_updated_by`

const flagUpsertQuery = `INSERT INTO class_flags (class_id, name, value) VALUES ($1, $2, $3)
ON CONFLICT (class_id, name) DO UPDATE SET value = EXCLUDED.value`

// Create inserts a record together with its flags in a single transaction and
// returns the assigned id.
func (r *ClassRepository) Create(ctx context.Context, rec *models.ClassRecord, flags []models.ClassFlag) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create class tx: %w", err)
	}

	const query = `INSERT INTO classes (librarian_name, librarian2_name, instructor_name, instructor_email,
instructor_phone, class_start, class_end, class_location, class_type, audience, class_description,
department_group, course_number, attendance, owner_id, last_updated, last_updated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`

	rec.LastUpdated = time.Now().UTC()
	var id int64
	err = tx.QueryRowxContext(ctx, query,
		rec.LibrarianName, rec.Librarian2Name, rec.InstructorName, rec.InstructorEmail,
		rec.InstructorPhone, rec.ClassStart, rec.ClassEnd, rec.ClassLocation, rec.ClassType,
		rec.Audience, rec.ClassDescription, rec.DepartmentGroup, rec.CourseNumber,
		rec.Attendance, rec.OwnerID, rec.LastUpdated, rec.LastUpdatedBy,
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert class: %w", err)
	}

	for _, flag := range flags {
		if _, err := tx.ExecContext(ctx, flagUpsertQuery, id, flag.Name, flag.Value); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert class flag %s: %w", flag.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create class tx: %w", err)
	}
	rec.ID = id
	return id, nil
}

// Update rewrites a record and upserts the submitted flags in one
// transaction. The owner column is never touched. When replaceFlags is set,
// flags absent from the submission are removed instead of left in place.
func (r *ClassRepository) Update(ctx context.Context, rec *models.ClassRecord, flags []models.ClassFlag, replaceFlags bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update class tx: %w", err)
	}

	const query = `UPDATE classes SET librarian_name = $1, librarian2_name = $2, instructor_name = $3,
instructor_email = $4, instructor_phone = $5, class_start = $6, class_end = $7, class_location = $8,
class_type = $9, audience = $10, class_description = $11, department_group = $12, course_number = $13,
attendance = $14, last_updated = $15, last_updated_by = $16
WHERE id = $17`

	rec.LastUpdated = time.Now().UTC()
	result, err := tx.ExecContext(ctx, query,
		rec.LibrarianName, rec.Librarian2Name, rec.InstructorName, rec.InstructorEmail,
		rec.InstructorPhone, rec.ClassStart, rec.ClassEnd, rec.ClassLocation, rec.ClassType,
		rec.Audience, rec.ClassDescription, rec.DepartmentGroup, rec.CourseNumber,
		rec.Attendance, rec.LastUpdated, rec.LastUpdatedBy, rec.ID,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update class %d: %w", rec.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update class %d affected rows: %w", rec.ID, err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}

	if replaceFlags {
		if _, err := tx.ExecContext(ctx, `DELETE FROM class_flags WHERE class_id = $1`, rec.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear class flags %d: %w", rec.ID, err)
		}
	}
	for _, flag := range flags {
		if _, err := tx.ExecContext(ctx, flagUpsertQuery, rec.ID, flag.Name, flag.Value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert class flag %s: %w", flag.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update class tx: %w", err)
	}
	return nil
}

// Delete removes a record; attached flags cascade at the schema level.
// Returns whether a row was removed.
func (r *ClassRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete class %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete class %d affected rows: %w", id, err)
	}
	return affected > 0, nil
}

// GetByID fetches a single record.
func (r *ClassRepository) GetByID(ctx context.Context, id int64) (*models.ClassRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1`, classColumns)
	var rec models.ClassRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FlagsByClassID returns a record's flags ordered by name.
func (r *ClassRepository) FlagsByClassID(ctx context.Context, id int64) ([]models.ClassFlag, error) {
	var flags []models.ClassFlag
	const query = `SELECT class_id, name, value FROM class_flags WHERE class_id = $1 ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &flags, query, id); err != nil {
		return nil, fmt.Errorf("list class flags %d: %w", id, err)
	}
	return flags, nil
}

// ListBucket returns the records of one derived bucket relative to now.
// Orderings follow the listing pages: upcoming and incomplete run oldest
// first, previous and mine newest first.
func (r *ClassRepository) ListBucket(ctx context.Context, bucket models.Bucket, actorID string, now time.Time) ([]models.ClassRecord, error) {
	var (
		query string
		args  []interface{}
	)
	switch bucket {
	case models.BucketIncomplete:
		query = fmt.Sprintf(`SELECT %s FROM classes WHERE class_end < $1 AND attendance IS NULL ORDER BY class_start ASC, class_end ASC`, classColumns)
		args = []interface{}{now}
	case models.BucketPrevious:
		query = fmt.Sprintf(`SELECT %s FROM classes WHERE class_end < $1 ORDER BY class_start DESC, class_end ASC`, classColumns)
		args = []interface{}{now}
	case models.BucketMine:
		query = fmt.Sprintf(`SELECT %s FROM classes WHERE owner_id = $1 ORDER BY class_start DESC, class_end ASC`, classColumns)
		args = []interface{}{actorID}
	default:
		query = fmt.Sprintf(`SELECT %s FROM classes WHERE class_end >= $1 ORDER BY class_start ASC, class_end ASC`, classColumns)
		args = []interface{}{now}
	}

	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list %s classes: %w", bucket, err)
	}
	return records, nil
}

// CountBuckets computes all four bucket counts in one pass.
func (r *ClassRepository) CountBuckets(ctx context.Context, actorID string, now time.Time) (models.BucketCounts, error) {
	const query = `SELECT
COUNT(*) FILTER (WHERE class_end >= $1) AS upcoming,
COUNT(*) FILTER (WHERE class_end < $1 AND attendance IS NULL) AS incomplete,
COUNT(*) FILTER (WHERE class_end < $1) AS previous,
COUNT(*) FILTER (WHERE owner_id = $2) AS mine
FROM classes`

	var counts models.BucketCounts
	if err := r.db.QueryRowxContext(ctx, query, now, actorID).Scan(
		&counts.Upcoming, &counts.Incomplete, &counts.Previous, &counts.Mine,
	); err != nil {
		return models.BucketCounts{}, fmt.Errorf("count class buckets: %w", err)
	}
	return counts, nil
}

// DistinctLibrarianNames feeds the report filter form.
func (r *ClassRepository) DistinctLibrarianNames(ctx context.Context) ([]string, error) {
	var names []string
	const query = `SELECT DISTINCT librarian_name FROM classes ORDER BY librarian_name ASC`
	if err := r.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list librarian names: %w", err)
	}
	return names, nil
}

// ReportRows returns flattened report rows with owner and last-updater
// display names joined in, ordered by class_start then class_end regardless
// of filter.
func (r *ClassRepository) ReportRows(ctx context.Context, filter models.ReportFilter) ([]models.ReportRecord, error) {
	query := `SELECT p.id, p.librarian_name, p.librarian2_name, p.instructor_name, p.instructor_email,
p.instructor_phone, p.class_start, p.class_end, p.class_location, p.class_type, p.audience,
p.class_description, p.department_group, p.course_number, p.attendance, p.owner_id,
u.display_name AS owner, p.last_updated, p.last_updated_by, u2.display_name AS last_updated_by_name
FROM classes p
JOIN users u ON p.owner_id = u.id
JOIN users u2 ON p.last_updated_by = u2.id`

	var (
		conditions []string
		args       []interface{}
	)
	if filter.LibrarianName != "" {
		args = append(args, filter.LibrarianName)
		conditions = append(conditions, fmt.Sprintf("p.librarian_name = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("p.class_start >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		// Inclusive of the whole end date: strictly before the next day.
		args = append(args, filter.EndDate.AddDate(0, 0, 1))
		conditions = append(conditions, fmt.Sprintf("p.class_start < $%d", len(args)))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY p.class_start ASC, p.class_end ASC"

	var rows []models.ReportRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list report rows: %w", err)
	}
	return rows, nil
}

// FlagsForClassIDs loads flags for many records at once, grouped by record
// and ordered by flag name within each group.
func (r *ClassRepository) FlagsForClassIDs(ctx context.Context, ids []int64) (map[int64][]models.ClassFlag, error) {
	if len(ids) == 0 {
		return map[int64][]models.ClassFlag{}, nil
	}
	var flags []models.ClassFlag
	const query = `SELECT class_id, name, value FROM class_flags WHERE class_id = ANY($1) ORDER BY class_id ASC, name ASC`
	if err := r.db.SelectContext(ctx, &flags, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list flags for classes: %w", err)
	}
	grouped := make(map[int64][]models.ClassFlag, len(ids))
	for _, flag := range flags {
		grouped[flag.ClassID] = append(grouped[flag.ClassID], flag)
	}
	return grouped, nil
}

// IncompleteBefore returns records that ended before the cutoff and still
// have no attendance recorded. The reminder engine passes the start of the
// current day so the comparison works on date boundaries.
func (r *ClassRepository) IncompleteBefore(ctx context.Context, cutoff time.Time) ([]models.ClassRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE class_end < $1 AND attendance IS NULL ORDER BY class_start ASC, class_end ASC`, classColumns)
	var records []models.ClassRecord
	if err := r.db.SelectContext(ctx, &records, query, cutoff); err != nil {
		return nil, fmt.Errorf("list incomplete classes: %w", err)
	}
	return records, nil
}
