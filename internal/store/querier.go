package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// CatalogRow is a course catalog record as stored in PostgreSQL. Lessons is
// the JSONB-encoded lesson list.
type CatalogRow struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []byte
	Embedding  pgvector.Vector
}

// ChunkRow is a chunk record ready for insertion.
type ChunkRow struct {
	ID          string
	CourseTitle string
	Lesson      *int
	ChunkIndex  int
	Content     string
	Embedding   pgvector.Vector
}

// ChunkHitRow is a chunk search result with its cosine similarity.
type ChunkHitRow struct {
	Content     string
	CourseTitle string
	Lesson      *int
	ChunkIndex  int
	Similarity  float64
}

// Querier defines the database operations the Store needs. The interface is
// defined here, by the consumer, so tests can substitute an in-memory fake.
type Querier interface {
	UpsertCourse(ctx context.Context, row CatalogRow) error
	InsertChunk(ctx context.Context, row ChunkRow) error
	SearchChunks(ctx context.Context, embedding pgvector.Vector, courseTitle string, lesson *int, limit int) ([]ChunkHitRow, error)
	NearestCourse(ctx context.Context, embedding pgvector.Vector) (string, float64, error)
	GetCourse(ctx context.Context, title string) (CatalogRow, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
	CountCourses(ctx context.Context) (int64, error)
	DeleteCourse(ctx context.Context, title string) error
	TruncateAll(ctx context.Context) error
}

// PgxQuerier implements Querier against a pgx connection pool. The pool must
// have pgvector types registered (see app.Setup).
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier creates a PgxQuerier backed by pool.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

func (q *PgxQuerier) UpsertCourse(ctx context.Context, row CatalogRow) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO course_catalog (title, link, instructor, lessons, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO UPDATE SET
			link = EXCLUDED.link,
			instructor = EXCLUDED.instructor,
			lessons = EXCLUDED.lessons,
			embedding = EXCLUDED.embedding`,
		row.Title, row.Link, row.Instructor, row.Lessons, row.Embedding)
	return err
}

func (q *PgxQuerier) InsertChunk(ctx context.Context, row ChunkRow) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO course_chunks (id, course_title, lesson_number, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		row.ID, row.CourseTitle, row.Lesson, row.ChunkIndex, row.Content, row.Embedding)
	return err
}

func (q *PgxQuerier) SearchChunks(ctx context.Context, embedding pgvector.Vector, courseTitle string, lesson *int, limit int) ([]ChunkHitRow, error) {
	var (
		conds []string
		args  []any
	)
	args = append(args, embedding)
	if courseTitle != "" {
		args = append(args, courseTitle)
		conds = append(conds, fmt.Sprintf("course_title = $%d", len(args)))
	}
	if lesson != nil {
		args = append(args, *lesson)
		conds = append(conds, fmt.Sprintf("lesson_number = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT content, course_title, lesson_number, chunk_index,
		       1 - (embedding <=> $1) AS similarity
		FROM course_chunks
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d`, where, len(args))

	rows, err := q.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []ChunkHitRow
	for rows.Next() {
		var h ChunkHitRow
		if err := rows.Scan(&h.Content, &h.CourseTitle, &h.Lesson, &h.ChunkIndex, &h.Similarity); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (q *PgxQuerier) NearestCourse(ctx context.Context, embedding pgvector.Vector) (string, float64, error) {
	var (
		title      string
		similarity float64
	)
	err := q.pool.QueryRow(ctx, `
		SELECT title, 1 - (embedding <=> $1) AS similarity
		FROM course_catalog
		ORDER BY embedding <=> $1
		LIMIT 1`, embedding).Scan(&title, &similarity)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrCourseNotFound
	}
	return title, similarity, err
}

func (q *PgxQuerier) GetCourse(ctx context.Context, title string) (CatalogRow, error) {
	var row CatalogRow
	err := q.pool.QueryRow(ctx, `
		SELECT title, link, instructor, lessons
		FROM course_catalog
		WHERE title = $1`, title).Scan(&row.Title, &row.Link, &row.Instructor, &row.Lessons)
	if errors.Is(err, pgx.ErrNoRows) {
		return CatalogRow{}, ErrCourseNotFound
	}
	return row, err
}

func (q *PgxQuerier) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, `SELECT title FROM course_catalog ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func (q *PgxQuerier) CountCourses(ctx context.Context) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM course_catalog`).Scan(&count)
	return count, err
}

func (q *PgxQuerier) DeleteCourse(ctx context.Context, title string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM course_catalog WHERE title = $1`, title)
	return err
}

func (q *PgxQuerier) TruncateAll(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, `TRUNCATE course_catalog, course_chunks`)
	return err
}
