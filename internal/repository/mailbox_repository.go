package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-seat-assignment/internal/model"
)

// MailboxRepo stores the two public mailboxes: inquiries, which get an
// answer, and stories, which are only read.
type MailboxRepo struct {
	db *sql.DB
}

func NewMailboxRepo(db *sql.DB) *MailboxRepo { return &MailboxRepo{db: db} }

const inquiryColumns = `id, user_name, phone, content, answer, is_answered, created_at, answered_at`

func scanInquiry(s rowScanner) (model.Inquiry, error) {
	var (
		q          model.Inquiry
		answer     sql.NullString
		answeredAt sql.NullTime
	)
	if err := s.Scan(&q.ID, &q.UserName, &q.Phone, &q.Content, &answer, &q.IsAnswered, &q.CreatedAt, &answeredAt); err != nil {
		return q, err
	}
	q.Answer = strPtr(answer)
	if answeredAt.Valid {
		t := answeredAt.Time
		q.AnsweredAt = &t
	}
	return q, nil
}

func (r *MailboxRepo) queryInquiries(ctx context.Context, q string, args ...any) ([]model.Inquiry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Inquiry, 0)
	for rows.Next() {
		in, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CreateInquiry stores a new, unanswered inquiry.
func (r *MailboxRepo) CreateInquiry(ctx context.Context, name, phone, content string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inquiries (user_name, phone, content) VALUES (?, ?, ?)`,
		name, phone, content)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// InquiriesByPhone returns the inquiries sent from phone, newest first.
func (r *MailboxRepo) InquiriesByPhone(ctx context.Context, phone string) ([]model.Inquiry, error) {
	return r.queryInquiries(ctx,
		`SELECT `+inquiryColumns+` FROM inquiries WHERE phone = ? ORDER BY created_at DESC, id DESC`, phone)
}

// ListInquiries returns every inquiry, or only answered / unanswered ones
// when answered is set.
func (r *MailboxRepo) ListInquiries(ctx context.Context, answered *bool) ([]model.Inquiry, error) {
	q := `SELECT ` + inquiryColumns + ` FROM inquiries`
	var args []any
	if answered != nil {
		q += ` WHERE is_answered = ?`
		args = append(args, *answered)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	return r.queryInquiries(ctx, q, args...)
}

// AnswerInquiry sets (or replaces) the answer of inquiry id.
func (r *MailboxRepo) AnswerInquiry(ctx context.Context, id uint64, answer string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inquiries SET answer = ?, is_answered = 1, answered_at = ? WHERE id = ?`,
		answer, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	return r.recheck(ctx, `SELECT 1 FROM inquiries WHERE id = ?`, id)
}

// DeleteInquiry removes inquiry id for good.
func (r *MailboxRepo) DeleteInquiry(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inquiries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "inquiry", id)
}

// CreateStory stores a new, unread story.  An empty title is stored as NULL.
func (r *MailboxRepo) CreateStory(ctx context.Context, name, phone, title, content string) (uint64, error) {
	var t any
	if title != "" {
		t = title
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO stories (name, phone, title, content) VALUES (?, ?, ?, ?)`,
		name, phone, t, content)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ListStories pages through live stories, newest first, and reports how
// many match in total.
func (r *MailboxRepo) ListStories(ctx context.Context, includeRead bool, limit, offset int) ([]model.Story, int, error) {
	where := ` WHERE deleted_at IS NULL`
	if !includeRead {
		where += ` AND is_read = 0`
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stories`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone, title, content, is_read, created_at FROM stories`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Story, 0, limit)
	for rows.Next() {
		var (
			s     model.Story
			title sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &title, &s.Content, &s.IsRead, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		s.Title = strPtr(title)
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// MarkStoryRead flags a live story as read.  Marking it twice is not an
// error.
func (r *MailboxRepo) MarkStoryRead(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stories SET is_read = 1 WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	return r.recheck(ctx, `SELECT 1 FROM stories WHERE id = ? AND deleted_at IS NULL`, id)
}

// DeleteStory soft-deletes a live story.
func (r *MailboxRepo) DeleteStory(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stories SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return mustAffect(res, "story", id)
}

func (r *MailboxRepo) StoryStats(ctx context.Context) (model.StoryStats, error) {
	var st model.StoryStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_read = 0), 0) FROM stories WHERE deleted_at IS NULL`).
		Scan(&st.Total, &st.Unread)
	return st, err
}

// recheck runs after an UPDATE that matched nothing; MySQL also reports 0
// rows when the values did not change.
func (r *MailboxRepo) recheck(ctx context.Context, q string, id uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// mustAffect turns a zero-row write into ErrNotFound.  Only use it where the
// statement always changes a matching row.
func mustAffect(res sql.Result, what string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
