// internal/importer/service.go
package importer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/common/metrics"

	"github.com/google/uuid"
)

// Report summarizes one import run.
type Report struct {
	TotalRows       int      `json:"totalRows"`
	Upserted        int      `json:"upserted"`
	CreatedStudents int      `json:"createdStudents"`
	QueuedForReview int      `json:"queuedForReview"`
	InvalidRows     []string `json:"invalidRows,omitempty"`
}

// Service runs partner-school enrollment imports: parse, validate each row
// against the schema, match, then upsert / create / park for manual review.
// Fuzzy matches are never auto-merged.
type Service struct {
	db      *sql.DB
	parser  *Parser
	matcher *Matcher
	logger  logger.Logger
}

func NewService(db *sql.DB, parser *Parser, matcher *Matcher, log logger.Logger) *Service {
	return &Service{
		db:      db,
		parser:  parser,
		matcher: matcher,
		logger:  log.WithFields(map[string]interface{}{"component": "import-service"}),
	}
}

// Import processes a whole enrollment file. Invalid rows are reported and
// skipped; they do not abort the run.
func (s *Service) Import(ctx context.Context, data []byte, format string) (*Report, error) {
	rows, err := s.parser.Parse(data, format)
	if err != nil {
		return nil, err
	}

	report := &Report{TotalRows: len(rows)}

	for i := range rows {
		row := &rows[i]

		if err := ValidateRow(row); err != nil {
			report.InvalidRows = append(report.InvalidRows, err.Error())
			metrics.ImportRowsTotal.WithLabelValues("invalid").Inc()
			continue
		}

		match, err := s.matcher.Match(ctx, row)
		if err != nil {
			return nil, err
		}

		switch match.Decision {
		case DecisionExact:
			if err := s.upsertEnrollment(ctx, row, match.StudentID); err != nil {
				return nil, err
			}
			report.Upserted++
			metrics.ImportRowsTotal.WithLabelValues("upserted").Inc()

		case DecisionReview:
			if err := s.queueForReview(ctx, row, match); err != nil {
				return nil, err
			}
			report.QueuedForReview++
			metrics.ImportRowsTotal.WithLabelValues("queued_for_review").Inc()

		case DecisionNew:
			studentID, err := s.createStudent(ctx, row)
			if err != nil {
				return nil, err
			}
			if err := s.upsertEnrollment(ctx, row, studentID); err != nil {
				return nil, err
			}
			report.CreatedStudents++
			metrics.ImportRowsTotal.WithLabelValues("created").Inc()
		}
	}

	s.logger.Info("enrollment import finished", map[string]interface{}{
		"totalRows":       report.TotalRows,
		"upserted":        report.Upserted,
		"createdStudents": report.CreatedStudents,
		"queuedForReview": report.QueuedForReview,
		"invalidRows":     len(report.InvalidRows),
	})

	return report, nil
}

func (s *Service) upsertEnrollment(ctx context.Context, row *EnrollmentRow, studentID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO partner_school_enrollments (id, school_id, student_no, school_year, term, first_name, last_name, course, year_level, student_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (school_id, student_no, school_year, term)
		DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		              course = EXCLUDED.course, year_level = EXCLUDED.year_level,
		              updated_at = EXCLUDED.updated_at`,
		uuid.New().String(), row.SchoolID, row.StudentNo, row.SchoolYear, row.Term,
		row.FirstName, row.LastName, row.Course, row.YearLevel, studentID, now)
	if err != nil {
		return fmt.Errorf("%w: upsert enrollment: %v", ErrQueryFailed, err)
	}
	return nil
}

func (s *Service) createStudent(ctx context.Context, row *EnrollmentRow) (string, error) {
	studentID := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, school_id, student_no, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		studentID, row.SchoolID, row.StudentNo, row.FirstName, row.LastName, now)
	if err != nil {
		return "", fmt.Errorf("%w: insert student: %v", ErrQueryFailed, err)
	}
	return studentID, nil
}

func (s *Service) queueForReview(ctx context.Context, row *EnrollmentRow, match *Match) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_review_queue (id, candidate_student_id, school_id, student_no, school_year, term, first_name, last_name, similarity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New().String(), match.StudentID, row.SchoolID, row.StudentNo,
		row.SchoolYear, row.Term, row.FirstName, row.LastName, match.Similarity, now)
	if err != nil {
		return fmt.Errorf("%w: queue for review: %v", ErrQueryFailed, err)
	}

	s.logger.Warn("fuzzy match queued for manual review", map[string]interface{}{
		"schoolId":           row.SchoolID,
		"studentNo":          row.StudentNo,
		"candidateStudentId": match.StudentID,
		"similarity":         match.Similarity,
	})
	return nil
}
