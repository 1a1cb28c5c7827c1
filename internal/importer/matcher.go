// internal/importer/matcher.go
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"scholarship-workflow/internal/common/logger"
)

var ErrQueryFailed = errors.New("QUERY_EXECUTION_FAILED")

// MatchDecision is the matcher's verdict on one incoming enrollment row.
type MatchDecision string

const (
	// DecisionExact: (school, student no, year, term) matched an existing
	// enrollment row; upsert it.
	DecisionExact MatchDecision = "exact"
	// DecisionReview: a same-school student's name is similar enough that a
	// human must resolve it before anything is merged.
	DecisionReview MatchDecision = "review"
	// DecisionNew: no plausible match; create a new student.
	DecisionNew MatchDecision = "new"
)

// Match is the outcome of matching one row.
type Match struct {
	Decision   MatchDecision
	StudentID  string
	Similarity float64
}

// Matcher decides whether an incoming enrollment row refers to an existing
// student. Exact identity wins; otherwise normalized name similarity against
// same-school students, with the threshold separating "park for manual
// review" from "new student".
type Matcher struct {
	db        *sql.DB
	threshold float64
	logger    logger.Logger
}

func NewMatcher(db *sql.DB, threshold float64, log logger.Logger) *Matcher {
	return &Matcher{
		db:        db,
		threshold: threshold,
		logger:    log.WithFields(map[string]interface{}{"component": "import-matcher"}),
	}
}

func (m *Matcher) Match(ctx context.Context, row *EnrollmentRow) (*Match, error) {
	var studentID string
	err := m.db.QueryRowContext(ctx, `
		SELECT student_id FROM partner_school_enrollments
		WHERE school_id = $1 AND student_no = $2 AND school_year = $3 AND term = $4`,
		row.SchoolID, row.StudentNo, row.SchoolYear, row.Term).Scan(&studentID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: exact match lookup: %v", ErrQueryFailed, err)
	}
	if err == nil {
		return &Match{Decision: DecisionExact, StudentID: studentID, Similarity: 1.0}, nil
	}

	best, bestScore, err := m.bestFuzzyCandidate(ctx, row)
	if err != nil {
		return nil, err
	}

	if best != "" && bestScore >= m.threshold {
		return &Match{Decision: DecisionReview, StudentID: best, Similarity: bestScore}, nil
	}

	return &Match{Decision: DecisionNew, Similarity: bestScore}, nil
}

func (m *Matcher) bestFuzzyCandidate(ctx context.Context, row *EnrollmentRow) (string, float64, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, first_name, last_name FROM students WHERE school_id = $1`,
		row.SchoolID)
	if err != nil {
		return "", 0, fmt.Errorf("%w: load candidates: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var bestID string
	var bestScore float64
	for rows.Next() {
		var id, first, last string
		if err := rows.Scan(&id, &first, &last); err != nil {
			return "", 0, fmt.Errorf("%w: scan candidate: %v", ErrQueryFailed, err)
		}

		score := NameSimilarity(row.FirstName, row.LastName, first, last)
		if score > bestScore {
			bestScore = score
			bestID = id
		}
	}
	if err := rows.Err(); err != nil {
		return "", 0, fmt.Errorf("%w: iterate candidates: %v", ErrQueryFailed, err)
	}

	return bestID, bestScore, nil
}

// NameSimilarity averages the normalized edit similarity of the first and
// last name fields.
func NameSimilarity(firstA, lastA, firstB, lastB string) float64 {
	return (Similarity(firstA, firstB) + Similarity(lastA, lastB)) / 2
}

// Similarity returns 1 - distance/max(len a, len b) on case-folded, trimmed
// input. Adjacent transpositions count as one edit, so a swapped letter pair
// ("Maria" vs "Marai") scores 0.8 rather than 0.6.
func Similarity(a, b string) float64 {
	a = normalizeName(a)
	b = normalizeName(b)

	if a == b {
		return 1.0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(editDistance(a, b))/float64(maxLen)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// editDistance is the optimal string alignment distance: insertions,
// deletions, substitutions, and adjacent transpositions each cost 1.
func editDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			d[i][j] = minInt(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)

			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = minInt(d[i][j], d[i-2][j-2]+1) // transposition
			}
		}
	}

	return d[len(ra)][len(rb)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
