// internal/importer/schema.go
package importer

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// enrollmentRowSchema is the contract a parsed row must meet before it is
// allowed near the matcher.
var enrollmentRowSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"schoolId":   map[string]interface{}{"type": "integer", "minimum": 1},
		"studentNo":  map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 64},
		"schoolYear": map[string]interface{}{"type": "string", "pattern": `^\d{4}-\d{4}$`},
		"term":       map[string]interface{}{"type": "string", "minLength": 1},
		"firstName":  map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 128},
		"lastName":   map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 128},
		"course":     map[string]interface{}{"type": "string"},
		"yearLevel":  map[string]interface{}{"type": "string"},
	},
	"required": []interface{}{"schoolId", "studentNo", "schoolYear", "term", "firstName", "lastName"},
}

// ValidateRow checks the row against the enrollment schema and returns a
// joined description of every violation.
func ValidateRow(row *EnrollmentRow) error {
	doc := map[string]interface{}{
		"schoolId":   row.SchoolID,
		"studentNo":  row.StudentNo,
		"schoolYear": row.SchoolYear,
		"term":       row.Term,
		"firstName":  row.FirstName,
		"lastName":   row.LastName,
		"course":     row.Course,
		"yearLevel":  row.YearLevel,
	}

	schemaLoader := gojsonschema.NewGoLoader(enrollmentRowSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("row %d invalid: %s", row.RowNum, strings.Join(msgs, "; "))
	}

	return nil
}
