package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gorm.io/gorm/clause"
)

// Legacy reference columns store user ids as "78", "[78,81]", '["78","81"]' or "78,81".

func cleanMembers(field string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '[' || r == ']' || r == '"' || r == '\'':
			return -1
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, field)
}

// FieldContains reports whether id appears in a legacy reference field,
// either as the whole trimmed value or as one comma separated token.
func FieldContains(field string, id int) bool {
	target := strconv.Itoa(id)
	if strings.TrimSpace(field) == target {
		return true
	}
	for _, tok := range strings.Split(cleanMembers(field), ",") {
		if tok == target {
			return true
		}
	}
	return false
}

// ParseMemberIDs returns every id FieldContains would match, sorted and unique.
func ParseMemberIDs(field string) []int {
	seen := map[int]bool{}
	ids := []int{}
	for _, tok := range strings.Split(cleanMembers(field), ",") {
		n, err := strconv.Atoi(tok)
		if err != nil || n <= 0 || strconv.Itoa(n) != tok || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
	}
	sort.Ints(ids)
	return ids
}

var legacyMemberColumns = map[string]bool{
	"tfs_user.project_manager_id":     true,
	"tfs_user.asst_manager_id":        true,
	"tfs_user.qa_id":                  true,
	"project.project_manager_id":      true,
	"project.asst_project_manager_id": true,
	"project.project_qa_id":           true,
	"project.project_team_id":         true,
	"task.task_team_id":               true,
}

// MatchClause is the MySQL form of FieldContains for a legacy column.
// Only columns of the legacy schema are accepted.
func MatchClause(column string, id int) (clause.Expr, error) {
	if !legacyMemberColumns[column] {
		return clause.Expr{}, validationf("column %q is not a legacy reference column", column)
	}
	v := strconv.Itoa(id)
	cleaned := fmt.Sprintf(
		"REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(%s, '[', ''), ']', ''), CHAR(34), ''), CHAR(39), ''), ' ', '')",
		column,
	)
	return clause.Expr{
		SQL:  fmt.Sprintf("(%s = ? OR FIND_IN_SET(?, %s) > 0)", column, cleaned),
		Vars: []interface{}{v, v},
	}, nil
}
