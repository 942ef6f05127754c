package core

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tfshrms.cloud/hrms/hrms/model"
)

// LegacyColumns maps a relation to the legacy "table.column" holding it.
type LegacyColumns map[string]string

// LegacyTable is one legacy table with its id column and reference columns.
type LegacyTable struct {
	Table   string        `yaml:"table"`
	ID      string        `yaml:"id"`
	Columns LegacyColumns `yaml:"columns"`
}

// LegacyMapping describes where the legacy schema keeps its multi-valued references.
type LegacyMapping struct {
	Users    LegacyTable `yaml:"users"`
	Projects LegacyTable `yaml:"projects"`
	Tasks    LegacyTable `yaml:"tasks"`
}

func DefaultLegacyMapping() LegacyMapping {
	return LegacyMapping{
		Users: LegacyTable{Table: "tfs_user", ID: "user_id", Columns: LegacyColumns{
			model.RelationManager:          "tfs_user.project_manager_id",
			model.RelationAssistantManager: "tfs_user.asst_manager_id",
			model.RelationQA:               "tfs_user.qa_id",
		}},
		Projects: LegacyTable{Table: "project", ID: "project_id", Columns: LegacyColumns{
			model.RelationManager:          "project.project_manager_id",
			model.RelationAssistantManager: "project.asst_project_manager_id",
			model.RelationQA:               "project.project_qa_id",
			model.RelationTeam:             "project.project_team_id",
		}},
		Tasks: LegacyTable{Table: "task", ID: "task_id", Columns: LegacyColumns{
			model.RelationTeam: "task.task_team_id",
		}},
	}
}

var identifierChars = "abcdefghijklmnopqrstuvwxyz0123456789_"

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if !strings.ContainsRune(identifierChars, r) {
			return false
		}
	}
	return true
}

// LoadLegacyMapping reads a YAML mapping over the defaults. Every reference
// column must be a known legacy column of its table.
func LoadLegacyMapping(r io.Reader) (LegacyMapping, error) {
	m := DefaultLegacyMapping()
	if r != nil {
		if err := yaml.NewDecoder(r).Decode(&m); err != nil && err != io.EOF {
			return m, validationf("invalid legacy mapping: %v", err)
		}
	}
	return m, m.Validate()
}

func (m LegacyMapping) Validate() error {
	for _, t := range []LegacyTable{m.Users, m.Projects, m.Tasks} {
		if !validIdentifier(t.Table) || !validIdentifier(t.ID) {
			return validationf("invalid legacy table %q or id column %q", t.Table, t.ID)
		}
		for relation, column := range t.Columns {
			if !legacyMemberColumns[column] || !strings.HasPrefix(column, t.Table+".") {
				return validationf("column %q for %s is not a legacy reference column of %s", column, relation, t.Table)
			}
		}
	}
	return nil
}

// LegacyReport counts the join rows written and the references that could not be linked.
type LegacyReport struct {
	Supervisors    int      `json:"supervisors"`
	ProjectMembers int      `json:"projectMembers"`
	TaskMembers    int      `json:"taskMembers"`
	Unresolved     []string `json:"unresolved"`
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// legacyRefs reads id -> relation -> member ids from one legacy table.
func legacyRefs(ctx context.Context, legacy *gorm.DB, t LegacyTable) (map[int]map[string][]int, error) {
	columns := []string{t.Table + "." + t.ID + " AS id"}
	relations := make([]string, 0, len(t.Columns))
	for relation := range t.Columns {
		relations = append(relations, relation)
	}
	slices.Sort(relations)
	for _, relation := range relations {
		columns = append(columns, t.Columns[relation]+" AS "+relation)
	}

	var rows []map[string]interface{}
	if err := legacy.WithContext(ctx).Table(t.Table).Select(strings.Join(columns, ", ")).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read legacy %s: %w", t.Table, err)
	}

	out := map[int]map[string][]int{}
	for _, row := range rows {
		id, err := strconv.Atoi(cellString(row["id"]))
		if err != nil {
			continue
		}
		refs := map[string][]int{}
		for _, relation := range relations {
			refs[relation] = ParseMemberIDs(cellString(row[relation]))
		}
		out[id] = refs
	}
	return out, nil
}

func existingIDs(tx *gorm.DB, table, column string) (map[int]bool, error) {
	var ids []int
	if err := tx.Table(table).Pluck(column, &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ImportLegacy turns the legacy text references into join rows. Rows already
// present are kept; references to ids missing from the target are reported.
func ImportLegacy(ctx context.Context, legacy, target *gorm.DB, m LegacyMapping) (*LegacyReport, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	userRefs, err := legacyRefs(ctx, legacy, m.Users)
	if err != nil {
		return nil, err
	}
	projectRefs, err := legacyRefs(ctx, legacy, m.Projects)
	if err != nil {
		return nil, err
	}
	taskRefs, err := legacyRefs(ctx, legacy, m.Tasks)
	if err != nil {
		return nil, err
	}

	report := &LegacyReport{Unresolved: []string{}}
	err = target.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := existingIDs(tx, "users", "user_id")
		if err != nil {
			return err
		}
		projects, err := existingIDs(tx, "projects", "project_id")
		if err != nil {
			return err
		}
		tasks, err := existingIDs(tx, "tasks", "task_id")
		if err != nil {
			return err
		}
		unresolved := func(kind string, owner int, relation string, member int) {
			report.Unresolved = append(report.Unresolved, fmt.Sprintf("%s %d %s %d", kind, owner, relation, member))
		}
		insert := func(rows interface{}) error {
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error
		}

		var supervisors []model.UserSupervisor
		for _, userID := range sortedKeys(userRefs) {
			for relation, ids := range userRefs[userID] {
				for _, id := range ids {
					if !users[userID] || !users[id] {
						unresolved("user", userID, relation, id)
						continue
					}
					supervisors = append(supervisors, model.UserSupervisor{UserID: userID, SupervisorID: id, Relation: relation})
				}
			}
		}
		if len(supervisors) > 0 {
			if err := insert(&supervisors); err != nil {
				return err
			}
		}
		report.Supervisors = len(supervisors)

		var members []model.ProjectMember
		for _, projectID := range sortedKeys(projectRefs) {
			for relation, ids := range projectRefs[projectID] {
				for _, id := range ids {
					if !projects[projectID] || !users[id] {
						unresolved("project", projectID, relation, id)
						continue
					}
					members = append(members, model.ProjectMember{ProjectID: projectID, UserID: id, Relation: relation})
				}
			}
		}
		if len(members) > 0 {
			if err := insert(&members); err != nil {
				return err
			}
		}
		report.ProjectMembers = len(members)

		var taskMembers []model.TaskMember
		for _, taskID := range sortedKeys(taskRefs) {
			for relation, ids := range taskRefs[taskID] {
				for _, id := range ids {
					if !tasks[taskID] || !users[id] {
						unresolved("task", taskID, relation, id)
						continue
					}
					taskMembers = append(taskMembers, model.TaskMember{TaskID: taskID, UserID: id})
				}
			}
		}
		if len(taskMembers) > 0 {
			if err := insert(&taskMembers); err != nil {
				return err
			}
		}
		report.TaskMembers = len(taskMembers)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(report.Unresolved)
	return report, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// LegacyMismatch is a supervisor whose subordinates differ between the legacy
// columns and the join table.
type LegacyMismatch struct {
	SupervisorID int    `json:"supervisorId"`
	Relation     string `json:"relation"`
	LegacyOnly   []int  `json:"legacyOnly"`
	JoinOnly     []int  `json:"joinOnly"`
}

// VerifyLegacy matches every supervisor against the legacy user columns in SQL and
// compares the result with user_supervisors. Legacy must be the MySQL database.
func VerifyLegacy(ctx context.Context, legacy, target *gorm.DB, m LegacyMapping) ([]LegacyMismatch, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var supervisorIDs []int
	if err := target.WithContext(ctx).Table("users").Order("user_id").Pluck("user_id", &supervisorIDs).Error; err != nil {
		return nil, err
	}

	relations := make([]string, 0, len(m.Users.Columns))
	for relation := range m.Users.Columns {
		relations = append(relations, relation)
	}
	slices.Sort(relations)

	mismatches := []LegacyMismatch{}
	for _, supervisorID := range supervisorIDs {
		for _, relation := range relations {
			match, err := MatchClause(m.Users.Columns[relation], supervisorID)
			if err != nil {
				return nil, err
			}
			var legacyIDs []int
			err = legacy.WithContext(ctx).
				Table(m.Users.Table).
				Where(match).
				Pluck(m.Users.Table+"."+m.Users.ID, &legacyIDs).Error
			if err != nil {
				return nil, err
			}

			var joinIDs []int
			err = target.WithContext(ctx).
				Model(&model.UserSupervisor{}).
				Where("supervisor_id = ? AND relation = ?", supervisorID, relation).
				Pluck("user_id", &joinIDs).Error
			if err != nil {
				return nil, err
			}

			legacyOnly, joinOnly := diffIDs(legacyIDs, joinIDs)
			if len(legacyOnly) > 0 || len(joinOnly) > 0 {
				mismatches = append(mismatches, LegacyMismatch{
					SupervisorID: supervisorID,
					Relation:     relation,
					LegacyOnly:   legacyOnly,
					JoinOnly:     joinOnly,
				})
			}
		}
	}
	return mismatches, nil
}

func diffIDs(a, b []int) (onlyA, onlyB []int) {
	onlyA, onlyB = []int{}, []int{}
	for _, id := range uniqueIDs(a) {
		if !slices.Contains(b, id) {
			onlyA = append(onlyA, id)
		}
	}
	for _, id := range uniqueIDs(b) {
		if !slices.Contains(a, id) {
			onlyB = append(onlyB, id)
		}
	}
	slices.Sort(onlyA)
	slices.Sort(onlyB)
	return onlyA, onlyB
}
