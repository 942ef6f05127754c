package model

import (
	"time"

	"gorm.io/datatypes"
)

type Project struct {
	ID          int                         `gorm:"primaryKey;column:project_id" json:"projectId"`
	Name        string                      `gorm:"column:project_name;type:varchar(255);not null" json:"projectName"`
	Code        string                      `gorm:"column:project_code;type:varchar(64)" json:"projectCode"`
	Description string                      `gorm:"column:project_description;type:text" json:"projectDescription"`
	Files       datatypes.JSONSlice[string] `gorm:"column:files;type:json" json:"files"`
	IsActive    bool                        `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt   time.Time                   `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at" json:"updatedAt"`

	Members []ProjectMember `gorm:"foreignKey:ProjectID;references:ID" json:"members,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// MemberIDs returns the user ids holding relation on the project.
func (p *Project) MemberIDs(relation string) []int {
	ids := []int{}
	for _, m := range p.Members {
		if m.Relation == relation {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// ProjectMember holds one of manager, assistant_manager, qa or team.
type ProjectMember struct {
	ProjectID int    `gorm:"primaryKey;column:project_id;autoIncrement:false" json:"projectId"`
	UserID    int    `gorm:"primaryKey;column:user_id;autoIncrement:false;index" json:"userId"`
	Relation  string `gorm:"primaryKey;column:relation;type:varchar(32)" json:"relation"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

type Task struct {
	ID          int       `gorm:"primaryKey;column:task_id" json:"taskId"`
	ProjectID   int       `gorm:"column:project_id;not null;index" json:"projectId"`
	Name        string    `gorm:"column:task_name;type:varchar(255);not null" json:"taskName"`
	Description string    `gorm:"column:task_description;type:text" json:"taskDescription"`
	Target      float64   `gorm:"column:task_target;type:decimal(10,2);not null;default:0" json:"taskTarget"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Members []TaskMember `gorm:"foreignKey:TaskID;references:ID" json:"members,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) MemberIDs() []int {
	ids := make([]int, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

type TaskMember struct {
	TaskID int `gorm:"primaryKey;column:task_id;autoIncrement:false" json:"taskId"`
	UserID int `gorm:"primaryKey;column:user_id;autoIncrement:false;index" json:"userId"`
}

func (TaskMember) TableName() string {
	return "task_members"
}
