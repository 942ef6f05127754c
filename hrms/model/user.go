package model

import "time"

type Role struct {
	ID       int    `gorm:"primaryKey;column:role_id" json:"roleId"`
	Name     string `gorm:"column:role_name;type:varchar(100);not null" json:"roleName"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (Role) TableName() string {
	return "roles"
}

type Team struct {
	ID       int    `gorm:"primaryKey;column:team_id" json:"teamId"`
	Name     string `gorm:"column:team_name;type:varchar(100);not null" json:"teamName"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (Team) TableName() string {
	return "teams"
}

type Designation struct {
	ID       int    `gorm:"primaryKey;column:designation_id" json:"designationId"`
	Name     string `gorm:"column:designation;type:varchar(100);not null" json:"designation"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (Designation) TableName() string {
	return "designations"
}

type User struct {
	ID              int       `gorm:"primaryKey;column:user_id" json:"userId"`
	Name            string    `gorm:"column:user_name;type:varchar(255);not null" json:"name"`
	Email           string    `gorm:"column:user_email;type:varchar(255);not null;index" json:"email"`
	Number          string    `gorm:"column:user_number;type:varchar(50)" json:"number"`
	Address         string    `gorm:"column:user_address;type:varchar(500)" json:"address"`
	RoleID          int       `gorm:"column:role_id;not null" json:"roleId"`
	TeamID          *int      `gorm:"column:team_id" json:"teamId"`
	DesignationID   *int      `gorm:"column:designation_id" json:"designationId"`
	Tenure          float64   `gorm:"column:user_tenure;type:decimal(6,2);not null;default:1" json:"tenure"`
	PasswordSealed  string    `gorm:"column:password_sealed;type:varchar(512)" json:"-"`
	PasswordVersion int       `gorm:"column:password_version;not null;default:0" json:"-"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	IsDeleted       bool      `gorm:"column:is_deleted;not null;default:false" json:"isDeleted"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Role        *Role            `gorm:"foreignKey:RoleID;references:ID" json:"role,omitempty"`
	Team        *Team            `gorm:"foreignKey:TeamID;references:ID" json:"team,omitempty"`
	Designation *Designation     `gorm:"foreignKey:DesignationID;references:ID" json:"designation,omitempty"`
	Supervisors []UserSupervisor `gorm:"foreignKey:UserID;references:ID" json:"supervisors,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Supervisor relations a user can hold over another user.
const (
	RelationManager          = "manager"
	RelationAssistantManager = "assistant_manager"
	RelationQA               = "qa"
	RelationTeam             = "team"
)

// UserSupervisor links a user to one of their manager, assistant manager or QA.
type UserSupervisor struct {
	UserID       int    `gorm:"primaryKey;column:user_id;autoIncrement:false" json:"userId"`
	SupervisorID int    `gorm:"primaryKey;column:supervisor_id;autoIncrement:false;index" json:"supervisorId"`
	Relation     string `gorm:"primaryKey;column:relation;type:varchar(32)" json:"relation"`
}

func (UserSupervisor) TableName() string {
	return "user_supervisors"
}
