package persistence

import "time"

// QueueModel represents a batch queue in the database.
type QueueModel struct {
	Name      string    `gorm:"column:name;primaryKey;size:255"`
	Type      string    `gorm:"column:type;size:32"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (QueueModel) TableName() string {
	return "queues"
}

// JobModel represents a job record in the database. Sequence preserves the
// order jobs entered the server.
type JobModel struct {
	ID         string              `gorm:"column:id;primaryKey;size:255"`
	Sequence   int64               `gorm:"column:sequence;index"`
	ArrayID    string              `gorm:"column:array_id;index;size:255"`
	Summary    bool                `gorm:"column:summary;default:false"`
	Attributes []JobAttributeModel `gorm:"foreignKey:JobID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time           `gorm:"column:created_at"`
	UpdatedAt  time.Time           `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (JobModel) TableName() string {
	return "jobs"
}

// JobAttributeModel is one encoded job attribute. Resource list attributes
// store one row per resource.
type JobAttributeModel struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	JobID    string `gorm:"column:job_id;index;size:255"`
	Position int    `gorm:"column:position"`
	Name     string `gorm:"column:name;size:255"`
	Resource string `gorm:"column:resource;size:255"`
	Value    string `gorm:"column:value;type:text"`
}

// TableName returns the table name.
func (JobAttributeModel) TableName() string {
	return "job_attributes"
}
