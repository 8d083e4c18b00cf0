package models

// Subject 题目主题表
type Subject struct {
	BaseModel
	Name   string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Status string `gorm:"size:20;default:'active'" json:"status"` // active, disabled

	// 关联
	Words []Word `gorm:"foreignKey:SubjectID" json:"words,omitempty"`
}

// TableName 指定表名
func (Subject) TableName() string {
	return "subjects"
}

// Word 主题下的词语表
type Word struct {
	BaseModel
	SubjectID uint   `gorm:"index;not null" json:"subject_id"`
	Text      string `gorm:"size:100;not null" json:"text"`
}

// TableName 指定表名
func (Word) TableName() string {
	return "words"
}
