package models

type Category struct {
	Base
	Name        string     `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description string     `gorm:"type:text" json:"description"`
	Image       Image      `gorm:"embedded;embeddedPrefix:image_" json:"image"`
	ParentID    *string    `gorm:"size:36;index" json:"parentId"`
	Children    []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
