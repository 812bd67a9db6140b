package models

import (
	"strings"
	"time"
)

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

func ParsePostStatus(s string) (PostStatus, bool) {
	switch p := PostStatus(strings.ToLower(strings.TrimSpace(s))); p {
	case PostStatusDraft, PostStatusPublished:
		return p, true
	}
	return "", false
}

type BlogPost struct {
	Base
	Title       string     `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Excerpt     string     `gorm:"type:text" json:"excerpt"`
	Content     string     `gorm:"type:text" json:"content"`
	CoverImage  Image      `gorm:"embedded;embeddedPrefix:cover_" json:"coverImage"`
	Tags        StringList `json:"tags"`
	Status      PostStatus `gorm:"size:20;not null;index" json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
	AuthorID    *string    `gorm:"size:36;index" json:"authorId"`
	Author      *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Views       int        `gorm:"not null" json:"views"`
}
