package models

import "time"

// Book is a shared catalog entry. Rows are deduplicated on ISBN and on the
// Google Books volume id; a nil identity key means the book was entered
// manually and carries no dedup key.
type Book struct {
	ID            int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Title         string  `json:"title" gorm:"not null"`
	Author        string  `json:"author" gorm:"not null"`
	TotalPages    int     `json:"total_pages" gorm:"not null"`
	Genre         string  `json:"genre,omitempty"`
	Description   string  `json:"description,omitempty" gorm:"type:text"`
	Publisher     string  `json:"publisher,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
	CoverImage    string  `json:"cover_image,omitempty"`
	Thumbnail     string  `json:"thumbnail,omitempty"`
	PreviewLink   string  `json:"preview_link,omitempty"`
	ISBN          *string `json:"isbn,omitempty" gorm:"uniqueIndex;size:32"`
	// GoogleID is the Google Books volume id for externally sourced entries.
	GoogleID  *string   `json:"google_id,omitempty" gorm:"uniqueIndex;size:64"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Book) TableName() string {
	return "books"
}
