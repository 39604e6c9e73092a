package dto

import (
	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/service"
)

// CreateBookRequest used for POST /api/books (manual entry)
type CreateBookRequest struct {
	Title         string `json:"title" binding:"required,min=2"`
	Author        string `json:"author" binding:"required,min=2"`
	TotalPages    int    `json:"total_pages" binding:"required,min=1,max=10000"`
	Genre         string `json:"genre,omitempty"`
	Description   string `json:"description,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	CoverImage    string `json:"cover_image,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	ISBN          string `json:"isbn,omitempty"`
}

func (r CreateBookRequest) ToCandidate() service.BookCandidate {
	return service.BookCandidate{
		Title:         r.Title,
		Author:        r.Author,
		TotalPages:    r.TotalPages,
		Genre:         r.Genre,
		Description:   r.Description,
		Publisher:     r.Publisher,
		PublishedDate: r.PublishedDate,
		CoverImage:    r.CoverImage,
		Thumbnail:     r.Thumbnail,
		ISBN:          r.ISBN,
	}
}

// UpdateBookRequest used for PUT /api/books/:id (partial updates allowed)
type UpdateBookRequest struct {
	Title         *string `json:"title,omitempty"`
	Author        *string `json:"author,omitempty"`
	TotalPages    *int    `json:"total_pages,omitempty"`
	Genre         *string `json:"genre,omitempty"`
	Description   *string `json:"description,omitempty"`
	Publisher     *string `json:"publisher,omitempty"`
	PublishedDate *string `json:"published_date,omitempty"`
	CoverImage    *string `json:"cover_image,omitempty"`
	Thumbnail     *string `json:"thumbnail,omitempty"`
	ISBN          *string `json:"isbn,omitempty"`
}

func (r UpdateBookRequest) ToPatch() service.BookPatch {
	return service.BookPatch{
		Title:         r.Title,
		Author:        r.Author,
		TotalPages:    r.TotalPages,
		Genre:         r.Genre,
		Description:   r.Description,
		Publisher:     r.Publisher,
		PublishedDate: r.PublishedDate,
		CoverImage:    r.CoverImage,
		Thumbnail:     r.Thumbnail,
		ISBN:          r.ISBN,
	}
}

// GoogleBookPayload is the candidate the frontend sends back after a
// search-google call.
type GoogleBookPayload struct {
	GoogleID      string `json:"google_id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	TotalPages    int    `json:"total_pages"`
	Genre         string `json:"genre,omitempty"`
	ISBN          string `json:"isbn,omitempty"`
	Description   string `json:"description,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	PreviewLink   string `json:"preview_link,omitempty"`
}

// AddFromGoogleRequest used for POST /api/books/add-from-google
type AddFromGoogleRequest struct {
	GoogleBookData *GoogleBookPayload `json:"google_book_data" binding:"required"`
}

func (r AddFromGoogleRequest) ToCandidate() service.BookCandidate {
	d := r.GoogleBookData
	return service.BookCandidate{
		Title:         d.Title,
		Author:        d.Author,
		TotalPages:    d.TotalPages,
		Genre:         d.Genre,
		Description:   d.Description,
		Publisher:     d.Publisher,
		PublishedDate: d.PublishedDate,
		Thumbnail:     d.Thumbnail,
		PreviewLink:   d.PreviewLink,
		ISBN:          d.ISBN,
		GoogleID:      d.GoogleID,
	}
}

// BookListResponse: the books the caller has progress on
type BookListResponse struct {
	Books []models.Book `json:"books"`
	Total int           `json:"total"`
}
