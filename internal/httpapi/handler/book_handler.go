package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"booktracker/internal/httpapi/dto"
	"booktracker/internal/httpapi/middleware"
	"booktracker/internal/httpapi/models"
	"booktracker/internal/httpapi/service"
	"booktracker/internal/search"

	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	catalog  service.CatalogService
	progress service.ProgressService
	books    *search.GoogleBooksClient
}

func NewBookHandler(catalog service.CatalogService, progress service.ProgressService, books *search.GoogleBooksClient) *BookHandler {
	return &BookHandler{catalog: catalog, progress: progress, books: books}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/search-google", h.SearchGoogle)
	rg.POST("/add-from-google", h.AddFromGoogle)
}

// List returns only the books the caller has progress on.
func (h *BookHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.progress.List(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	books := make([]models.Book, 0, len(rows))
	for _, row := range rows {
		if row.Book != nil {
			books = append(books, *row.Book)
		}
	}
	c.JSON(http.StatusOK, dto.BookListResponse{Books: books, Total: len(books)})
}

// Create handles manual entry: resolve against the catalog, then attach the
// caller's progress row.
func (h *BookHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.catalog.Resolve(ctx, req.ToCandidate())
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add book"})
		return
	}

	if _, err := h.progress.Attach(ctx, userID, book.ID); err != nil {
		if errors.Is(err, service.ErrAlreadyInLibrary) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "book already in your library", "book": book})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add book"})
		return
	}

	c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) Update(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.catalog.UpdateBook(ctx, bookID, req.ToPatch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update book"})
		}
		return
	}

	c.JSON(http.StatusOK, book)
}

// Delete removes the caller's progress row and reclaims the book when no
// other user still references it.
func (h *BookHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.progress.DetachBook(ctx, userID, bookID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "you have no progress on this book"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete book"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "book removed from your library",
		"deleted_book_id": bookID,
	})
}

// SearchGoogle proxies a query to the Google Books API.
func (h *BookHandler) SearchGoogle(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}
	maxResults, _ := strconv.Atoi(c.DefaultQuery("maxResults", "10"))
	startIndex, _ := strconv.Atoi(c.DefaultQuery("startIndex", "0"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	result, err := h.books.Search(ctx, query, maxResults, startIndex)
	if err != nil {
		if errors.Is(err, search.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google books unreachable"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "google books search failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AddFromGoogle resolves a provider candidate against the catalog and
// attaches the caller's progress row.
func (h *BookHandler) AddFromGoogle(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req dto.AddFromGoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book data is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.catalog.Resolve(ctx, req.ToCandidate())
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add book"})
		return
	}

	if _, err := h.progress.Attach(ctx, userID, book.ID); err != nil {
		if errors.Is(err, service.ErrAlreadyInLibrary) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "book already in your library", "book": book})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add book"})
		return
	}

	c.JSON(http.StatusCreated, book)
}
