package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/boilagbe-backend/internal/model"
	"github.com/shinyyama/boilagbe-backend/internal/service"
)

type BookHandler struct {
	svc service.BookService
}

func NewBookHandler(svc service.BookService) *BookHandler {
	return &BookHandler{svc: svc}
}

type BookResponse struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Genre       string  `json:"genre"`
	Condition   string  `json:"condition"`
	EditionYear int     `json:"editionYear"`
	BasePrice   float64 `json:"basePrice"`
	FinalPrice  float64 `json:"finalPrice"`
	OwnerEmail  string  `json:"ownerEmail"`
	Phone       string  `json:"phone,omitempty"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type BookListResponse struct {
	Books []BookResponse `json:"books"`
	Total int64          `json:"total"`
}

type BookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Genre       string  `json:"genre"`
	Condition   string  `json:"condition"`
	EditionYear int     `json:"editionYear"`
	BasePrice   float64 `json:"basePrice"`
	OwnerEmail  string  `json:"ownerEmail"`
	Phone       string  `json:"phone"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

func (r BookRequest) input() service.BookInput {
	return service.BookInput{
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		Condition:   r.Condition,
		EditionYear: r.EditionYear,
		BasePrice:   r.BasePrice,
		OwnerEmail:  r.OwnerEmail,
		Phone:       r.Phone,
		Location:    r.Location,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
}

func (h *BookHandler) Create(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	book, err := h.svc.Create(c.Request().Context(), req.input())
	if err != nil {
		return serviceError(c, err, "book not found", "failed to create book")
	}
	return c.JSON(http.StatusCreated, toBookResponse(book))
}

func (h *BookHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	book, err := h.svc.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return serviceError(c, err, "book not found", "failed to update book")
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

func (h *BookHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	book, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err, "book not found", "failed to fetch book")
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

func (h *BookHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	books, total, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return serviceError(c, err, "books not found", "failed to fetch books")
	}
	return c.JSON(http.StatusOK, BookListResponse{Books: toBookResponses(books), Total: total})
}

func (h *BookHandler) Latest(c echo.Context) error {
	books, err := h.svc.Latest(c.Request().Context())
	if err != nil {
		return serviceError(c, err, "books not found", "failed to fetch books")
	}
	return c.JSON(http.StatusOK, toBookResponses(books))
}

// Quote prices a prospective listing without storing it.
func (h *BookHandler) Quote(c echo.Context) error {
	base, err := strconv.ParseFloat(c.QueryParam("basePrice"), 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid basePrice"))
	}
	year, err := strconv.Atoi(c.QueryParam("editionYear"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid editionYear"))
	}
	return c.JSON(http.StatusOK, h.svc.Quote(base, year))
}

func toBookResponses(books []model.BookListing) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for i := range books {
		out = append(out, toBookResponse(&books[i]))
	}
	return out
}

func toBookResponse(b *model.BookListing) BookResponse {
	return BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Genre:       b.Genre,
		Condition:   b.Condition,
		EditionYear: b.EditionYear,
		BasePrice:   b.BasePrice,
		FinalPrice:  b.FinalPrice,
		OwnerEmail:  b.OwnerEmail,
		Phone:       b.Phone,
		Location:    b.Location,
		Description: b.Description,
		ImageURL:    b.ImageURL,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339),
	}
}
