package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shinyyama/boilagbe-backend/internal/model"
	"github.com/shinyyama/boilagbe-backend/internal/pricing"
	"github.com/shinyyama/boilagbe-backend/internal/repository"
	"gorm.io/gorm"
)

const latestBooks = 6

type BookInput struct {
	Title       string
	Author      string
	Genre       string
	Condition   string
	EditionYear int
	BasePrice   float64
	OwnerEmail  string
	Phone       string
	Location    string
	Description string
	ImageURL    *string
}

// Quote is the price breakdown shown while a seller fills in a listing.
type Quote struct {
	BasePrice   float64 `json:"basePrice"`
	EditionYear int     `json:"editionYear"`
	Age         int     `json:"age"`
	FinalPrice  float64 `json:"finalPrice"`
}

type BookService interface {
	Create(ctx context.Context, in BookInput) (*model.BookListing, error)
	Update(ctx context.Context, id uint64, in BookInput) (*model.BookListing, error)
	Get(ctx context.Context, id uint64) (*model.BookListing, error)
	List(ctx context.Context, limit, offset int) ([]model.BookListing, int64, error)
	Latest(ctx context.Context) ([]model.BookListing, error)
	Quote(basePrice float64, editionYear int) Quote
}

type bookService struct {
	repo repository.BookRepository
	now  func() time.Time
}

func NewBookService(repo repository.BookRepository) BookService {
	return &bookService{repo: repo, now: time.Now}
}

func (s *bookService) validate(in *BookInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || len(in.Title) > 200 {
		return invalid("title", "must be 1-200 characters")
	}
	if in.EditionYear <= 0 {
		return invalid("editionYear", "is required")
	}
	if in.BasePrice < 0 {
		return invalid("basePrice", "must be at least 0")
	}
	if in.ImageURL != nil && strings.HasPrefix(strings.TrimSpace(*in.ImageURL), "data:") {
		return invalid("imageUrl", "must be a URL, not data URI")
	}
	return nil
}

// finalPrice is the stored asking price; storage always keeps two decimals.
func (s *bookService) finalPrice(base float64, editionYear int) float64 {
	return pricing.Round2(pricing.FinalPrice(base, editionYear, s.now().Year()))
}

func (s *bookService) Create(ctx context.Context, in BookInput) (*model.BookListing, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	book := &model.BookListing{}
	s.apply(book, in)
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) Update(ctx context.Context, id uint64, in BookInput) (*model.BookListing, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.apply(book, in)
	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) apply(book *model.BookListing, in BookInput) {
	book.Title = in.Title
	book.Author = in.Author
	book.Genre = in.Genre
	book.Condition = in.Condition
	book.EditionYear = in.EditionYear
	book.BasePrice = in.BasePrice
	book.FinalPrice = s.finalPrice(in.BasePrice, in.EditionYear)
	book.OwnerEmail = in.OwnerEmail
	book.Phone = in.Phone
	book.Location = in.Location
	book.Description = in.Description
	book.ImageURL = in.ImageURL
}

func (s *bookService) Get(ctx context.Context, id uint64) (*model.BookListing, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *bookService) List(ctx context.Context, limit, offset int) ([]model.BookListing, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *bookService) Latest(ctx context.Context) ([]model.BookListing, error) {
	return s.repo.Latest(ctx, latestBooks)
}

func (s *bookService) Quote(basePrice float64, editionYear int) Quote {
	year := s.now().Year()
	return Quote{
		BasePrice:   basePrice,
		EditionYear: editionYear,
		Age:         pricing.Age(editionYear, year),
		FinalPrice:  pricing.FinalPrice(basePrice, editionYear, year),
	}
}
