package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/boilagbe-backend/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

type BookRepository interface {
	Create(ctx context.Context, book *model.BookListing) error
	Update(ctx context.Context, book *model.BookListing) error
	FindByID(ctx context.Context, id uint64) (*model.BookListing, error)
	List(ctx context.Context, limit, offset int) ([]model.BookListing, int64, error)
	Latest(ctx context.Context, limit int) ([]model.BookListing, error)
	CountAll(ctx context.Context) (int64, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *model.BookListing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *bookRepository) Update(ctx context.Context, book *model.BookListing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Save(book).Error
}

func (r *bookRepository) FindByID(ctx context.Context, id uint64) (*model.BookListing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var book model.BookListing
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(ctx context.Context, limit, offset int) ([]model.BookListing, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var (
		books []model.BookListing
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.BookListing{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *bookRepository) Latest(ctx context.Context, limit int) ([]model.BookListing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var books []model.BookListing
	if err := r.db.WithContext(ctx).
		Order("updated_at desc").
		Order("id desc").
		Limit(limit).
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) CountAll(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.BookListing{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
