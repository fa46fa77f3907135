package model

import "time"

type BookListing struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:200;not null"`
	Author      string    `gorm:"size:200"`
	Genre       string    `gorm:"size:64"`
	Condition   string    `gorm:"size:64"`
	EditionYear int       `gorm:"column:edition_year;not null"`
	BasePrice   float64   `gorm:"column:base_price;not null"`
	FinalPrice  float64   `gorm:"column:final_price;not null"`
	OwnerEmail  string    `gorm:"column:owner_email;size:255;index"`
	Phone       string    `gorm:"size:32"`
	Location    string    `gorm:"size:255"`
	Description string    `gorm:"type:text"`
	ImageURL    *string   `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (BookListing) TableName() string {
	return "book_listings"
}
