package entity

import "time"

// MaxOrderQuantity caps the quantity selector on the book page.
const MaxOrderQuantity = 10

type Category struct {
	ID          ID        `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Book struct {
	ID              ID        `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Description     string    `json:"description,omitempty"`
	Price           Money     `json:"price"`
	StockQuantity   int       `json:"stock_quantity"`
	ISBN            string    `json:"isbn,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
	PageCount       *int      `json:"page_count,omitempty"`
	Language        string    `json:"language"`
	Slug            string    `json:"slug"`
	CategoryID      ID        `json:"category_id"`
	Category        *Category `json:"category,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (b Book) InStock() bool {
	return b.StockQuantity > 0
}

// MaxOrderQuantity returns how many copies can be picked at once: the stock,
// capped at MaxOrderQuantity.
func (b Book) MaxOrderQuantity() int {
	return min(max(b.StockQuantity, 0), MaxOrderQuantity)
}

type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
}

// BooksPage is one page of the book catalog.
type BooksPage struct {
	Books []Book         `json:"books"`
	Meta  PaginationMeta `json:"meta"`
}
