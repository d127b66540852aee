package model

// Page is one page of a paginated listing.
type Page[T any] struct {
	Data        []T   `json:"data"`
	TotalPage   int64 `json:"totalPage"`
	TotalItems  int64 `json:"totalItems"`
	CurrentPage int64 `json:"currentPage"`
	PageSize    int64 `json:"pageSize"`
}

// NewPage builds a Page, deriving the page count from the total.
func NewPage[T any](data []T, totalItems, currentPage, pageSize int64) Page[T] {
	if data == nil {
		data = []T{}
	}
	var totalPage int64
	if pageSize > 0 {
		totalPage = (totalItems + pageSize - 1) / pageSize
	}
	return Page[T]{
		Data:        data,
		TotalPage:   totalPage,
		TotalItems:  totalItems,
		CurrentPage: currentPage,
		PageSize:    pageSize,
	}
}
