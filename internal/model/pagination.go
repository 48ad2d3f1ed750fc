package model

const (
	// DefaultPage はpage未指定時のページ番号。
	DefaultPage = 1
	// DefaultPageSize はpageSize未指定時の1ページあたりの件数。
	DefaultPageSize = 10
	// MaxPageSize はpageSizeの上限。
	MaxPageSize = 100
)

// Pagination はオフセット方式のページ指定。Pageは1始まり。
type Pagination struct {
	Page     int
	PageSize int
}

// Limit はSQLのLIMIT値を返す。
func (p Pagination) Limit() int {
	return p.PageSize
}

// Offset はSQLのOFFSET値を返す。
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Valid はページ指定が許容範囲内かどうかを返す。
func (p Pagination) Valid() bool {
	return p.Page >= 1 && p.PageSize >= 1 && p.PageSize <= MaxPageSize
}
