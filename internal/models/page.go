package models

// PageRequest carries zero-based pagination parameters from query strings.
// Page is bounded so Offset cannot overflow.
type PageRequest struct {
	Page int `form:"page" json:"page" validate:"min=0,max=100000"`
	Size int `form:"size" json:"size" validate:"min=0,max=100"`
}

// Normalize applies the default size and clamps out-of-range values.
func (p PageRequest) Normalize(defaultSize, maxSize int) PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is the envelope for paginated responses.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
	Empty         bool  `json:"empty"`
}

// NewPage builds the envelope for one page of a result of total elements.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
		First:         req.Page == 0,
		Last:          req.Page+1 >= pages,
		Empty:         len(content) == 0,
	}
}

// MapPage converts the content of p with fn, keeping the envelope.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Content))
	for _, v := range p.Content {
		out = append(out, fn(v))
	}
	return Page[U]{
		Content:       out,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
		Empty:         p.Empty,
	}
}
