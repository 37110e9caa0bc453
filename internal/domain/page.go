package domain

// SortDir es la dirección de orden.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// PageRequest agrupa las opciones de paginación.
type PageRequest struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	SortKey  string  `json:"sort_key"`
	SortDir  SortDir `json:"sort_dir"`
}

// Skip es el offset de la página (Page empieza en 1).
func (p PageRequest) Skip() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// ListFilter restringe un listado. Los campos vacíos no filtran.
type ListFilter struct {
	OwnerID       string `json:"owner_id,omitempty"`
	VideoID       string `json:"video_id,omitempty"`
	Query         string `json:"query,omitempty"`
	PublishedOnly bool   `json:"published_only,omitempty"`
}

// Sort es el orden efectivo que recibe el Entity Store; siempre desempata por id.
type Sort struct {
	Key string
	Dir SortDir
}

// Page es una página de resultados.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// TotalPages calcula ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
