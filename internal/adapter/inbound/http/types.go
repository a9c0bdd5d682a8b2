package http

import (
	"time"

	"github.com/openheads/headcatalog/internal/domain/acquisition"
	"github.com/openheads/headcatalog/internal/domain/browse"
	"github.com/openheads/headcatalog/internal/domain/catalog"
)

type errorResponse struct {
	Error string `json:"error"`
}

type titleResponse struct {
	Key  string            `json:"key"`
	Args map[string]string `json:"args,omitempty"`
}

// entryResponse is one grid cell. Category headers have an empty Item.
type entryResponse struct {
	Category       string  `json:"category"`
	DisplayNameKey string  `json:"display_name_key,omitempty"`
	Item           string  `json:"item"`
	Texture        string  `json:"texture,omitempty"`
	Price          float64 `json:"price"`
	IsFavorite     bool    `json:"is_favorite"`
}

type renderResponse struct {
	Open      bool            `json:"open"`
	Mode      string          `json:"mode"`
	Category  string          `json:"category,omitempty"`
	Query     string          `json:"query,omitempty"`
	Title     titleResponse   `json:"title"`
	PageIndex int             `json:"page_index"`
	PageCount int             `json:"page_count"`
	PageSize  int             `json:"page_size"`
	Entries   []entryResponse `json:"entries"`
	Warning   string          `json:"warning,omitempty"`
}

func newRenderResponse(m browse.RenderModel) renderResponse {
	resp := renderResponse{
		Open:      m.Open,
		Mode:      m.Mode.Kind().String(),
		Category:  m.Mode.Category(),
		Query:     m.Mode.Query(),
		Title:     titleResponse{Key: m.Title.Key, Args: m.Title.Args},
		PageIndex: m.PageIndex,
		PageCount: m.PageCount,
		PageSize:  m.PageSize,
		Entries:   make([]entryResponse, len(m.Entries)),
		Warning:   m.Warning,
	}
	for i, e := range m.Entries {
		entry := entryResponse{
			Category:       e.Category.Name,
			DisplayNameKey: e.Category.DisplayNameKey,
			Item:           e.Item.Name,
			Texture:        e.Item.Texture,
			Price:          e.Category.Price,
			IsFavorite:     e.IsFavorite,
		}
		if e.IsHeader() {
			entry.Texture = e.Category.Texture
		}
		resp.Entries[i] = entry
	}
	return resp
}

type toggleResponse struct {
	Result string `json:"result"`
}

type acquireResponse struct {
	Result    string  `json:"result"`
	Price     float64 `json:"price"`
	ReceiptID string  `json:"receipt_id,omitempty"`
}

type grantResponse struct {
	acquisition.ItemDescriptor
	GrantedAt time.Time `json:"granted_at"`
}

type inventoryResponse struct {
	User   string          `json:"user"`
	Grants []grantResponse `json:"grants"`
}

type balanceResponse struct {
	User    string  `json:"user"`
	Balance float64 `json:"balance"`
}

type categoryResponse struct {
	Name              string  `json:"name"`
	DisplayNameKey    string  `json:"display_name_key,omitempty"`
	DescriptionKey    string  `json:"description_key,omitempty"`
	Price             float64 `json:"price"`
	RequirePermission bool    `json:"require_permission"`
	Permission        string  `json:"permission,omitempty"`
	Texture           string  `json:"texture,omitempty"`
	ItemCount         int     `json:"item_count"`
}

func newCategoryResponse(c *catalog.Category) categoryResponse {
	return categoryResponse{
		Name:              c.Name,
		DisplayNameKey:    c.DisplayNameKey,
		DescriptionKey:    c.DescriptionKey,
		Price:             c.Price,
		RequirePermission: c.RequirePermission,
		Permission:        c.Permission,
		Texture:           c.Texture,
		ItemCount:         c.ItemCount(),
	}
}

type categoriesResponse struct {
	Categories []categoryResponse `json:"categories"`
}
