package clip

import (
	"time"
)

const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Monthly upload allowance per plan.
const (
	FreeMonthlyUploads = 10
	ProMonthlyUploads  = 50
)

func MonthlyUploadLimit(pro bool) int {
	if pro {
		return ProMonthlyUploads
	}
	return FreeMonthlyUploads
}

type Clip struct {
	ID            string     `json:"id"`
	ShopID        string     `json:"shop_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	VideoURL      string     `json:"video_url"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	ShopifyFileID string     `json:"shopify_file_id"`
	Duration      int        `json:"duration"`
	AspectRatio   string     `json:"aspect_ratio"`
	FileSize      int64      `json:"file_size"`
	Status        string     `json:"status"`
	IsPublished   bool       `json:"is_published"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	ViewsCount    int64      `json:"views_count"`
	LikesCount    int64      `json:"likes_count"`
	SharesCount   int64      `json:"shares_count"`
	CreatedAt     time.Time  `json:"created_at"`
}
