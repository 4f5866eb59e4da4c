// Package social serves posts, likes, comments, follows and post images.
package social

import (
	"context"

	"github.com/ayush/nutrilog/internal/metrics"
	"github.com/ayush/nutrilog/internal/models"
)

// Store defines the persistence the social endpoints need.
type Store interface {
	CreatePost(ctx context.Context, p *models.Post) (*models.Post, error)
	GetPost(ctx context.Context, viewerID, id int64) (*models.Post, error)
	ListPosts(ctx context.Context, viewerID, authorID int64, limit, offset int) ([]models.Post, error)
	Feed(ctx context.Context, viewerID int64, limit, offset int) ([]models.Post, error)
	DeletePost(ctx context.Context, id int64) error

	LikePost(ctx context.Context, userID, postID int64) (int, error)
	UnlikePost(ctx context.Context, userID, postID int64) (int, error)

	AddComment(ctx context.Context, c *models.Comment) (*models.Comment, error)
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, postID int64, limit, offset int) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id int64) error

	Follow(ctx context.Context, followerID, followeeID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	Followers(ctx context.Context, userID int64, limit, offset int) ([]models.UserSummary, error)
	Following(ctx context.Context, userID int64, limit, offset int) ([]models.UserSummary, error)
	PublicUser(ctx context.Context, viewerID, userID int64) (*models.PublicUser, error)
	SearchUsers(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error)

	GetMeal(ctx context.Context, userID, id int64) (*models.Meal, error)
}

// ImageStore keeps uploaded post images. MinIO and Cloudinary implement it.
type ImageStore interface {
	SaveImage(ctx context.Context, data []byte, contentType string) (url, key string, err error)
	OpenImage(ctx context.Context, key string) ([]byte, string, error)
	DeleteImage(ctx context.Context, key string) error
}

// Handler holds social HTTP handlers. images and metrics may be nil; without
// images, uploads return 503.
type Handler struct {
	store     Store
	images    ImageStore
	maxUpload int64
	metrics   *metrics.Metrics
}

func NewHandler(s Store, images ImageStore, maxUploadMB int64, m *metrics.Metrics) *Handler {
	return &Handler{store: s, images: images, maxUpload: maxUploadMB << 20, metrics: m}
}
