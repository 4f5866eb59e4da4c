package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// CloudinaryStore uploads post images to Cloudinary, which serves them itself.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

// SaveImage uploads data and returns the secure URL and public id.
func (s *CloudinaryStore) SaveImage(ctx context.Context, data []byte, contentType string) (string, string, error) {
	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     uuid.NewString(),
		ResourceType: "image",
	})
	if err != nil {
		return "", "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, res.PublicID, nil
}

// OpenImage is not supported; clients fetch Cloudinary URLs directly.
func (s *CloudinaryStore) OpenImage(ctx context.Context, key string) ([]byte, string, error) {
	return nil, "", fmt.Errorf("cloudinary open %s: %w", key, ErrNotFound)
}

func (s *CloudinaryStore) DeleteImage(ctx context.Context, key string) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return errors.New("cloudinary destroy: " + res.Error.Message)
	}
	return nil
}
