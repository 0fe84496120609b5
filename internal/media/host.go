package media

import (
	"context"
	"fmt"

	"github.com/yanizio/catalog-admin/internal/config"
)

// NewHost builds the Host selected by m.Provider.
func NewHost(ctx context.Context, m config.Media) (Host, error) {
	switch m.Provider {
	case "cloudinary":
		h, err := NewCloudinaryHost(m.Cloudinary.CloudName, m.Cloudinary.APIKey, m.Cloudinary.APISecret)
		if err != nil {
			return nil, err
		}
		return h, nil
	case "s3":
		h, err := NewS3Host(ctx, S3Options{
			Bucket:        m.S3.Bucket,
			Region:        m.S3.Region,
			Endpoint:      m.S3.Endpoint,
			AccessKey:     m.S3.AccessKey,
			SecretKey:     m.S3.SecretKey,
			PublicBaseURL: m.S3.PublicBaseURL,
			UsePathStyle:  m.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("media: unknown provider %q", m.Provider)
	}
}
