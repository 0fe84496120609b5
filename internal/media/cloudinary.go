package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// imageAPI is the slice of the Cloudinary upload API we use.
type imageAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryHost stores thumbnails as Cloudinary image assets.
type CloudinaryHost struct {
	api imageAPI
}

// NewCloudinaryHost builds a host from account credentials.
func NewCloudinaryHost(cloudName, apiKey, apiSecret string) (*CloudinaryHost, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryHost{api: &cld.Upload}, nil
}

func (h *CloudinaryHost) Name() string { return "cloudinary" }

// Upload sends obj and returns the asset's secure URL.
func (h *CloudinaryHost) Upload(ctx context.Context, obj Object) (string, error) {
	res, err := h.api.Upload(ctx, obj.Body, uploader.UploadParams{
		Folder:       obj.Folder,
		PublicID:     obj.Name,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if res == nil || res.SecureURL == "" {
		return "", errors.New("cloudinary returned no secure url")
	}
	return res.SecureURL, nil
}
