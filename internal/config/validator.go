// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree and applies defaults.  Any tag mismatch
// or validation error aborts startup, so the binary never runs with
// partial, malformed, or missing configuration.
//
// Cross-field rules that tags cannot express (provider-specific media
// credentials) live in `validateMedia`.

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	return validateMedia(&c.Media)
}

// validateMedia checks that the selected provider has its credentials.
func validateMedia(m *Media) error {
	switch m.Provider {
	case "cloudinary":
		if m.Cloudinary.CloudName == "" || m.Cloudinary.APIKey == "" || m.Cloudinary.APISecret == "" {
			return errors.New("media.cloudinary: cloud_name, api_key, and api_secret are required")
		}
	case "s3":
		if m.S3.Bucket == "" || m.S3.Region == "" {
			return errors.New("media.s3: bucket and region are required")
		}
		if m.S3.PublicBaseURL == "" && m.S3.Endpoint == "" {
			return fmt.Errorf("media.s3: public_base_url or endpoint is required to build object URLs")
		}
	}
	return nil
}
