package ingest

import (
	"context"
	"fmt"
	"strings"

	"imgferry/internal/assets"
	"imgferry/internal/logging"
	"imgferry/internal/pipeline"
	"imgferry/internal/services"
	"imgferry/internal/source"
)

// MaxUploadFiles caps the images accepted by one manual upload.
const MaxUploadFiles = 10

// UploadFile is one image sent by an author.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadInput is a manual multi-image upload. AltText applies to every file.
type UploadInput struct {
	Files      []UploadFile
	AltText    string
	UploadedBy string
}

// UploadedImage describes a stored upload.
type UploadedImage struct {
	ID         string `json:"_id"`
	Path       string `json:"path"`
	URL        string `json:"url"`
	Filename   string `json:"filename"`
	AltText    string `json:"altText"`
	UploadedBy string `json:"uploadedBy"`
}

// UploadResult lists the stored uploads and the files that could not be
// stored.
type UploadResult struct {
	Images   []UploadedImage    `json:"images"`
	Failures []pipeline.Failure `json:"errors"`
}

// UploadImages stores each file as a manual asset. Files are processed in
// order and a failing file does not stop the rest.
func (s *Service) UploadImages(ctx context.Context, input UploadInput, build assets.URLBuilder) (*UploadResult, error) {
	if len(input.Files) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "upload images", "no image files provided", nil)
	}
	if len(input.Files) > MaxUploadFiles {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "upload images", fmt.Sprintf("at most %d images per upload", MaxUploadFiles), nil)
	}
	if strings.TrimSpace(input.UploadedBy) == "" {
		return nil, services.Wrap(services.ErrValidation, stageIngest, "upload images", "author is required", nil)
	}

	ctx = services.WithUploader(ctx, input.UploadedBy)
	result := &UploadResult{Images: []UploadedImage{}, Failures: []pipeline.Failure{}}
	for _, file := range input.Files {
		success, failure := s.pipe.Run(ctx, uploadResolver(file), pipeline.Item{
			Locator:    file.Filename,
			AltText:    input.AltText,
			UploadedBy: input.UploadedBy,
			Origin:     assets.OriginManual,
		}, build)
		if failure != nil {
			result.Failures = append(result.Failures, *failure)
			continue
		}
		result.Images = append(result.Images, UploadedImage{
			ID:         success.AssetID,
			Path:       success.NewPath,
			URL:        success.NewURL,
			Filename:   success.Filename,
			AltText:    success.AltText,
			UploadedBy: input.UploadedBy,
		})
	}
	s.logger.Info("images uploaded",
		logging.Int("stored", len(result.Images)),
		logging.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func uploadResolver(file UploadFile) source.Resolver {
	return source.ResolverFunc(func(context.Context, string) (source.RawAsset, error) {
		return source.RawAsset{
			Data:        file.Data,
			Locator:     file.Filename,
			Filename:    file.Filename,
			ContentType: file.ContentType,
		}, nil
	})
}
