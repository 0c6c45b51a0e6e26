package drive

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"foldershare/internal/config"
	"foldershare/internal/domain"
	"foldershare/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var noSlashes = validation.Match(regexp.MustCompile(`^[^/\\]+$`)).Error("name cannot contain slashes")

// validateCreateFolderRequest validates a folder creation request
func validateCreateFolderRequest(req *services.CreateFolderRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.RuneLength(1, config.MaxFolderNameLength),
			noSlashes,
		),
	))
}

// validateUpdateFolderRequest validates a folder update request
func validateUpdateFolderRequest(req *services.UpdateFolderRequest) error {
	// At least one field must be provided
	if req.Name == nil && !req.ParentID.Present {
		return &domain.ValidationError{Message: "at least one field must be provided"}
	}

	if req.Name == nil {
		return nil
	}
	name := strings.TrimSpace(*req.Name)
	req.Name = &name
	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.RuneLength(1, config.MaxFolderNameLength),
			noSlashes,
		),
	))
}

// validateUploadRequest validates a file upload against the size limit
func validateUploadRequest(req *services.UploadFileRequest, maxBytes int64) error {
	req.Name = strings.TrimSpace(req.Name)
	req.MimeType = strings.TrimSpace(req.MimeType)
	if req.MimeType == "" {
		req.MimeType = "application/octet-stream"
	}
	if req.Body == nil {
		return &domain.ValidationError{Message: "file body is required"}
	}

	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.RuneLength(1, config.MaxFileNameLength),
			noSlashes,
		),
		validation.Field(&req.MimeType, validation.Length(1, config.MaxMimeTypeLength)),
		validation.Field(&req.Size, validation.Min(int64(0)), validation.Max(maxBytes)),
	))
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}
