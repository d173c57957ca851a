package service

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/storage"
)

type blobStore interface {
	Save(key string, data []byte) (string, error)
	SaveStream(key string, r io.Reader) (string, int64, error)
	Delete(key string) error
	PublicURL(key string) string
}

// MaterialLimits bounds training material uploads.
type MaterialLimits struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// TrainingMaterialService manages training documents and their files.
type TrainingMaterialService struct {
	*resourceService[models.TrainingMaterial]
	store  blobStore
	limits MaterialLimits
}

// NewTrainingMaterialService constructs the training material service.
func NewTrainingMaterialService(repo resourceRepository[models.TrainingMaterial], store blobStore, limits MaterialLimits, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *TrainingMaterialService {
	return &TrainingMaterialService{
		resourceService: newResourceService[models.TrainingMaterial]("training_materials", "training material", repo, audit, validate, logger, resourcePolicy{page: "training", publicRead: true}),
		store:           store,
		limits:          limits,
	}
}

// Create registers a material. Only staff may publish.
func (s *TrainingMaterialService) Create(ctx context.Context, actor models.Actor, req models.CreateTrainingMaterialRequest) (*models.TrainingMaterial, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if !s.isManager(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can publish training materials")
	}
	category := req.Category
	if category == "" {
		category = models.MaterialGeneral
	}
	return s.create(ctx, actor, &models.TrainingMaterial{
		UploadedBy:  actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		FileURL:     req.FileURL,
	})
}

// Update edits material metadata.
func (s *TrainingMaterialService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateTrainingMaterialRequest) (*models.TrainingMaterial, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := models.Fields{}
	setIf(fields, "title", req.Title)
	setIf(fields, "description", req.Description)
	setIf(fields, "category", req.Category)
	setIf(fields, "file_url", req.FileURL)
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// Upload stores the material's file, replacing any previous one. The content
// type is sniffed from the bytes and must be on the allow list.
func (s *TrainingMaterialService) Upload(ctx context.Context, actor models.Actor, id string, file io.ReadSeeker, upload models.MaterialUpload) (*models.TrainingMaterial, error) {
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.limits.MaxFileSize > 0 && upload.Size > s.limits.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.limits.MaxFileSize))
	}
	mimeType, ext, err := storage.DetectMIME(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable upload")
	}
	if !s.allowed(mimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", mimeType))
	}

	key := "materials/" + id + ext
	var reader io.Reader = file
	if s.limits.MaxFileSize > 0 {
		reader = io.LimitReader(file, s.limits.MaxFileSize+1)
	}
	_, size, err := s.store.SaveStream(key, reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if s.limits.MaxFileSize > 0 && size > s.limits.MaxFileSize {
		_ = s.store.Delete(key)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.limits.MaxFileSize))
	}
	if current.FileKey != nil && *current.FileKey != key {
		if err := s.store.Delete(*current.FileKey); err != nil {
			s.logger.Warn("failed to delete replaced material file", zap.String("key", *current.FileKey), zap.Error(err))
		}
	}

	fields := models.Fields{
		"file_key":  key,
		"file_url":  s.store.PublicURL(key),
		"mime_type": mimeType,
		"file_size": size,
	}
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// Delete removes the material and its file.
func (s *TrainingMaterialService) Delete(ctx context.Context, actor models.Actor, id string) error {
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.resourceService.Delete(ctx, actor, id); err != nil {
		return err
	}
	if current.FileKey != nil {
		if err := s.store.Delete(*current.FileKey); err != nil {
			s.logger.Warn("failed to delete material file", zap.String("key", *current.FileKey), zap.Error(err))
		}
	}
	return nil
}

func (s *TrainingMaterialService) allowed(mimeType string) bool {
	if len(s.limits.AllowedMIMEs) == 0 {
		return true
	}
	for _, m := range s.limits.AllowedMIMEs {
		if m == mimeType {
			return true
		}
	}
	return false
}
