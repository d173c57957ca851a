package models

// MaterialCategory groups training materials.
type MaterialCategory string

const (
	MaterialGeneral    MaterialCategory = "general"
	MaterialLeadership MaterialCategory = "leadership"
	MaterialDiscipline MaterialCategory = "discipline"
	MaterialSafety     MaterialCategory = "safety"
)

// Valid returns true when the category is a supported value.
func (c MaterialCategory) Valid() bool {
	switch c {
	case MaterialGeneral, MaterialLeadership, MaterialDiscipline, MaterialSafety:
		return true
	default:
		return false
	}
}

// TrainingMaterial is an uploaded document or video for prefect training.
type TrainingMaterial struct {
	Record
	UploadedBy   string           `db:"uploaded_by" json:"uploaded_by"`
	UploaderName *string          `db:"uploader_name" json:"uploader_name,omitempty"`
	Title        string           `db:"title" json:"title"`
	Description  *string          `db:"description" json:"description,omitempty"`
	Category     MaterialCategory `db:"category" json:"category"`
	FileKey      *string          `db:"file_key" json:"-"`
	FileURL      *string          `db:"file_url" json:"file_url,omitempty"`
	MimeType     *string          `db:"mime_type" json:"mime_type,omitempty"`
	FileSize     *int64           `db:"file_size" json:"file_size,omitempty"`
}

// OwnerID implements Owned.
func (m TrainingMaterial) OwnerID() string { return m.UploadedBy }

// CreateTrainingMaterialRequest registers a material. The file is uploaded separately.
type CreateTrainingMaterialRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description *string          `json:"description"`
	Category    MaterialCategory `json:"category" validate:"omitempty,oneof=general leadership discipline safety"`
	FileURL     *string          `json:"file_url" validate:"omitempty,url"`
}

// UpdateTrainingMaterialRequest edits material metadata.
type UpdateTrainingMaterialRequest struct {
	Title       *string           `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string           `json:"description"`
	Category    *MaterialCategory `json:"category" validate:"omitempty,oneof=general leadership discipline safety"`
	FileURL     *string           `json:"file_url" validate:"omitempty,url"`
}

// MaterialUpload is a file accompanying a training material.
type MaterialUpload struct {
	Filename string
	Size     int64
}
