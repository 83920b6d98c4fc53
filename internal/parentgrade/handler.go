package parentgrade

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"SchoolNotify/internal/auth"
)

// Handler exposes the policy engine over HTTP: parent settings, the grade
// and OCR ingest endpoints used by the grading and document pipelines, and
// queue administration.
type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func currentClaims(c echo.Context) *auth.JWTClaims {
	claims, _ := c.Get("user").(*auth.JWTClaims)
	return claims
}

// GetSettings returns the caller's settings, defaults included.
func (h *Handler) GetSettings(c echo.Context) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}
	return c.JSON(http.StatusOK, h.service.SettingsFor(c.Request().Context(), claims.UserID))
}

// SettingsRequest is the updatable subset of Settings.
type SettingsRequest struct {
	Enabled           bool       `json:"enabled"`
	GradeThreshold    float64    `json:"gradeThreshold" validate:"gte=0,lte=100"`
	Subjects          []string   `json:"subjects"`
	Frequency         Frequency  `json:"frequency" validate:"omitempty,oneof=immediate daily_digest weekly_summary"`
	MajorExamsOnly    bool       `json:"majorExamsOnly"`
	MissingGradeAlert bool       `json:"missingGradeAlert"`
	MissingGradeDays  int        `json:"missingGradeDays" validate:"gte=0"`
	QuietHours        QuietHours `json:"quietHours"`
}

// UpdateSettings persists the caller's settings.
func (h *Handler) UpdateSettings(c echo.Context) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	st := Settings{
		UserID:            claims.UserID,
		Enabled:           req.Enabled,
		GradeThreshold:    req.GradeThreshold,
		Subjects:          req.Subjects,
		Frequency:         req.Frequency,
		MajorExamsOnly:    req.MajorExamsOnly,
		MissingGradeAlert: req.MissingGradeAlert,
		MissingGradeDays:  req.MissingGradeDays,
		QuietHours:        req.QuietHours,
	}
	if err := h.service.UpdateSettings(c.Request().Context(), st); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store settings"})
	}
	return c.JSON(http.StatusOK, st)
}

// GradeUpdateRequest is the ingest payload from the grading pipeline.
type GradeUpdateRequest struct {
	ParentID       string   `json:"parentId" validate:"required"`
	StudentID      string   `json:"studentId" validate:"required"`
	StudentName    string   `json:"studentName" validate:"required"`
	Subject        string   `json:"subject" validate:"required"`
	AssignmentType string   `json:"assignmentType"`
	AssignmentName string   `json:"assignmentName"`
	Score          float64  `json:"score" validate:"gte=0"`
	MaxScore       float64  `json:"maxScore" validate:"gt=0"`
	PreviousScore  *float64 `json:"previousScore"`
}

// IngestGradeUpdate runs one grade event through the policy engine.
func (h *Handler) IngestGradeUpdate(c echo.Context) error {
	var req GradeUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	upd := GradeUpdate{
		ParentID:       req.ParentID,
		StudentID:      req.StudentID,
		StudentName:    req.StudentName,
		Subject:        req.Subject,
		AssignmentType: req.AssignmentType,
		AssignmentName: req.AssignmentName,
		Score:          req.Score,
		MaxScore:       req.MaxScore,
		PreviousScore:  req.PreviousScore,
	}
	if err := h.service.ProcessGradeUpdate(c.Request().Context(), upd); err != nil {
		h.log.Error("Grade update processing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process grade update"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Processed"})
}

// OCRResultRequest is the ingest payload from the OCR pipeline.
type OCRResultRequest struct {
	DocumentID   string `json:"documentId" validate:"required"`
	DocumentName string `json:"documentName" validate:"required"`
	DocumentType string `json:"documentType"`
	ParentID     string `json:"parentId" validate:"required"`
	Severity     string `json:"severity" validate:"required,oneof=failure warning success"`
	Detail       string `json:"detail"`
}

// IngestOCRResult runs one validation outcome through the policy engine.
func (h *Handler) IngestOCRResult(c echo.Context) error {
	var req OCRResultRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	res := OCRResult{
		DocumentID:   req.DocumentID,
		DocumentName: req.DocumentName,
		DocumentType: req.DocumentType,
		ParentID:     req.ParentID,
		Severity:     req.Severity,
		Detail:       req.Detail,
	}
	if err := h.service.ProcessOCRValidation(c.Request().Context(), res); err != nil {
		h.log.Error("OCR result processing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process OCR result"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Processed"})
}

// ClearQueue wipes both deferred queues (admin only).
func (h *Handler) ClearQueue(c echo.Context) error {
	if err := h.service.ClearQueue(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to clear queue"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Queue cleared"})
}
