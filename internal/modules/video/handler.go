package video

import (
	"errors"
	"net/http"

	"pulsegen/internal/media"
	"pulsegen/internal/middleware"
	"pulsegen/internal/pkg/response"
	"pulsegen/internal/pkg/validator"
	"pulsegen/internal/stream"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart overhead allowed on top of the file itself
const formSlack = 1 << 20

type Handler struct {
	service       *Service
	maxUploadSize int64
	log           *zap.Logger
}

func NewHandler(service *Service, maxUploadSize int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, maxUploadSize: maxUploadSize, log: log}
}

func caller(c *gin.Context) (Caller, bool) {
	id, role, ok := middleware.Caller(c)
	return Caller{ID: id, Role: role}, ok
}

// Upload accepts a multipart form with "file", "title" and "description".
// @Summary  Upload video
// @Tags     Videos
// @Security BearerAuth
// @Accept   multipart/form-data
// @Success  201
// @Failure  400,403,413,415
// @Router   /videos [POST]
func (h *Handler) Upload(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+formSlack)
	}

	var req UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds maximum upload size")
			return
		}
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid form data")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid form data", errs)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "FILE_REQUIRED", "A video file is required in the 'file' field")
		return
	}

	v, err := h.service.Upload(c.Request.Context(), who, req, fh)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"video": ToVideoResponse(v)})
}

// List supports search, ordering, status, limit and offset query params.
// @Summary  List videos
// @Tags     Videos
// @Security BearerAuth
// @Router   /videos [GET]
func (h *Handler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return
	}
	if errs := validator.Validate(q); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", errs)
		return
	}

	videos, err := h.service.List(c.Request.Context(), who, q)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"videos": ToVideoResponses(videos),
		"count":  len(videos),
	})
}

func (h *Handler) Get(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	v, err := h.service.Get(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"video": ToVideoResponse(v)})
}

func (h *Handler) Delete(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.service.Delete(c.Request.Context(), who, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Analyze re-dispatches analysis of a pending video.
// @Summary  Start analysis
// @Tags     Videos
// @Security BearerAuth
// @Success  202
// @Failure  404,409,503
// @Router   /videos/{id}/analyze [POST]
func (h *Handler) Analyze(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	v, err := h.service.Analyze(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"video": ToVideoResponse(v)})
}

// Stream serves the video bytes with single-range support. Media elements
// pass the token as ?token=.
// @Summary  Stream video
// @Tags     Videos
// @Param    Range header string false "bytes=start-end"
// @Success  200,206
// @Failure  401,404,416
// @Router   /videos/{id}/stream [GET]
func (h *Handler) Stream(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := c.Param("id")
	path, err := h.service.OpenStream(c.Request.Context(), who, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := stream.Serve(c.Writer, c.Request, path)
	if err != nil {
		if errors.Is(err, stream.ErrFileNotFound) {
			h.log.Warn("video file missing on disk", zap.String("video_id", id))
			response.Error(c, http.StatusNotFound, "FILE_NOT_FOUND", "Video file not found")
			return
		}
		if res.Status == 0 {
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "STREAM_FAILED", "Failed to open video")
			return
		}
		// headers are out; the client went away or the read failed mid-body
		h.log.Debug("stream interrupted",
			zap.String("video_id", id),
			zap.Int64("written", res.Written),
			zap.Error(err),
		)
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrVideoNotFound):
		response.Error(c, http.StatusNotFound, "VIDEO_NOT_FOUND", "Video not found")
	case errors.Is(err, ErrFileMissing):
		response.Error(c, http.StatusNotFound, "FILE_NOT_FOUND", "Video file not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	case errors.Is(err, ErrAnalysisNotAllowed):
		response.Error(c, http.StatusConflict, "ANALYSIS_NOT_ALLOWED", err.Error())
	case errors.Is(err, ErrAnalysisUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "ANALYSIS_UNAVAILABLE", "Analysis queue is busy, try again later")
	case errors.Is(err, media.ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, "EMPTY_FILE", "Uploaded file is empty")
	case errors.Is(err, media.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds maximum upload size")
	case errors.Is(err, media.ErrUnsupportedMedia):
		response.Error(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Only video files are accepted")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
