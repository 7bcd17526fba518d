package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/internal/storage"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

type SketchHandler struct {
	sketchService *services.SketchService
	store         storage.Store
}

func NewSketchHandler(sketchService *services.SketchService, store storage.Store) *SketchHandler {
	return &SketchHandler{sketchService: sketchService, store: store}
}

// GET /api/projects/:id/sketches
func (h *SketchHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	sketches, err := h.sketchService.List(c.Request.Context(), middleware.GetSession(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sketches)
}

// Save records an uploaded image on the moodboard
// POST /api/projects/:id/sketches
func (h *SketchHandler) Save(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.SaveSketchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sketch, err := h.sketchService.Save(c.Request.Context(), middleware.GetSession(c), projectID, req.Title, req.ImageURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sketch)
}

// Upload stores an image from the multipart "file" field and returns its URL.
// POST /api/uploads
func (h *SketchHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable upload")
		return
	}
	defer f.Close()

	key := storage.SketchKey(middleware.GetUserID(c), fh.Filename, time.Now())
	obj, err := h.store.Put(c.Request.Context(), key, f)
	switch {
	case err == nil:
		response.Created(c, obj)
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrEmpty):
		response.BadRequest(c, err.Error())
	default:
		logger.Error().Err(err).Str("key", key).Msg("upload failed")
		response.Error(c, response.NewUpstreamFailure("upload failed"))
	}
}
