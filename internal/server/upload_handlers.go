package server

import (
	"mime"
	"net/url"
	"path"

	"inkd/internal/featureflags"
	"inkd/internal/models"
	"inkd/internal/remote"
	"inkd/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const objectCacheControl = "public, max-age=31536000, immutable"

// RemoveUploadsRequest is the body of DELETE /api/uploads.
type RemoveUploadsRequest struct {
	Bucket storage.Bucket `json:"bucket"`
	Paths  []string       `json:"paths"`
}

// Upload handles POST /api/uploads
// @Summary Upload an image
// @Description Stores the file under <user>/<folder>/<timestamp>.<ext> in the bucket and returns its public URL.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image"
// @Param bucket formData string true "posts, portfolio or avatars"
// @Param folder formData string false "Optional subfolder"
// @Success 201 {object} storage.Object
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /uploads [post]
func (s *Server) Upload(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if !s.featureFlags.Enabled(featureflags.Uploads, userID) {
		return models.RespondWithAppError(c, &models.AppError{
			Kind:    models.KindValidation,
			Code:    "FEATURE_DISABLED",
			Message: "Uploads are not enabled for this account",
		})
	}

	filename, content, err := readFormFile(c, "file")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	obj, err := s.storage.Upload(c.UserContext(), storage.UploadInput{
		Bucket:   storage.Bucket(c.FormValue("bucket")),
		UserID:   userID,
		Folder:   c.FormValue("folder"),
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return models.RespondWithAppError(c, remote.Classify(err))
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// RemoveUploads handles DELETE /api/uploads
// @Summary Remove uploaded objects
// @Description Paths must belong to the signed-in user. Missing objects are ignored.
// @Tags uploads
// @Accept json
// @Security BearerAuth
// @Param request body RemoveUploadsRequest true "Objects"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /uploads [delete]
func (s *Server) RemoveUploads(c *fiber.Ctx) error {
	var req RemoveUploadsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if !req.Bucket.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unknown bucket"))
	}
	if len(req.Paths) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("paths is required"))
	}

	owner := currentUserID(c)
	for _, p := range req.Paths {
		if !storage.OwnedBy(owner, p) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("You can only remove your own uploads"))
		}
	}
	if err := s.storage.Remove(c.UserContext(), req.Bucket, req.Paths...); err != nil {
		return models.RespondWithAppError(c, remote.Classify(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ServeObject handles GET /storage/:bucket/*
func (s *Server) ServeObject(c *fiber.Ctx) error {
	bucket := storage.Bucket(c.Params("bucket"))
	if !bucket.Valid() {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Bucket", string(bucket)))
	}
	objectPath, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Object", c.Params("*")))
	}

	rc, err := s.storage.Open(bucket, objectPath)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if ct := mime.TypeByExtension(path.Ext(objectPath)); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	c.Set(fiber.HeaderCacheControl, objectCacheControl)
	return c.SendStream(rc)
}
