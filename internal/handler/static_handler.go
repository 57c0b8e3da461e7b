package handler

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/gradhub/thesis-api/pkg/errors"
	"github.com/gradhub/thesis-api/pkg/response"
	"github.com/gradhub/thesis-api/pkg/storage"
)

// StaticHandler streams stored submission documents and profile images.
type StaticHandler struct {
	documents *storage.LocalStorage
	images    *storage.LocalStorage
}

// NewStaticHandler constructs StaticHandler.
func NewStaticHandler(documents, images *storage.LocalStorage) *StaticHandler {
	return &StaticHandler{documents: documents, images: images}
}

// Document godoc
// @Summary Download submission document
// @Tags Static
// @Produce octet-stream
// @Param filename path string true "Stored filename"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /static/document/{filename} [get]
func (h *StaticHandler) Document(c *gin.Context) {
	h.serve(c, h.documents)
}

// ProfileImage godoc
// @Summary Download profile image
// @Tags Static
// @Produce octet-stream
// @Param filename path string true "Stored filename"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /static/profile-image/{filename} [get]
func (h *StaticHandler) ProfileImage(c *gin.Context) {
	h.serve(c, h.images)
}

// serve streams a stored file. The filename is reduced to its base name so
// path traversal cannot escape the storage directory.
func (h *StaticHandler) serve(c *gin.Context, store *storage.LocalStorage) {
	name := filepath.Base(c.Param("filename"))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid filename"))
		return
	}

	path := store.Path(name)
	if _, err := os.Stat(path); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	c.File(path)
}
