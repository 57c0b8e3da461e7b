package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/pkg/storage"
)

func staticFixture(t *testing.T) *StaticHandler {
	t.Helper()
	documents, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	images, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = documents.Save("draft.txt", []byte("first draft"))
	require.NoError(t, err)
	return NewStaticHandler(documents, images)
}

func TestStaticServesStoredDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := staticFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/static/document/draft.txt", nil)
	c.Params = gin.Params{{Key: "filename", Value: "draft.txt"}}

	handler.Document(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "first draft", rec.Body.String())
}

func TestStaticUnknownFileNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := staticFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/static/document/missing.txt", nil)
	c.Params = gin.Params{{Key: "filename", Value: "missing.txt"}}

	handler.Document(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticStripsTraversal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := staticFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/static/document/x", nil)
	c.Params = gin.Params{{Key: "filename", Value: "../../etc/passwd"}}

	handler.Document(c)

	// The base name "passwd" does not exist in the store.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
