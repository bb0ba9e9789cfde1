package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceliveness/internal/vision"
)

func newTestContext(method, target string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return w, c
}

func TestPersonHandlerGetRejectsInvalidID(t *testing.T) {
	h := NewPersonHandler(nil, nil, nil)
	w, c := newTestContext(http.MethodGet, "/v1/persons/not-a-uuid")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.Get(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerDeleteFaceRejectsInvalidPersonID(t *testing.T) {
	h := NewPersonHandler(nil, nil, nil)
	w, c := newTestContext(http.MethodDelete, "/v1/persons/bad/faces/also-bad")
	c.Params = gin.Params{{Key: "id", Value: "bad"}, {Key: "faceId", Value: "also-bad"}}

	h.DeleteFace(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerDeleteFaceRejectsInvalidFaceID(t *testing.T) {
	h := NewPersonHandler(nil, nil, nil)
	w, c := newTestContext(http.MethodDelete, "/v1/persons/"+validUUID+"/faces/bad")
	c.Params = gin.Params{{Key: "id", Value: validUUID}, {Key: "faceId", Value: "bad"}}

	h.DeleteFace(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerListFacesRejectsInvalidPersonID(t *testing.T) {
	h := NewPersonHandler(nil, nil, nil)
	w, c := newTestContext(http.MethodGet, "/v1/persons/bad/faces")
	c.Params = gin.Params{{Key: "id", Value: "bad"}}

	h.ListFaces(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerListRejectsInvalidCollectionID(t *testing.T) {
	h := NewPersonHandler(nil, nil, nil)
	w, c := newTestContext(http.MethodGet, "/v1/persons?collection_id=bad")

	h.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerAddFaceRejectsInvalidPersonID(t *testing.T) {
	h := NewPersonHandler(nil, nil, nil)
	w, c := newTestContext(http.MethodPost, "/v1/persons/bad/faces")
	c.Params = gin.Params{{Key: "id", Value: "bad"}}

	h.AddFace(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerSearchRejectsWithoutPipeline(t *testing.T) {
	h := NewPersonHandler(nil, nil, nil)
	w, c := newTestContext(http.MethodPost, "/v1/search")

	h.Search(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPersonHandlerSearchRequiresImageField(t *testing.T) {
	h := NewPersonHandler(nil, nil, &vision.Pipeline{})
	w, c := newTestContext(http.MethodPost, "/v1/search")
	c.Request.Header.Set("Content-Type", "multipart/form-data; boundary=x")

	h.Search(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

const validUUID = "11111111-1111-1111-1111-111111111111"
