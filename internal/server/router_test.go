package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imagepost/service/internal/image"
	"github.com/imagepost/service/internal/mocks"
	"github.com/imagepost/service/internal/response"
)

type fixture struct {
	router http.Handler
	repo   *mocks.MockRepository
	store  *mocks.MockStorage
}

func newFixture(t *testing.T, legacy bool) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	repo := mocks.NewMockRepository()
	store := mocks.NewMockStorage()
	svc := image.NewService(repo, store, image.DefaultLimits, log)
	h := image.NewHandler(svc, response.Writer{Legacy: legacy}, log)
	return &fixture{router: NewRouter(h, log), repo: repo, store: store}
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func uploadRequest(t *testing.T, files ...mocks.File) *http.Request {
	t.Helper()
	body, ct, err := mocks.MultipartBody(files...)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return req
}

type recordBody struct {
	ID     string `json:"_id"`
	Images []struct {
		Key string `json:"imageKey"`
		URL string `json:"url"`
	} `json:"images"`
}

func decodeRecord(t *testing.T, v interface{}) recordBody {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var rec recordBody
	require.NoError(t, json.Unmarshal(raw, &rec))
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestImageLifecycle(t *testing.T) {
	f := newFixture(t, false)

	// Upload two JPEGs.
	rec, body := f.do(t, uploadRequest(t, mocks.JPEG("a.jpg", 100), mocks.JPEG("b.jpg", 200)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 201, body["status"])
	assert.Equal(t, "Successful upload", body["message"])

	result := body["result"].(map[string]interface{})
	assert.Len(t, result["results"], 2)
	assert.Len(t, result["imageKey"], 2)

	created := decodeRecord(t, body["newImageUpload"])
	require.Len(t, created.Images, 2)
	for _, img := range created.Images {
		assert.Empty(t, img.URL)
	}

	// First read signs every image and persists the urls.
	rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/get-image/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, "imageData")
	signed := decodeRecord(t, body["imageData"])
	for _, img := range signed.Images {
		assert.Equal(t, "https://bucket.example.com/"+img.Key, img.URL)
	}
	_, sign, _ := f.store.Calls()
	assert.Equal(t, 2, sign)

	// Second read is served from the cache under the "url" field.
	rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/get-image/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, "url")
	assert.Equal(t, signed.Images, decodeRecord(t, body["url"]).Images)
	_, sign, _ = f.store.Calls()
	assert.Equal(t, 2, sign)

	// Delete removes objects and record.
	rec, body = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/delete-image/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Image deleted successfully", body["message"])
	assert.EqualValues(t, 2, body["deleted"])
	assert.EqualValues(t, 0, body["failed"])
	assert.Equal(t, created.ID, decodeRecord(t, body["imageToDelete"]).ID)
	assert.Zero(t, f.repo.Len())
	for _, img := range created.Images {
		assert.False(t, f.store.Has(img.Key))
	}

	rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/get-image/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Image data not found", body["message"])
	assert.Equal(t, false, body["success"])
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		files   []mocks.File
		message string
	}{
		{"oversized", []mocks.File{mocks.JPEG("big.jpg", 2_500_001)}, "File is too large"},
		{"unsupported", []mocks.File{{Name: "a.gif", ContentType: "image/gif", Data: []byte("GIF89a")}}, "File format is not supported"},
		{"too many", func() []mocks.File {
			var files []mocks.File
			for i := 0; i < 11; i++ {
				files = append(files, mocks.JPEG("a.jpg", 10))
			}
			return files
		}(), "File limit reached"},
		{"empty", nil, "No files provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			rec, body := f.do(t, uploadRequest(t, tt.files...))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]interface{}{"message": tt.message}, body)

			put, _, _ := f.store.Calls()
			assert.Zero(t, put)
		})
	}
}

func TestUploadNotMultipart(t *testing.T) {
	f := newFixture(t, false)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	rec, body := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files provided", body["message"])
}

func TestUploadRequestTooLarge(t *testing.T) {
	f := newFixture(t, false)
	req := uploadRequest(t, mocks.JPEG("a.jpg", 10))
	req.ContentLength = image.DefaultLimits.RequestBytes() + 1

	rec, body := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File is too large", body["message"])
}

func TestUploadStoreFailure(t *testing.T) {
	f := newFixture(t, false)
	f.store.FailPut["a.jpg"] = true

	rec, body := f.do(t, uploadRequest(t, mocks.JPEG("a.jpg", 10)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Unable to upload images", body["message"])
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestUploadRecordFailure(t *testing.T) {
	f := newFixture(t, false)
	f.repo.CreateErr = mocks.ErrMock

	rec, body := f.do(t, uploadRequest(t, mocks.JPEG("a.jpg", 10)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"error":   "save image record: mock failure",
		"status":  float64(500),
		"success": false,
	}, body)
}

func TestDeleteNotFound(t *testing.T) {
	f := newFixture(t, false)
	rec, body := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/delete-image/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Image can not be found", body["message"])
	assert.EqualValues(t, 404, body["status"])
}

func TestDeleteFailed(t *testing.T) {
	f := newFixture(t, false)
	created, err := f.repo.Create(context.Background(), []string{"k1"})
	require.NoError(t, err)
	f.store.FailDelete["k1"] = true

	rec, body := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/delete-image/"+created.ID, nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Unable to delete image", body["message"])
	assert.Equal(t, 1, f.repo.Len())
}

func TestLegacyStatusCodes(t *testing.T) {
	f := newFixture(t, true)

	rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/get-image/missing", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 404, body["status"])

	rec, _ = f.do(t, uploadRequest(t, mocks.JPEG("a.jpg", 10)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, uploadRequest(t, mocks.JPEG("big.jpg", 2_500_001)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "validation keeps its 400")
}
