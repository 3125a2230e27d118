package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkd/internal/config"
	"inkd/internal/models"
	"inkd/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (ts *testServer) upload(t *testing.T, path, token string, fields map[string]string, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != nil {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestUploads_UploadServeRemove(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	token := rosa.Session.AccessToken

	resp := ts.upload(t, "/api/uploads", token, map[string]string{"bucket": "posts", "folder": "drafts"}, "rose.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	obj := decode[storage.Object](t, resp)
	assert.Equal(t, storage.BucketPosts, obj.Bucket)
	assert.True(t, strings.HasPrefix(obj.Path, rosa.Session.User.ID+"/drafts/"), obj.Path)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, "http://inkd.test/storage/posts/"+obj.Path, obj.URL)

	resp = ts.do(t, http.MethodGet, "/storage/posts/"+obj.Path, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Cache-Control"), "immutable")

	resp = ts.do(t, http.MethodDelete, "/api/uploads", RemoveUploadsRequest{
		Bucket: storage.BucketPosts,
		Paths:  []string{obj.Path},
	}, token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/storage/posts/"+obj.Path, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploads_Rejections(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	token := rosa.Session.AccessToken

	resp := ts.upload(t, "/api/uploads", token, map[string]string{"bucket": "posts"}, "notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.upload(t, "/api/uploads", token, map[string]string{"bucket": "secrets"}, "rose.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.upload(t, "/api/uploads", token, map[string]string{"bucket": "posts"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/uploads", RemoveUploadsRequest{
		Bucket: storage.BucketPosts,
		Paths:  []string{"someone-else/1700000000000.png"},
	}, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/storage/secrets/a.png", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploads_RemoveCannotClimbIntoAnotherUser(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	ben := ts.signUp(t, "ben@example.com", "Ben Ortiz", "ben.ink", false)

	resp := ts.upload(t, "/api/uploads", rosa.Session.AccessToken, map[string]string{"bucket": "posts"}, "rose.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	obj := decode[storage.Object](t, resp)

	for _, p := range []string{
		ben.Session.User.ID + "/../" + obj.Path,
		ben.Session.User.ID + "/x/../../" + obj.Path,
	} {
		resp = ts.do(t, http.MethodDelete, "/api/uploads", RemoveUploadsRequest{
			Bucket: storage.BucketPosts,
			Paths:  []string{p},
		}, ben.Session.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, p)
	}

	resp = ts.do(t, http.MethodGet, "/storage/posts/"+obj.Path, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploads_FeatureFlagOff(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(c *config.Config) { c.FeatureFlags = "uploads=off" })
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)

	resp := ts.upload(t, "/api/uploads", rosa.Session.AccessToken, map[string]string{"bucket": "posts"}, "rose.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "FEATURE_DISABLED", body.Code)
}

func TestPortfolio_UploadDesign(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)

	resp := ts.upload(t, "/api/portfolio/upload", rosa.Session.AccessToken, map[string]string{"category": "design"}, "peony.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[models.PortfolioItem](t, resp)
	assert.Equal(t, models.PortfolioCategoryDesign, item.Category)
	assert.True(t, strings.HasPrefix(item.ImageURL, "http://inkd.test/storage/portfolio/"), item.ImageURL)
}
