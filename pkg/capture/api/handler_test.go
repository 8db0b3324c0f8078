package api_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/capture-pipeline/pkg/capture"
	"github.com/incridea/capture-pipeline/pkg/capture/api"
	"github.com/incridea/capture-pipeline/pkg/capture/ingest"
	"github.com/incridea/capture-pipeline/pkg/capture/repo/memory"
	memorystorage "github.com/incridea/capture-pipeline/pkg/capture/storage/memory"
)

type testServer struct {
	router chi.Router
	auth   *jwtauth.JWTAuth
	svc    capture.Service
}

func newTestServer(t *testing.T) *testServer {
	store := memorystorage.New()
	svc, err := capture.New(
		capture.WithRepository(memory.New()),
		capture.WithBlobStore("memory", store),
	)
	require.NoError(t, err)

	ingestor, err := ingest.New(store)
	require.NoError(t, err)

	auth := api.NewJWTAuth("test-secret")

	r := chi.NewRouter()
	r.Use(api.Verifier(auth))
	r.Use(api.WithIdentity)
	r.Mount("/captures", api.NewCaptureHandler(svc, ingestor).Routes())
	r.Mount("/events", api.NewEventHandler(svc).Routes())
	r.Mount("/removal-requests", api.NewRemovalHandler(svc).Routes())

	return &testServer{router: r, auth: auth, svc: svc}
}

func (ts *testServer) adminToken(t *testing.T, role capture.Role) string {
	_, tokenString, err := ts.auth.Encode(map[string]interface{}{
		"sub":  uuid.New().String(),
		"role": string(role),
	})
	require.NoError(t, err)
	return tokenString
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, eventName string) (*bytes.Buffer, string) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	var imgBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&imgBuf, img, &jpeg.Options{Quality: 90}))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "shot.jpeg")
	require.NoError(t, err)
	_, err = part.Write(imgBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("event_name", eventName))
	require.NoError(t, writer.WriteField("event_category", "pronight"))
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func uploadCapture(t *testing.T, ts *testServer, eventName string) capture.Capture {
	body, contentType := multipartUpload(t, eventName)
	req := httptest.NewRequest(http.MethodPost, "/captures/", body)
	req.Header.Set("Content-Type", contentType)

	rec := ts.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c capture.Capture
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func TestUploadCapture(t *testing.T) {
	ts := newTestServer(t)

	t.Run("upload registers a pending capture", func(t *testing.T) {
		c := uploadCapture(t, ts, "pro show")
		assert.Equal(t, capture.CaptureStatePending, c.State)
		assert.Equal(t, capture.VisibilityInactive, c.Visibility)
		assert.NotEmpty(t, c.OriginalPath)
		assert.NotEmpty(t, c.CompressedPath)
	})

	t.Run("anonymous callers receive an identity cookie", func(t *testing.T) {
		body, contentType := multipartUpload(t, "pro show")
		req := httptest.NewRequest(http.MethodPost, "/captures/", body)
		req.Header.Set("Content-Type", contentType)

		rec := ts.do(req)
		require.Equal(t, http.StatusCreated, rec.Code)

		cookies := rec.Result().Cookies()
		var found bool
		for _, c := range cookies {
			if c.Name == "gallery_id" {
				found = true
				assert.NotEmpty(t, c.Value)
			}
		}
		assert.True(t, found, "expected anonymous identity cookie")
	})

	t.Run("missing event name fails", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 10, 10))
		var imgBuf bytes.Buffer
		require.NoError(t, jpeg.Encode(&imgBuf, img, nil))

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("image", "shot.jpeg")
		_, _ = part.Write(imgBuf.Bytes())
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/captures/", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rec := ts.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestModerationRoutes(t *testing.T) {
	ts := newTestServer(t)
	c := uploadCapture(t, ts, "dance off")

	t.Run("anonymous callers cannot approve", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/captures/"+c.ID.String()+"/approve", nil)
		rec := ts.do(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("smc role cannot approve", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/captures/"+c.ID.String()+"/approve", nil)
		req.Header.Set("Authorization", "Bearer "+ts.adminToken(t, capture.RoleSMC))
		rec := ts.do(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin approves then activates", func(t *testing.T) {
		token := ts.adminToken(t, capture.RoleAdmin)

		req := httptest.NewRequest(http.MethodPost, "/captures/"+c.ID.String()+"/approve", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := ts.do(req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req = httptest.NewRequest(http.MethodPost, "/captures/"+c.ID.String()+"/visibility", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec = ts.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var got capture.Capture
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, capture.VisibilityActive, got.Visibility)
	})

	t.Run("second decision conflicts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/captures/"+c.ID.String()+"/reject", nil)
		req.Header.Set("Authorization", "Bearer "+ts.adminToken(t, capture.RoleAdmin))
		rec := ts.do(req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestLikeRoutes(t *testing.T) {
	ts := newTestServer(t)
	c := uploadCapture(t, ts, "pro night")

	cookie := &http.Cookie{Name: "gallery_id", Value: "viewer-token"}

	req := httptest.NewRequest(http.MethodPost, "/captures/"+c.ID.String()+"/like", nil)
	req.AddCookie(cookie)
	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res capture.LikeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.Total)

	// Same cookie toggles it back off
	req = httptest.NewRequest(http.MethodPost, "/captures/"+c.ID.String()+"/like", nil)
	req.AddCookie(cookie)
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.Total)
}

func (ts *testServer) publishCapture(t *testing.T, id uuid.UUID) {
	token := ts.adminToken(t, capture.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/captures/"+id.String()+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, ts.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/captures/"+id.String()+"/visibility", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, ts.do(req).Code)
}

func TestGetCaptureRoute(t *testing.T) {
	ts := newTestServer(t)
	c := uploadCapture(t, ts, "fashion walk")

	t.Run("unpublished captures are not publicly readable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/captures/"+c.ID.String(), nil)
		rec := ts.do(req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("moderators read unpublished captures", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/captures/"+c.ID.String(), nil)
		req.Header.Set("Authorization", "Bearer "+ts.adminToken(t, capture.RoleAdmin))
		rec := ts.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("published captures are public", func(t *testing.T) {
		ts.publishCapture(t, c.ID)

		req := httptest.NewRequest(http.MethodGet, "/captures/"+c.ID.String(), nil)
		rec := ts.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var got capture.Capture
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, c.ID, got.ID)
	})
}

func TestDownloadRoute(t *testing.T) {
	ts := newTestServer(t)
	c := uploadCapture(t, ts, "pro night")

	t.Run("unpublished captures cannot be downloaded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/captures/"+c.ID.String()+"/download", nil)
		rec := ts.do(req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("published captures resolve a download url", func(t *testing.T) {
		ts.publishCapture(t, c.ID)

		req := httptest.NewRequest(http.MethodGet, "/captures/"+c.ID.String()+"/download", nil)
		rec := ts.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["url"], c.OriginalPath)
	})
}

func TestRemovalRoutes(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]string{
		"name":        "A Visitor",
		"email":       "visitor@example.com",
		"description": "please remove this photo",
		"idcard_path": "idcards/visitor.jpeg",
		"asset_path":  "uploads/party.jpeg",
	}

	t.Run("submission succeeds anonymously", func(t *testing.T) {
		raw, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/removal-requests/", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := ts.do(req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("invalid email fails validation", func(t *testing.T) {
		bad := map[string]string{}
		for k, v := range payload {
			bad[k] = v
		}
		bad["email"] = "nope"
		raw, _ := json.Marshal(bad)
		req := httptest.NewRequest(http.MethodPost, "/removal-requests/", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := ts.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pending count is capability gated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/removal-requests/pending-count", nil)
		rec := ts.do(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/removal-requests/pending-count", nil)
		req.Header.Set("Authorization", "Bearer "+ts.adminToken(t, capture.RoleManager))
		rec = ts.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body["pending"])
	})
}

func TestEventRoutes(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t, capture.RoleManager)

	payload := map[string]string{
		"name":        "battle of bands",
		"description": "Live band showdown",
		"type":        "core",
		"day":         "day2",
	}
	raw, _ := json.Marshal(payload)

	t.Run("creation is capability gated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events/", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := ts.do(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("manager creates and fetches by hyphenated name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events/", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := ts.do(req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		req = httptest.NewRequest(http.MethodGet, "/events/battle-of-bands", nil)
		rec = ts.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var e capture.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
		assert.Equal(t, "battle of bands", e.Name)
	})
}
