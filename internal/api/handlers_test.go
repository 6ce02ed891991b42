package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai_app_server/internal/ai"
	"ai_app_server/internal/auth"
	"ai_app_server/internal/preview"
	"ai_app_server/internal/recorder"
	"ai_app_server/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret"

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Insert(ctx context.Context, collection, id string, doc any) error {
	return m.Called(ctx, collection, id, doc).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                   { return nil }

type testEnv struct {
	router    *gin.Engine
	generator *mockGenerator
	store     *mockStore
	limited   int // generation middleware hits
}

func newTestEnv(t *testing.T, extractor string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{generator: new(mockGenerator), store: new(mockStore)}
	verifier, err := auth.NewVerifier(testSecret, nil)
	require.NoError(t, err)

	h := NewAPIHandler(
		env.generator,
		"gemini",
		recorder.New(env.store, nil),
		preview.NewSandboxRenderer(""),
		extractor,
		1<<20,
		env.store,
		nil,
	)

	env.router = gin.New()
	RegisterRoutes(env.router, h, auth.Middleware(verifier), func(c *gin.Context) {
		env.limited++
		c.Next()
	})
	return env
}

func sessionToken(t *testing.T, email string) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, "user-1", email, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *testEnv) postJSON(path string, body any, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGenerate(t *testing.T) {
	t.Run("returns generated text", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, "hello").Return("world", nil).Once()

		w := env.postJSON("/api/gemini", gin.H{"prompt": "hello"}, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "world", decode[GenerateResponse](t, w).Result)
		assert.Equal(t, 1, env.limited)
		env.generator.AssertExpectations(t)
	})

	t.Run("empty result is still 200", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, "hello").Return("", nil).Once()

		w := env.postJSON("/api/gemini", gin.H{"prompt": "hello"}, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"result":""}`, w.Body.String())
	})

	t.Run("missing prompt", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, "").Return("", ai.ErrEmptyPrompt).Once()

		w := env.postJSON("/api/gemini", gin.H{}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Prompt is required"}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/gemini", "{not json", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("upstream error message is forwarded", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, "hello").
			Return("", &ai.UpstreamError{StatusCode: 429, Message: "Quota exceeded"}).Once()

		w := env.postJSON("/api/gemini", gin.H{"prompt": "hello"}, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Quota exceeded"}`, w.Body.String())
	})

	t.Run("transport error is generic", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, "hello").Return("", errors.New("dial tcp: refused")).Once()

		w := env.postJSON("/api/gemini", gin.H{"prompt": "hello"}, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "refused")
	})
}

func TestGenerateApp(t *testing.T) {
	const generated = "import React from 'react';\nexport default function App(){ return <div>0</div>; }"

	t.Run("compose, generate, record, preview", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
			return strings.HasPrefix(p, "Generate a Web App using React.") && strings.Contains(p, "User Prompt: a counter")
		})).Return(generated, nil).Once()

		var stored *types.GeneratedAppRecord
		env.store.On("Insert", mock.Anything, recorder.Collection, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { stored = args.Get(3).(*types.GeneratedAppRecord) }).
			Return(nil).Once()

		w := env.postJSON("/api/apps", gin.H{"prompt": "a counter", "appType": "Web App", "framework": "React"},
			sessionToken(t, "dev@example.test"))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[AppResponse](t, w)
		assert.Equal(t, generated, resp.Result)
		assert.Empty(t, resp.PersistError)
		require.NotNil(t, resp.Record)
		require.NotNil(t, stored)
		assert.Equal(t, generated, stored.Result)
		assert.Equal(t, "a counter", stored.Prompt)
		assert.Equal(t, "dev@example.test", stored.UserID)
		assert.Equal(t, stored.ID, resp.Record.ID)

		w = env.postJSON("/api/preview", gin.H{"code": stored.Result, "framework": "React"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		pr := decode[PreviewResponse](t, w)
		assert.True(t, strings.HasPrefix(pr.Fragment, "function App()"), pr.Fragment)
		assert.True(t, strings.HasSuffix(pr.Fragment, "render(<App />);"))
		assert.Equal(t, "jsx", pr.Language)
	})

	t.Run("no session reports persistError", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, mock.Anything).Return(generated, nil).Once()

		w := env.postJSON("/api/apps", gin.H{"prompt": "a counter", "appType": "Web App", "framework": "React"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[AppResponse](t, w)
		assert.Equal(t, generated, resp.Result)
		assert.Nil(t, resp.Record)
		assert.Equal(t, recorder.ErrUnauthorized.Error(), resp.PersistError)
		env.store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure does not fail the request", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.generator.On("Generate", mock.Anything, mock.Anything).Return(generated, nil).Once()
		env.store.On("Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		w := env.postJSON("/api/apps", gin.H{"prompt": "a counter", "appType": "Web App", "framework": "React"},
			sessionToken(t, "dev@example.test"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode[AppResponse](t, w).PersistError, "failed to store generated app")
	})

	t.Run("unknown framework", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/apps", gin.H{"prompt": "x", "appType": "Web App", "framework": "Svelte"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("unknown app type", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/apps", gin.H{"prompt": "x", "appType": "CLI", "framework": "React"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSaveProject(t *testing.T) {
	body := gin.H{"prompt": "p", "appType": "Web App", "framework": "React", "result": "function App(){}"}

	t.Run("created", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.store.On("Insert", mock.Anything, recorder.Collection, mock.Anything, mock.Anything).Return(nil).Once()

		w := env.postJSON("/api/projects", body, sessionToken(t, "dev@example.test"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		rec := decode[types.GeneratedAppRecord](t, w)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "dev@example.test", rec.UserID)
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("session without email", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.store.On("Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		w := env.postJSON("/api/projects", body, sessionToken(t, ""))
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, recorder.AnonymousUserID, decode[types.GeneratedAppRecord](t, w).UserID)
	})

	t.Run("no session", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/projects", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	})

	t.Run("bad token", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/projects", body, "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing result", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/projects", gin.H{"prompt": "p", "appType": "Web App", "framework": "React"},
			sessionToken(t, "dev@example.test"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"result is required"}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/projects", "[", sessionToken(t, "dev@example.test"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.store.On("Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		w := env.postJSON("/api/projects", body, sessionToken(t, "dev@example.test"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "disk full")
	})

	t.Run("not rate limited", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.postJSON("/api/projects", body, "")
		assert.Zero(t, env.limited)
	})
}

func TestPreviewRoutes(t *testing.T) {
	code := "```jsx\nexport default function App() {\n  return <p>{`hi`}</p>;\n}\n```\nEnjoy!"

	t.Run("scan extractor drops trailing prose", func(t *testing.T) {
		env := newTestEnv(t, "scan")
		w := env.postJSON("/api/preview", gin.H{"code": code}, "")
		require.Equal(t, http.StatusOK, w.Code)
		pr := decode[PreviewResponse](t, w)
		assert.NotContains(t, pr.Fragment, "Enjoy!")
		assert.True(t, strings.HasSuffix(pr.Fragment, "render(<App />);"))
	})

	t.Run("code is required", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/preview", gin.H{"code": ""}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("html page", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/preview", gin.H{"code": "function App(){ return null }"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `sandbox="allow-scripts"`)
	})

	t.Run("html page for flutter", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/preview", gin.H{"code": "void main() {}", "framework": "Flutter"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "dart")
	})
}

func TestArchive(t *testing.T) {
	t.Run("zip download", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/archive", gin.H{"code": "function App(){}", "framework": "Vue"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="generated-app.zip"`, w.Header().Get("Content-Disposition"))

		zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
		require.NoError(t, err)
		require.Len(t, zr.File, 1)
		assert.Equal(t, "App.vue", zr.File[0].Name)

		rc, err := zr.File[0].Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "function App(){}", string(content))
	})

	t.Run("empty code", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := env.postJSON("/api/archive", gin.H{"code": ""}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInspectDesign(t *testing.T) {
	upload := func(env *testEnv, field, filename string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile(field, filename)
		_, _ = fw.Write(data)
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/design", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	t.Run("png", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := upload(env, "designFile", "home.png", png)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode[map[string]any](t, w)
		assert.Equal(t, "image/png", body["contentType"])
		assert.Contains(t, body["previewUrl"], "data:image/png;base64,")
	})

	t.Run("unsupported", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := upload(env, "designFile", "home.svg", []byte("<svg/>"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong field", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		w := upload(env, "file", "home.png", png)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"designFile is required"}`, w.Body.String())
	})
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.store.On("Ping", mock.Anything).Return(nil).Once()

		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("store down", func(t *testing.T) {
		env := newTestEnv(t, "regex")
		env.store.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
