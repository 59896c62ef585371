package httpapi_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"chat-relay/repositories"
	"chat-relay/services"
	"chat-relay/transport/httpapi"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	authService := services.NewAuthService(repositories.NewUserRepository(db), time.Hour)
	wsStub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	return httpapi.NewRouter(slog.New(slog.DiscardHandler), authService, wsStub)
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestRouter_Signup_Login_Verify(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	signup := map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "ComplexPass123!",
	}

	// Signup issues a session right away
	recorder := postJSON(t, router, "/api/auth/signup", signup)
	req.Equal(http.StatusCreated, recorder.Code)

	var created struct {
		Token string `json:"token"`
		User  struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &created))
	req.NotEmpty(created.Token)
	req.Equal("alice", created.User.Username)

	// The same email cannot sign up twice
	recorder = postJSON(t, router, "/api/auth/signup", signup)
	req.Equal(http.StatusConflict, recorder.Code)

	// Login with the right password succeeds
	recorder = postJSON(t, router, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "ComplexPass123!",
	})
	req.Equal(http.StatusOK, recorder.Code)

	// And with the wrong one stays a generic 401
	recorder = postJSON(t, router, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPass123456!",
	})
	req.Equal(http.StatusUnauthorized, recorder.Code)

	// The issued token passes verification
	request := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	request.Header.Set("Authorization", "Bearer "+created.Token)
	verifyRecorder := httptest.NewRecorder()
	router.ServeHTTP(verifyRecorder, request)
	req.Equal(http.StatusOK, verifyRecorder.Code)

	// /me echoes the identity baked into the token
	request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	request.Header.Set("Authorization", "Bearer "+created.Token)
	meRecorder := httptest.NewRecorder()
	router.ServeHTTP(meRecorder, request)
	req.Equal(http.StatusOK, meRecorder.Code)
	req.Contains(meRecorder.Body.String(), created.User.ID)
}

func TestRouter_Signup_Weak_Password(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	recorder := postJSON(t, router, "/api/auth/signup", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "short",
	})

	req.Equal(http.StatusBadRequest, recorder.Code)
}

func TestRouter_Protected_Route_Without_Token(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	request := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	req.Equal(http.StatusUnauthorized, recorder.Code)
}
