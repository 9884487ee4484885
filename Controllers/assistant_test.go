package Controllers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TeleCare/Gemini"
	"TeleCare/Models"
)

func TestAsk(t *testing.T) {
	h := newHarness(t, fakeGenerator{reply: "  Rest and drink fluids.\n"})

	w := h.do(t, http.MethodPost, "/api/protected/assistant", patientToken, gin.H{"message": "I have a cold"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rest and drink fluids.", decode[map[string]string](t, w)["reply"])

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/protected/assistant", patientToken, gin.H{"message": " "}).Code)
}

func TestAskFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not configured", fmt.Errorf("gemini: %w", Models.ErrNotConfigured), http.StatusServiceUnavailable},
		{"breaker open", fmt.Errorf("%w: circuit breaker is open", Gemini.ErrUnavailable), http.StatusServiceUnavailable},
		{"upstream error", &Gemini.APIError{StatusCode: 500, Message: "boom"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, fakeGenerator{err: tt.err})
			w := h.do(t, http.MethodPost, "/api/protected/assistant", patientToken, gin.H{"message": "hello"})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAssistantPromptKeepsRecentHistory(t *testing.T) {
	history := make([]assistantTurn, 0, 12)
	for i := 0; i < 12; i++ {
		history = append(history, assistantTurn{Role: "user", Text: fmt.Sprintf("turn %d", i)})
	}
	history = append(history, assistantTurn{Role: "model", Text: "earlier answer"})

	prompt := assistantPrompt(Models.Session{UID: "p1", Role: Models.RolePatient}, assistantInput{Message: "and now?", History: history})
	assert.NotContains(t, prompt, "turn 2\n")
	assert.Contains(t, prompt, "User: turn 11")
	assert.Contains(t, prompt, "Assistant: earlier answer")
	assert.True(t, strings.HasSuffix(prompt, "User (patient): and now?\nAssistant:"))
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/protected/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+patientToken)
	return req
}

func TestUploadImage(t *testing.T) {
	h := newHarness(t, nil)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, uploadRequest(t, "scan.png", png))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://img.example/scan.png", decode[map[string]string](t, w)["url"])

	w = httptest.NewRecorder()
	h.router.ServeHTTP(w, uploadRequest(t, "notes.txt", []byte("plain text")))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = httptest.NewRecorder()
	h.router.ServeHTTP(w, uploadRequest(t, "huge.png", append(png, make([]byte, 1<<20)...)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Equal(t, []string{"scan.png"}, h.uploader.uploaded)
}

func TestWhatsappAdmin(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/protected/admin/whatsapp/status", doctorToken, nil).Code)

	w := h.do(t, http.MethodGet, "/api/protected/admin/whatsapp/status", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"loggedIn": true}, decode[map[string]bool](t, w))

	w = h.do(t, http.MethodGet, "/api/protected/admin/whatsapp/qr", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}
