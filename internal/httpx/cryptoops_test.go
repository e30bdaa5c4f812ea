package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorales/pgpvault/internal/domain"
)

func postJSON(t *testing.T, svc *mockService, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, req)
	return rr
}

func TestEncryptSuccess(t *testing.T) {
	svc := &mockService{
		encryptFn: func(_ context.Context, filename string, recipients []string, armored bool) (string, int64, error) {
			assert.Equal(t, "report.txt", filename)
			assert.Equal(t, []string{"abc123"}, recipients)
			assert.True(t, armored)
			return "report_encrypted.txt.gpg", 42, nil
		},
	}
	rr := postJSON(t, svc, "/api/encrypt", `{"filename":"report.txt","recipients":["abc123"]}`)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "report_encrypted.txt.gpg", body["encrypted_filename"])
}

func TestEncryptBinaryOutput(t *testing.T) {
	svc := &mockService{
		encryptFn: func(_ context.Context, _ string, _ []string, armored bool) (string, int64, error) {
			assert.False(t, armored)
			return "report_encrypted.txt.gpg", 42, nil
		},
	}
	rr := postJSON(t, svc, "/api/encrypt", `{"filename":"report.txt","recipients":["abc123"],"armor":false}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEncryptRequiresFilename(t *testing.T) {
	rr := postJSON(t, &mockService{}, "/api/encrypt", `{"recipients":["abc"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEncryptNoRecipients(t *testing.T) {
	svc := &mockService{
		encryptFn: func(context.Context, string, []string, bool) (string, int64, error) {
			return "", 0, domain.ErrNoRecipients
		},
	}
	rr := postJSON(t, svc, "/api/encrypt", `{"filename":"report.txt","recipients":[]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["message"], "recipient")
}

func TestEncryptUnknownRecipient(t *testing.T) {
	svc := &mockService{
		encryptFn: func(context.Context, string, []string, bool) (string, int64, error) {
			return "", 0, domain.ErrKeyNotFound
		},
	}
	rr := postJSON(t, svc, "/api/encrypt", `{"filename":"report.txt","recipients":["nope"]}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDecryptSuccess(t *testing.T) {
	svc := &mockService{
		decryptFn: func(_ context.Context, filename, passphrase string) (string, int64, error) {
			assert.Equal(t, "report_encrypted.txt.gpg", filename)
			assert.Equal(t, "hunter2", passphrase)
			return "report_decrypted.txt", 11, nil
		},
	}
	rr := postJSON(t, svc, "/api/decrypt", `{"filename":"report_encrypted.txt.gpg","passphrase":"hunter2"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "report_decrypted.txt", decodeBody(t, rr)["decrypted_filename"])
}

func TestDecryptEngineFailureSurfacesStatus(t *testing.T) {
	svc := &mockService{
		decryptFn: func(context.Context, string, string) (string, int64, error) {
			return "", 0, domain.Enginef("decryption failed: no private key available")
		},
	}
	rr := postJSON(t, svc, "/api/decrypt", `{"filename":"x.gpg"}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "decryption failed: no private key available", decodeBody(t, rr)["message"])
}

func TestDecryptInvalidBody(t *testing.T) {
	rr := postJSON(t, &mockService{}, "/api/decrypt", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
