package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabs_Synthesize(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/"+DefaultVoiceID, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &got))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	s := NewElevenLabs(Options{APIKey: "secret", BaseURL: srv.URL + "/"}, nil)
	audio, err := s.Synthesize(context.Background(), "Hello.")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-audio"), audio)

	assert.Equal(t, "Hello.", got.Text)
	assert.Equal(t, 0.4, got.VoiceSettings.Stability)
	assert.Equal(t, 0.8, got.VoiceSettings.SimilarityBoost)
}

func TestElevenLabs_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`)
	}))
	defer srv.Close()

	s := NewElevenLabs(Options{APIKey: "bad", BaseURL: srv.URL}, nil)
	_, err := s.Synthesize(context.Background(), "Hello.")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "Invalid API key", statusErr.Message)
}

func TestElevenLabs_EmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewElevenLabs(Options{BaseURL: srv.URL}, nil)
	_, err := s.Synthesize(context.Background(), "Hello.")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}
