package transcriber

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/callqa/callqa/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	cl, err := NewClient("http://olia.lt")
	assert.Nil(t, err)
	assert.NotNil(t, cl)
}

func TestNewClient_Fail(t *testing.T) {
	_, err := NewClient("")
	assert.NotNil(t, err)
}

func TestTranscribe(t *testing.T) {
	var gotReq transcribeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"transcription":"hello, how can I help"}`))
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	res, err := cl.Transcribe(test.Ctx(t), "http://minio/call.mp3")

	require.Nil(t, err)
	assert.Equal(t, "hello, how can I help", res)
	assert.Equal(t, "http://minio/call.mp3", gotReq.AudioURL)
}

func TestTranscribe_NoURL(t *testing.T) {
	cl, err := NewClient("http://olia.lt")
	require.Nil(t, err)
	_, err = cl.Transcribe(test.Ctx(t), "")
	assert.NotNil(t, err)
}

func TestTranscribe_FailCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "olia err", http.StatusInternalServerError)
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	_, err = cl.Transcribe(test.Ctx(t), "http://minio/call.mp3")

	assert.NotNil(t, err)
}

func TestTranscribe_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transcription":""}`))
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	_, err = cl.Transcribe(test.Ctx(t), "http://minio/call.mp3")

	assert.NotNil(t, err)
}

func TestTranscribe_WrongJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`olia`))
	}))
	defer srv.Close()
	cl, err := NewClient(srv.URL)
	require.Nil(t, err)

	_, err = cl.Transcribe(test.Ctx(t), "http://minio/call.mp3")

	assert.NotNil(t, err)
}
