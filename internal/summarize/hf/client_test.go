package hf

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:   endpoint,
		APIToken:   "hf_testtoken",
		TextModel:  "sshleifer/distilbart-cnn-12-6",
		ImageModel: "Salesforce/blip-image-captioning-base",
		Timeout:    5 * time.Second,
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{TextModel: "a", ImageModel: "b"}, nil)
	require.Error(t, err)

	_, err = New(Config{Endpoint: "http://x", TextModel: "a"}, nil)
	require.Error(t, err)

	c, err := New(testConfig("http://x"), nil)
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestClient_Summarize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/models/sshleifer/distilbart-cnn-12-6", r.URL.Path)
		require.Equal(t, "Bearer hf_testtoken", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Inputs     string `json:"inputs"`
			Parameters struct {
				MaxLength int  `json:"max_length"`
				MinLength int  `json:"min_length"`
				DoSample  bool `json:"do_sample"`
			} `json:"parameters"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "long article text", req.Inputs)
		require.Equal(t, 150, req.Parameters.MaxLength)
		require.Equal(t, 40, req.Parameters.MinLength)
		require.False(t, req.Parameters.DoSample)

		_, _ = w.Write([]byte(`[{"summary_text":"a short summary"}]`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	summary, err := c.Summarize(context.Background(), "long article text")
	require.NoError(t, err)
	require.Equal(t, "a short summary", summary)
}

func TestClient_Caption(t *testing.T) {
	t.Parallel()

	image := []byte{0xff, 0xd8, 0xff, 0xe0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/Salesforce/blip-image-captioning-base", r.URL.Path)
		require.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, image, body)

		_, _ = w.Write([]byte(`[{"generated_text":"a red chart on a whiteboard"}]`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	caption, err := c.Caption(context.Background(), image)
	require.NoError(t, err)
	require.Equal(t, "a red chart on a whiteboard", caption)
}

func TestClient_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model is loading"}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	require.Contains(t, err.Error(), "model is loading")
}

func TestClient_EmptyResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), "text")
	require.Error(t, err)
	_, err = c.Caption(context.Background(), []byte("img"))
	require.Error(t, err)
}
