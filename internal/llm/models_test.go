package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestModelCatalog_List(t *testing.T) {
	srv := modelsServer(t, http.StatusOK, `{"object":"list","data":[{"id":"llama3.2:latest"},{"id":"qwen2.5-coder:7b"},{"id":""}]}`)
	cat := NewModelCatalog(srv.URL+"/v1/", "ollama", nil)

	ids, err := cat.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:latest", "qwen2.5-coder:7b"}, ids)
}

func TestModelCatalog_Check(t *testing.T) {
	srv := modelsServer(t, http.StatusOK, `{"data":[{"id":"llama3.2:latest"},{"id":"qwen2.5-coder:7b"}]}`)
	cat := NewModelCatalog(srv.URL+"/v1", "ollama", nil)

	available, err := cat.Check(context.Background(), "qwen2.5-coder:7b")
	require.NoError(t, err)
	assert.Len(t, available, 2)

	_, err = cat.Check(context.Background(), "llama3.2")
	require.NoError(t, err, "untagged name matches :latest")

	available, err = cat.Check(context.Background(), "mistral")
	require.Error(t, err)
	assert.Equal(t, ErrorModelUnavailable, KindOf(err))
	assert.Equal(t, []string{"llama3.2:latest", "qwen2.5-coder:7b"}, available)
}

func TestModelCatalog_BadStatus(t *testing.T) {
	srv := modelsServer(t, http.StatusInternalServerError, "boom")
	cat := NewModelCatalog(srv.URL+"/v1", "ollama", nil)

	_, err := cat.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrorTransport, KindOf(err))
	assert.Contains(t, err.Error(), "status 500")
}

func TestModelCatalog_BadJSON(t *testing.T) {
	srv := modelsServer(t, http.StatusOK, "not json")
	cat := NewModelCatalog(srv.URL+"/v1", "ollama", nil)

	_, err := cat.List(context.Background())
	assert.Equal(t, ErrorTransport, KindOf(err))
}

func TestModelCatalog_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cat := NewModelCatalog(url+"/v1", "", nil)
	_, err := cat.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrorUnreachable, KindOf(err))
}

func TestHasModel(t *testing.T) {
	available := []string{"llama3.2:latest", "phi3:mini"}
	assert.True(t, HasModel(available, "llama3.2"))
	assert.True(t, HasModel(available, "llama3.2:latest"))
	assert.True(t, HasModel(available, "phi3:mini"))
	assert.False(t, HasModel(available, "phi3"))
	assert.False(t, HasModel(available, "Llama3.2"))
	assert.False(t, HasModel(nil, "llama3.2"))
}
