package ui

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistFS(t *testing.T) {
	sub, err := DistFS()
	require.NoError(t, err)

	for _, name := range []string{"index.html", "app.js", "style.css"} {
		_, err := fs.Stat(sub, name)
		assert.NoError(t, err, name)
	}
}

func TestHandler(t *testing.T) {
	h, err := Handler()
	require.NoError(t, err)

	get := func(p string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		return rec
	}

	t.Run("index", func(t *testing.T) {
		rec := get("/")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<title>bugboard</title>")
	})

	t.Run("asset", func(t *testing.T) {
		rec := get("/app.js")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	})

	t.Run("client routes fall back to index", func(t *testing.T) {
		for _, p := range []string{"/board", "/dashboard", "/issues/12", "/issues/12/edit"} {
			rec := get(p)
			require.Equal(t, http.StatusOK, rec.Code, p)
			assert.Contains(t, rec.Body.String(), "<title>bugboard</title>", p)
		}
	})

	t.Run("missing asset", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get("/missing.css").Code)
	})
}
