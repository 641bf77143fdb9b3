package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postingHTML = `<html>
<head><title>Job</title><style>.x{color:red}</style></head>
<body>
<nav>Home | Jobs | About</nav>
<div class="job-description">
  <h1>Senior   Go Engineer</h1>
  <p>We are looking for a senior Go engineer.</p>


  <p>You will build backend services.</p>
</div>
<footer>Copyright</footer>
<script>trackPageView()</script>
</body>
</html>`

func TestExtractText_PrefersJobContainer(t *testing.T) {
	text, err := ExtractText(postingHTML)
	require.NoError(t, err)

	assert.Contains(t, text, "Senior Go Engineer")
	assert.Contains(t, text, "senior Go engineer")
	assert.Contains(t, text, "backend services")
	assert.NotContains(t, text, "Home | Jobs")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "trackPageView")
}

func TestExtractText_FallsBackToBody(t *testing.T) {
	text, err := ExtractText(`<html><body><p>Plain posting text</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Plain posting text", text)
}

func TestJobDescription_FetchesAndCleans(t *testing.T) {
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(postingHTML))
	}))
	defer srv.Close()

	text, err := JobDescription(context.Background(), srv.URL, 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, text, "senior Go engineer")
	assert.Contains(t, gotUserAgent, "JD2Q")
}

func TestJobDescription_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := JobDescription(context.Background(), srv.URL, 5*time.Second)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "404")
}

func TestJobDescription_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><script>only()</script></body></html>`))
	}))
	defer srv.Close()

	_, err := JobDescription(context.Background(), srv.URL, 5*time.Second)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "no readable content")
}

func TestJobDescription_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "example.com/jobs/1"},
		{"empty", ""},
		{"garbage", "::::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JobDescription(context.Background(), tt.url, time.Second)
			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Contains(t, fetchErr.Message, "invalid URL")
		})
	}
}

func TestCleanWhitespace(t *testing.T) {
	input := "a   b\n\n\n\n\nc\t d  \n"
	assert.Equal(t, "a b\n\nc d", cleanWhitespace(input))
}
