package links

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<a href="/relative">rel</a>
		<a href="https://other.com/page">abs</a>
		<a href="sub/page.html">sub</a>
		<a href="mailto:someone@example.com">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="#fragment">frag</a>
		<a href="">empty</a>
		<a href="/relative">dup</a>
		<p>no anchor</p>
	</body></html>`)

	got, err := New().Extract(body, "https://example.com/dir/index.html")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/relative",
		"https://other.com/page",
		"https://example.com/dir/sub/page.html",
		"https://example.com/dir/index.html#fragment",
	}, got)
}

func TestExtractEmptyBody(t *testing.T) {
	t.Parallel()

	got, err := New().Extract(nil, "https://example.com")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestExtractBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New().Extract([]byte(`<a href="/x">x</a>`), "https://%zz invalid")
	require.Error(t, err)
}
