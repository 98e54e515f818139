package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermitted(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		allowPrivate bool
		want         bool
	}{
		{
			name: "package extension",
			url:  "https://example.com/files/tool.unitypackage",
			want: true,
		},
		{
			name: "zip extension",
			url:  "https://example.com/files/tool.zip",
			want: true,
		},
		{
			name: "tarball extension",
			url:  "https://example.com/files/tool.tar.gz",
			want: true,
		},
		{
			name: "extension in query",
			url:  "https://example.com/fetch?file=tool.zip",
			want: true,
		},
		{
			name: "github release asset",
			url:  "https://github.com/owner/repo/releases/download/v1.0/tool.unitypackage",
			want: true,
		},
		{
			name: "gitlab release page",
			url:  "https://gitlab.com/owner/repo/-/releases/v1.0",
			want: true,
		},
		{
			name: "attachment marker",
			url:  "https://forum.example.com/attachments/1234",
			want: true,
		},
		{
			name: "download marker",
			url:  "https://example.com/download?id=7",
			want: true,
		},
		{
			name: "plain html page",
			url:  "https://example.com/about.html",
			want: false,
		},
		{
			name: "relative url",
			url:  "/releases/tool.zip",
			want: false,
		},
		{
			name: "unparsable",
			url:  "://bad",
			want: false,
		},
		{
			name: "ftp scheme",
			url:  "ftp://example.com/tool.zip",
			want: false,
		},
		{
			name: "file scheme",
			url:  "file:///etc/passwd",
			want: false,
		},
		{
			name: "localhost denied",
			url:  "http://localhost/releases/tool.zip",
			want: false,
		},
		{
			name: "loopback ip denied",
			url:  "http://127.0.0.1/releases/tool.zip",
			want: false,
		},
		{
			name: "ten range denied",
			url:  "http://10.1.2.3/tool.zip",
			want: false,
		},
		{
			name: "one seventy two range denied",
			url:  "http://172.20.0.1/tool.zip",
			want: false,
		},
		{
			name: "one ninety two range denied",
			url:  "http://192.168.1.50/tool.zip",
			want: false,
		},
		{
			name: "public 172 address outside /12",
			url:  "http://172.15.0.1/tool.zip",
			want: true,
		},
		{
			name:         "localhost allowed in dev mode",
			url:          "http://localhost:8080/releases/tool.zip",
			allowPrivate: true,
			want:         true,
		},
		{
			name:         "private range allowed in dev mode",
			url:          "http://192.168.1.50/tool.zip",
			allowPrivate: true,
			want:         true,
		},
		{
			name:         "dev mode still requires known path shape",
			url:          "http://192.168.1.50/admin",
			allowPrivate: true,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Permitted(tt.url, tt.allowPrivate))
		})
	}
}

// Denied schemes and private hosts are rejected regardless of how
// download-like the path looks.
func TestPermitted_PathNeverOverridesHostRules(t *testing.T) {
	paths := []string{
		"/releases/download/v1/tool.unitypackage",
		"/attachments/tool.zip",
		"/download/tool.tar.gz",
	}

	for _, p := range paths {
		assert.False(t, Permitted("ftp://example.com"+p, false), p)
		assert.False(t, Permitted("http://10.0.0.5"+p, false), p)
		assert.False(t, Permitted("http://localhost"+p, false), p)
	}
}
