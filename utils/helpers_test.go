package utils_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"agency-forms/utils"
)

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"jane.doe@example.com", "j***e@example.com"},
		{"ab@example.com", "ab@example.com"},
		{"a@b", "a@b"},
		{"not-an-email", "not-an-email"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utils.MaskEmail(tt.in), tt.in)
	}
}

func TestExtractDomain(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "example.com", utils.ExtractDomain("jane@example.com"))
	assert.Equal(t, "", utils.ExtractDomain("jane"))
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, utils.SplitList(" a@x.io, ,b@x.io,"))
	assert.Nil(t, utils.SplitList(""))
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "cloudflare", headers: map[string]string{"CF-Connecting-IP": "203.0.113.7"}, remote: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "10.0.0.1:1234", want: "198.51.100.2"},
		{name: "forwarded skips private", headers: map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.3"}, remote: "10.0.0.1:1234", want: "198.51.100.9"},
		{name: "remote addr", remote: "192.0.2.44:5555", want: "192.0.2.44"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, utils.GetClientIP(r))
		})
	}
}
