package security

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateRemoteURL(t *testing.T) {
	tests := []struct {
		url  string
		opts RemoteURLOptions
		ok   bool
	}{
		{url: "https://files.example.com/receipt.png", ok: true},
		{url: "http://files.example.com/receipt.png", ok: false},
		{url: "http://files.example.com/receipt.png", opts: RemoteURLOptions{AllowHTTP: true}, ok: true},
		{url: "ftp://files.example.com/receipt.png", opts: RemoteURLOptions{AllowHTTP: true}, ok: false},
		{url: "https:///receipt.png", ok: false},
		{url: "https://localhost/a", ok: false},
		{url: "https://printer.local/a", ok: false},
		{url: "https://127.0.0.1/a", ok: false},
		{url: "https://10.1.2.3/a", ok: false},
		{url: "https://[::ffff:192.168.1.1]/a", ok: false},
		{url: "https://[fe80::1%25eth0]/", ok: false},
		{url: "https://[fe80::1%25eth0]/", opts: RemoteURLOptions{AllowLocalNetworks: true}, ok: true},
		{url: "https://10.1.2.3/a", opts: RemoteURLOptions{AllowLocalNetworks: true}, ok: true},
		{url: "https://0.0.0.0/a", ok: false},
		{url: "https://93.184.216.34/a", ok: true},
	}
	for _, tt := range tests {
		err := ValidateRemoteURL(tt.url, tt.opts)
		if tt.ok {
			assert.NoError(t, err, tt.url)
			continue
		}
		assert.True(t, errors.Is(err, ErrDisallowedURL), tt.url)
	}
}
