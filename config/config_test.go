package config

import (
	"bytes"
	"os"
	"testing"

	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) {
	t.Helper()

	v.Reset()
	SetDefaults()
	v.Set("jwt.secret", "secret")
	v.Set("mail.sender_address", "support@example.com")
	v.Set("mail.api_key", "re_123")
	v.Set("gateway.base_url", "http://localhost:9000")

	t.Cleanup(v.Reset)
}

func TestDefaultsAreValid(t *testing.T) {
	validConfig(t)

	require.NoError(t, Validate())
	assert.Equal(t, 5, v.GetInt("coins.initial"))
	assert.Equal(t, "1h0m0s", v.GetDuration("reset.ttl").String())
	assert.Equal(t, "sqlite", v.GetString("db.type"))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"log level", "app.log_level", "verbose"},
		{"port", "host.port", 0},
		{"cors", "host.cors", []string{}},
		{"database", "db.type", "mongodb"},
		{"jwt secret", "jwt.secret", ""},
		{"negative coins", "coins.initial", -1},
		{"reset ttl", "reset.ttl", "0s"},
		{"sender", "mail.sender_address", ""},
		{"gateway url", "gateway.base_url", "not a url"},
		{"gateway timeout", "gateway.timeout", "0s"},
		{"workers", "gateway.workers", 0},
		{"upload size", "upload.max_size", 0},
		{"rate limit", "security.rate_limit", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validConfig(t)
			v.Set(tt.key, tt.value)

			assert.Error(t, Validate())
		})
	}
}

func TestValidateSSLNeedsCertificates(t *testing.T) {
	validConfig(t)
	v.Set("host.ssl.enabled", true)
	assert.Error(t, Validate())

	v.Set("host.ssl.certificate_path", "cert.pem")
	v.Set("host.ssl.certificate_key_path", "key.pem")
	assert.NoError(t, Validate())
}

func TestValidateStorageNeedsCredentials(t *testing.T) {
	validConfig(t)
	v.Set("storage.enabled", true)
	assert.Error(t, Validate())

	v.Set("storage.bucket", "sketches")
	v.Set("storage.access_key_id", "id")
	v.Set("storage.secret_access_key", "secret")
	assert.NoError(t, Validate())
}

func TestValidateWarnsWithoutMailKey(t *testing.T) {
	validConfig(t)
	v.Set("mail.api_key", "")

	var out bytes.Buffer
	warnOut = &out
	t.Cleanup(func() { warnOut = os.Stdout })

	require.NoError(t, Validate())
	assert.Contains(t, out.String(), "No mail.api_key specified")
}
