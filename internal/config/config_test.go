package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "pos")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DBNAME", "cafe")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, "9090", cfg.GrpcServer.Port)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"admin@cafe.local"}, cfg.Auth.AdminEmails)
	assert.Equal(t, []string{"Drinks", "Bakery", "Desserts"}, cfg.POS.DefaultCategories)
	assert.False(t, cfg.Firebase.Enabled())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "host=db port=5432 user=pos password=secret dbname=cafe sslmode=disable", cfg.Postgres.DSN())
}

func TestLoad_NormalisesAdminEmails(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_EMAILS", " Owner@Cafe.test ,barista@cafe.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@cafe.test", "barista@cafe.test"}, cfg.Auth.AdminEmails)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Cloudinary(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Cloudinary.Enabled())
	assert.Equal(t, "https://api.cloudinary.com", cfg.Cloudinary.APIURL)
	assert.Equal(t, "ml_default", cfg.Cloudinary.UploadPreset)

	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Cloudinary.Enabled())
}
