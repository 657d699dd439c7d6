package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "campus_accounts", cfg.AccountsDB.Name)
	assert.Equal(t, "campus_academic", cfg.AcademicDB.Name)
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 8*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.AutoMigrate)
}

func TestFromViperRejectsNonPositiveMaxAttempts(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("LOCKOUT_MAX_ATTEMPTS", 0)
	v.Set("JWT_EXPIRATION", "not-a-duration")

	cfg := fromViper(v)
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 8*time.Hour, cfg.JWT.Expiration)
}

func TestFromViperSplitsCORSOrigins(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	assert.Empty(t, fromViper(v).CORS.AllowedOrigins)

	v.Set("CORS_ALLOWED_ORIGINS", " http://localhost:5173 , ,app://records")
	assert.Equal(t, []string{"http://localhost:5173", "app://records"}, fromViper(v).CORS.AllowedOrigins)
}
