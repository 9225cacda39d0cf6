package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_defaults(t *testing.T) {
	conf := NewConfig()

	assert.Equal(t, ":8000", conf.Server.Addr)
	assert.Equal(t, "teacherdir.db", conf.Database.Path)
	assert.Equal(t, 10*time.Second, conf.Upstream.Timeout)
	assert.Equal(t, 24*time.Hour, conf.Directory.TTL)
	assert.Equal(t, 0.6, conf.Directory.SimilarityThreshold)
	assert.NotEmpty(t, conf.Directory.RefreshCronSpec)
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Tim Chen", CleanString("  Tim Chen\n"))
	assert.Equal(t, "tim chen", CleanString("  Tim Chen ", true))
	assert.Equal(t, "", CleanString("   "))
}
