package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetCurrentTime(t *testing.T) {
	assert.Equal(t, time.UTC, GetCurrentTime().Location())
}
