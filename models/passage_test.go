package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPassage(t *testing.T) {
	p := NewPassage("  NSE opens at 9am \n", " site ", []float32{0.1, 0.2, 0.3})

	assert.Equal(t, "NSE opens at 9am", p.Content)
	assert.Equal(t, "site", p.Source)
	assert.Equal(t, 3, p.Dimensions())
	assert.Zero(t, p.ID)
	assert.True(t, p.CreatedAt.IsZero())
}

func TestPassage_TableName(t *testing.T) {
	p := Passage{}
	assert.Equal(t, "nse_knowledge", p.TableName())
}
