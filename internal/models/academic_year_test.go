package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSemesterValid(t *testing.T) {
	for _, s := range []Semester{"S1", "S2", "S3", "S4", "S5", "S6"} {
		assert.True(t, s.Valid(), string(s))
	}
	for _, s := range []Semester{"", "S0", "S7", "s1", "semester-1"} {
		assert.False(t, s.Valid(), string(s))
	}
}
