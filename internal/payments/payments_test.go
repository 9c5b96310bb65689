package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1000), MinorUnits(10))
	assert.Equal(t, int64(1), MinorUnits(0.01))
	assert.Equal(t, int64(0), MinorUnits(0))

	// Float representation must not shave a cent off.
	assert.Equal(t, int64(1999), MinorUnits(19.99))
	assert.Equal(t, int64(10), MinorUnits(0.1))
	assert.Equal(t, int64(29), MinorUnits(0.29))
	assert.Equal(t, int64(570), MinorUnits(5.70))
}
