package metric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProvider(t *testing.T) {
	p := NewProvider("localhost:4317", "concur-test", 30*time.Second)
	assert.NotNil(t, p)
	assert.Equal(t, "concur-test", p.serviceName)
	assert.Equal(t, "localhost:4317", p.exporterEndpoint)
	assert.Equal(t, 30*time.Second, p.exportFrequency)
	assert.Nil(t, p.metricProvider, "metricProvider is only built on Start")
}
