package destinations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/launchpad/pkg/connector/registry"
)

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)

	for _, typ := range []string{"csv", "binary_file", "s3", "gcs", "dbms.postgres", "dbms.mongodb", "kafka"} {
		assert.True(t, r.HasSink(typ), typ)
	}
	assert.False(t, r.HasSource("kafka"))
}
