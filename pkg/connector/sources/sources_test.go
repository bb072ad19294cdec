package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/launchpad/pkg/connector/registry"
)

func TestRegister(t *testing.T) {
	r := registry.New()
	Register(r)

	assert.Equal(t, []string{
		"csv", "euro_csv", "avro_file", "arrow_file", "json_file", "text_file", "binary_file",
		"s3", "gcs",
		"dbms.sql", "dbms.postgres", "dbms.mysql", "dbms.sqlite", "dbms.snowflake",
		"dbms.mongodb",
	}, r.SourceTypes())
	assert.Empty(t, r.SinkTypes())
}
