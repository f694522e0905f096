package catalog

import (
	"testing"

	"mediadb/internal/schema"

	"github.com/stretchr/testify/require"
)

// Literal helpers matching what encoding/json produces
type (
	obj  = map[string]interface{}
	list = []interface{}
)

const payload = "data:image/png;base64,iVBORw0KGgo="

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Load()
	require.NoError(t, err)
	return s
}
