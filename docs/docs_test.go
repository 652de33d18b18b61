package docs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var routerAnnotation = regexp.MustCompile(`(?m)^// @Router\s+(\S+)\s+\[(\w+)\]`)

func TestEveryRouteIsDocumented(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	handlers, err := filepath.Glob("../internal/*/handler.go")
	require.NoError(t, err)
	require.NotEmpty(t, handlers)

	var routes int
	for _, file := range handlers {
		src, err := os.ReadFile(file)
		require.NoError(t, err)

		for _, m := range routerAnnotation.FindAllStringSubmatch(string(src), -1) {
			routes++
			path, method := m[1], strings.ToLower(m[2])
			_, ok := doc.Paths[path][method]
			assert.True(t, ok, "%s %s from %s is missing", method, path, filepath.Base(filepath.Dir(file)))
		}
	}

	var documented int
	for _, ops := range doc.Paths {
		documented += len(ops)
	}
	assert.Equal(t, routes, documented)
}

func TestSecurityDefinition(t *testing.T) {
	var doc struct {
		BasePath            string                     `json:"basePath"`
		SecurityDefinitions map[string]json.RawMessage `json:"securityDefinitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)
	assert.Contains(t, doc.SecurityDefinitions, "BearerAuth")
}
