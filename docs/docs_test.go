package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerDocument_CoversRoutes(t *testing.T) {
	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)

	routes := map[string][]string{
		"/users":                                  {"get", "post"},
		"/users/{id}":                             {"get", "put", "delete"},
		"/trips":                                  {"get", "post"},
		"/trips/{id}":                             {"get", "put", "delete"},
		"/trips/{id}/participants":                {"get", "post"},
		"/trips/{id}/participants/{userId}":       {"put", "delete"},
		"/trips/{id}/join":                        {"post"},
		"/expenses":                               {"post"},
		"/expenses/validate":                      {"post"},
		"/expenses/{id}":                          {"get", "delete"},
		"/expenses/trip/{tripId}":                 {"get"},
		"/settlements/trips/{tripId}":             {"get"},
		"/settlements/trips/{tripId}/balances":    {"get"},
		"/settlements/trips/{tripId}/settlements": {"get"},
		"/settlements/trips/{tripId}/participants/{participantId}": {"get"},
		"/settlements/trips/{tripId}/stream":                       {"get"},
		"/notifications/trips/{tripId}":                            {"get"},
	}

	for path, methods := range routes {
		require.Contains(t, doc.Paths, path)
		for _, method := range methods {
			assert.Contains(t, doc.Paths[path], method, "%s %s", method, path)
		}
	}
	assert.Len(t, doc.Paths, len(routes))
}
