package main

import (
	"testing"

	"inkd/docs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
paths:
  /feed:
    get:
      responses:
        200: {description: OK}
        500: {description: Internal Server Error}
  /appointments:
    get:
      responses:
        "200": {description: OK}
    post:
      responses:
        "201": {description: Created}
    parameters: []
`

func TestParseSurface(t *testing.T) {
	s, err := parseSurface([]byte(baseYAML))
	require.NoError(t, err)
	assert.Len(t, s, 2)
	assert.Contains(t, s["/feed"]["get"], "500")
	assert.NotContains(t, s["/appointments"], "parameters")

	_, err = parseSurface([]byte("info: {title: x}\n"))
	assert.Error(t, err)
}

func TestCompareSurfaces(t *testing.T) {
	base, err := parseSurface([]byte(baseYAML))
	require.NoError(t, err)

	rev, err := parseSurface([]byte(`
paths:
  /feed:
    get:
      responses:
        "200": {description: OK}
  /appointments:
    get:
      responses:
        "200": {description: OK}
  /local:
    get:
      responses:
        "200": {description: OK}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"removed operation: POST /appointments",
		"removed response code: GET /feed -> 500",
	}, compareSurfaces(base, rev))
	assert.Empty(t, compareSurfaces(rev, rev))
}

func TestGeneratedDocsAreComparable(t *testing.T) {
	s, err := parseSurface([]byte(docs.SwaggerInfo.ReadDoc()))
	require.NoError(t, err)
	assert.Contains(t, s, "/local/artists")
	assert.Contains(t, s["/appointments/{id}/status"], "put")
	assert.Empty(t, compareSurfaces(s, s))
}
