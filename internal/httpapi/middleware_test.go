// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer abc", want: "abc"},
		{header: "  Bearer   abc  ", want: "abc"},
		{header: "", wantErr: true},
		{header: "Basic abc", wantErr: true},
		{header: "Bearer", wantErr: true},
		{header: "Bearer a b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := bearerToken(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOriginMatcher(t *testing.T) {
	m, err := newOriginMatcher([]string{"https://*.example.com", " http://localhost:5173 ", ""})
	require.NoError(t, err)

	assert.True(t, m.enabled())
	assert.True(t, m.allows("https://app.example.com"))
	assert.True(t, m.allows("http://localhost:5173"))
	assert.False(t, m.allows("https://example.org"))
	assert.False(t, m.allows("http://localhost:3000"))

	wildcard, err := newOriginMatcher([]string{"*"})
	require.NoError(t, err)
	assert.True(t, wildcard.allows("https://anything.test"))

	none, err := newOriginMatcher(nil)
	require.NoError(t, err)
	assert.False(t, none.enabled())

	_, err = newOriginMatcher([]string{"https://[a-"})
	assert.Error(t, err)
}
