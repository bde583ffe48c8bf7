package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "path without IDs is unchanged",
			path: "/resumes/analyze",
			want: "/resumes/analyze",
		},
		{
			name: "single UUID is replaced",
			path: "/admin/subscriptions/0d04d9bb-7d4b-4f3e-b3c1-9a4dc24f0ab2/approve",
			want: "/admin/subscriptions/{id}/approve",
		},
		{
			name: "uppercase UUID is replaced",
			path: "/admin/subscriptions/0D04D9BB-7D4B-4F3E-B3C1-9A4DC24F0AB2/reject",
			want: "/admin/subscriptions/{id}/reject",
		},
		{
			name: "multiple UUIDs are replaced",
			path: "/a/0d04d9bb-7d4b-4f3e-b3c1-9a4dc24f0ab2/b/1c14e8cc-8e5c-4a2f-a4d2-0b5ed35f1bc3",
			want: "/a/{id}/b/{id}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}
