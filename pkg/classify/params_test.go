package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractParams(t *testing.T) {
	cases := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "list vms",
			text: "list all vms",
			want: map[string]string{"operation": "read"},
		},
		{
			name: "delete vm with id",
			text: "delete vm 101",
			want: map[string]string{"operation": "delete", "resource_id": "101"},
		},
		{
			name: "restart beats start",
			text: "restart vm 104 on node pve2",
			want: map[string]string{"operation": "restart", "resource_id": "104", "node": "pve2"},
		},
		{
			name: "bare id",
			text: "stop 4432",
			want: map[string]string{"operation": "stop", "resource_id": "4432"},
		},
		{
			name: "playbook",
			text: "run ansible playbook patch-kernel on node pve1",
			want: map[string]string{"operation": "start", "playbook": "patch-kernel", "node": "pve1"},
		},
		{
			name: "status filter",
			text: "list running containers",
			want: map[string]string{"operation": "read", "status_filter": "running"},
		},
		{
			name: "user",
			text: "delete user alice@pve",
			want: map[string]string{"operation": "delete", "user": "alice@pve"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractParams(tc.text)
			for k, v := range tc.want {
				assert.Equal(t, v, got[k], "param %s", k)
			}
		})
	}
}
