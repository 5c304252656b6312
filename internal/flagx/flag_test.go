package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-c", "-config"}
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"short flag with separate value", []string{"-c", "client.json", "-a", ":3200"}, []string{"-c", "client.json"}},
		{"long flag with equals", []string{"-config=client.json", "-sync-interval", "1m"}, []string{"-config=client.json"}},
		{"order preserved", []string{"-config=a.json", "-c", "b.json"}, []string{"-config=a.json", "-c", "b.json"}},
		{"unknown flags ignored", []string{"-a", ":3200", "positional"}, []string{}},
		{"trailing flag without value", []string{"-c"}, []string{"-c"}},
		{"flag followed by another flag", []string{"-c", "-db"}, []string{"-c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "client.json", ConfigPath([]string{"-a", ":3200", "-c", "client.json"}))
	assert.Equal(t, "server.json", ConfigPath([]string{"-config=server.json"}))
	assert.Equal(t, "", ConfigPath([]string{"-a", ":3200"}))
}

func TestJsonConfigFlags_ReadsOSArgs(t *testing.T) {
	prev := os.Args
	t.Cleanup(func() { os.Args = prev })

	os.Args = []string{"feedkeeper", "-c", "from-os.json"}
	assert.Equal(t, "from-os.json", JsonConfigFlags())
}
