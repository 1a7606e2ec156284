package process

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

func TestProcesses(t *testing.T) {
	ps, err := Processes()
	if err != nil {
		t.Fatalf("list processes failed: %s", err)
	}

	pid := int32(os.Getpid())
	found := false
	for _, p := range ps {
		if p.Pid() == pid {
			found = true
			assert.T(t, p.IsRunning())
		}
	}
	assert.T(t, found)
}

func TestFindByExecutable(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skip(err)
	}
	name := strings.TrimSuffix(filepath.Base(exe), ".exe")
	ps, err := FindByExecutable(name)
	assert.Equal(t, nil, err)
	assert.NotEqual(t, 0, len(ps))

	ps, err = FindByExecutable("no-such-saganet-binary")
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(ps))
}
