// Package process finds SagaNet processes running on this host.
package process

import (
	"path/filepath"
	"strings"
	"syscall"

	psutil_process "github.com/shirou/gopsutil/process"
	"github.com/xiaonanln/saganet/engine/gwlog"
)

// Process is a running process
type Process interface {
	Pid() int32
	Executable() string
	Cmdline() string
	Signal(sig syscall.Signal) error
	IsRunning() bool
}

type process struct {
	*psutil_process.Process
}

func (p process) Pid() int32 {
	return p.Process.Pid
}

func (p process) Executable() string {
	name, _ := p.Process.Name()
	return name
}

func (p process) Cmdline() string {
	cmdline, _ := p.Process.Cmdline()
	return cmdline
}

func (p process) IsRunning() bool {
	running, err := p.Process.IsRunning()
	return err == nil && running
}

// Processes lists all processes of the host
func Processes() ([]Process, error) {
	ps, err := psutil_process.Processes()
	if err != nil {
		return nil, err
	}

	procs := make([]Process, 0, len(ps))
	for _, p := range ps {
		procs = append(procs, process{p})
	}
	return procs, nil
}

// FindByExecutable lists the processes whose executable base name is name, with or without .exe
func FindByExecutable(name string) ([]Process, error) {
	procs, err := Processes()
	if err != nil {
		return nil, err
	}

	var found []Process
	for _, p := range procs {
		exe := strings.TrimSuffix(filepath.Base(p.Executable()), ".exe")
		if exe == name {
			found = append(found, p)
		}
	}
	gwlog.Debugf("process: %d of %d processes are %s", len(found), len(procs), name)
	return found, nil
}
