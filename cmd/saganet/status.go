package main

import (
	"fmt"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/xiaonanln/saganet/cmd/saganet/process"
)

const (
	apiServerExecutable = "apiserver"
	stopTimeout         = time.Second * 30
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List apiserver processes running on this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := process.FindByExecutable(apiServerExecutable)
		if err != nil {
			return errors.Wrap(err, "list processes")
		}
		showMsg("%d %s running", len(procs), apiServerExecutable)
		for _, proc := range procs {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", proc.Pid(), proc.Cmdline())
		}
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Gracefully stop the apiserver processes running on this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := process.FindByExecutable(apiServerExecutable)
		if err != nil {
			return errors.Wrap(err, "list processes")
		}
		if len(procs) == 0 {
			return errors.Errorf("no %s is running", apiServerExecutable)
		}
		for _, proc := range procs {
			if err := stopProc(proc, syscall.SIGTERM); err != nil {
				return err
			}
		}
		return nil
	},
}

func stopProc(proc process.Process, signal syscall.Signal) error {
	showMsg("stop process %s pid=%d", proc.Executable(), proc.Pid())
	if err := proc.Signal(signal); err != nil {
		return errors.Wrapf(err, "signal pid %d", proc.Pid())
	}

	deadline := time.Now().Add(stopTimeout)
	for proc.IsRunning() {
		if time.Now().After(deadline) {
			return errors.Errorf("pid %d still running after %s", proc.Pid(), stopTimeout)
		}
		time.Sleep(time.Millisecond * 100)
	}
	return nil
}
