/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"teleterm/session"
	"teleterm/xui"

	"github.com/spf13/cobra"
)

var isDetached bool
var cmdFile string

// newCmd represents the new command
var newCmd = &cobra.Command{
	Use:   "new <session name>",
	Short: "create a new session",
	Long:  `create a new teleterm session daemon`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]

		exe, err := os.Executable()
		if err != nil {
			fmt.Println(err)
			return
		}
		daemonArgs := []string{daemonCmdName, name}
		if cmdFile != "" {
			daemonArgs = append(daemonArgs, "--file", cmdFile)
		}
		child := exec.Command(exe, daemonArgs...)
		child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := child.Start(); err != nil {
			fmt.Println(err)
			return
		}

		sessionName := fmt.Sprintf("%d.%s", child.Process.Pid, name)
		child.Process.Release()

		if !waitForSocket(sessionName) {
			fmt.Println("session daemon did not start")
			return
		}

		if isDetached {
			fmt.Println("start session in detached mode")
			fmt.Println("Session name: ", sessionName)
			return
		}

		ui := xui.NewXUI()
		ui.Attach(sessionName)
	},
}

// waitForSocket polls for the daemon's socket file.
func waitForSocket(sessionName string) bool {
	homedir, err := session.SocketHomeDir()
	if err != nil {
		return false
	}
	fpath := filepath.Join(homedir, sessionName)

	for i := 0; i < 50; i++ {
		if _, err := os.Stat(fpath); err == nil {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().BoolVarP(&isDetached, "detach", "d", false, "create new session in detached status")
	newCmd.Flags().StringVarP(&cmdFile, "file", "f", "", "specify startup command file name")
}
