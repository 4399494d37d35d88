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

	"teleterm/session"

	"github.com/spf13/cobra"
)

const daemonCmdName = "__daemon"

var daemonCmdFile string

// daemonCmd is the re-exec entry point for "new"; it runs the session
// daemon in the foreground of the detached child process.
var daemonCmd = &cobra.Command{
	Use:    daemonCmdName + " <session name>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := session.NewSession(args[0])
		if err := s.Start(daemonCmdFile); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().StringVarP(&daemonCmdFile, "file", "f", "", "specify startup command file name")
}
