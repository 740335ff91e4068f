/*
Copyright 2016 The sbctgt Authors All rights reserved.

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

import "github.com/spf13/cobra"

// NewCommand builds the root "sbctgt" command tree: serve opens every
// configured target's block device and blocks until interrupted, version
// prints the build version (spec §6 "CLI wiring").
func NewCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "sbctgt",
		Short: "sbctgt is a SCSI target core: CDB dispatch over single or striped block devices",
		Long:  ``,
	}
	cmd.AddCommand(
		newServeCommand(),
		newVersionCommand(),
	)
	return cmd
}
