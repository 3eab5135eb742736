/*
Copyright © 2024 - 2026 Firmware Tools Authors

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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/firmware-tools/hwcontext/pkg/config"
	"github.com/firmware-tools/hwcontext/pkg/hwcontext"
)

func newContext(cmd *cobra.Command) (*hwcontext.Context, error) {
	cfg, err := config.ReadConfig(viper.GetString("config-dir"))
	if err != nil {
		return nil, err
	}
	cmd.SilenceUsage = true
	return config.NewContext(cfg), nil
}

func NewEspCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "esp",
		Short: "EFI system partition operations",
	}

	list := &cobra.Command{
		Use:   "list",
		Args:  cobra.ExactArgs(0),
		Short: "List the ESP candidates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := newContext(cmd)
			if err != nil {
				return err
			}
			volumes, err := ctx.EspVolumes()
			if err != nil {
				return err
			}
			for _, vol := range volumes {
				fmt.Printf("%s\t%s\t%s\t%d\n", vol.Path, vol.PartitionKind, vol.PartitionUUID, vol.SizeBytes)
			}
			return nil
		},
	}

	def := &cobra.Command{
		Use:   "default",
		Args:  cobra.ExactArgs(0),
		Short: "Show the ESP firmware updates would be written to",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return CheckRoot()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := newContext(cmd)
			if err != nil {
				return err
			}
			vol, err := ctx.DefaultEsp()
			if err != nil {
				return err
			}
			fmt.Println(vol.Path)
			return nil
		},
	}

	files := &cobra.Command{
		Use:   "files",
		Args:  cobra.ExactArgs(0),
		Short: "List the PE images referenced by the boot chain",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return CheckRoot()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := newContext(cmd)
			if err != nil {
				return err
			}
			flags := hwcontext.IncludeFirstStage
			if viper.GetBool("second-stage") {
				flags |= hwcontext.IncludeSecondStage
			}
			if viper.GetBool("revocations") {
				flags |= hwcontext.IncludeRevocations
			}
			images, err := ctx.EspFiles(flags)
			if err != nil {
				return err
			}
			for _, img := range images {
				fmt.Printf("Boot%04X\t%s\t%d\n", img.Idx(), img.Filename(), img.Size())
			}
			return nil
		},
	}
	addEspFilesFlags(files.Flags())

	c.AddCommand(list, def, files)
	root.AddCommand(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewEspCmd(rootCmd)
