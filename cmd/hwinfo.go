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

	"github.com/firmware-tools/hwcontext/pkg/hwcontext"
)

func NewHwinfoCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "hwinfo",
		Args:  cobra.ExactArgs(0),
		Short: "Show the machine identity and hardware IDs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := newContext(cmd)
			if err != nil {
				return err
			}
			if err := ctx.LoadHwinfo(hwcontext.LoadAll); err != nil {
				return err
			}
			for _, key := range []string{"Manufacturer", "Family", "ProductName", "BiosVendor", "BiosVersion"} {
				value, err := ctx.SmbiosString(key)
				if err != nil {
					return err
				}
				if value != "" {
					fmt.Printf("%s: %s\n", key, value)
				}
			}
			guids, err := ctx.HwidGuids()
			if err != nil {
				return err
			}
			for _, guid := range guids {
				fmt.Printf("HardwareID: %s\n", guid)
			}
			for _, flag := range ctx.HwidFlags() {
				fmt.Printf("Flag: %s\n", flag)
			}
			return nil
		},
	}
	root.AddCommand(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewHwinfoCmd(rootCmd)
