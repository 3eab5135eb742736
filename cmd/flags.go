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
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// addGlobalFlags adds the persistent flags every command shares
func addGlobalFlags(flags *pflag.FlagSet) {
	flags.Bool("debug", false, "Enable debug output")
	flags.String("config-dir", "", "Set config dir")
	flags.String("logfile", "", "Set logfile")
	bindFlags(flags)
}

// addEspFilesFlags adds flags selecting which boot chain stages to collect
func addEspFilesFlags(flags *pflag.FlagSet) {
	flags.Bool("second-stage", false, "Include the loaders shim chain-loads")
	flags.Bool("revocations", false, "Include SBAT revocation payloads")
	bindFlags(flags)
}

// bindFlags registers every flag in the set under its own name in viper
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
}
