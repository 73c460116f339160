// Copyright © 2018 NAME HERE <EMAIL ADDRESS>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Verbose turns on extra diagnostic printing across every subcommand.
var Verbose bool

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ccsdsdemux",
	Short: "Demultiplex CCSDS TM Transfer Frames into CCSDS Space Packets",
	Long: `ccsdsdemux reassembles CCSDS Space Packets out of a stream of CCSDS TM
Transfer Frames. Frames are split across eight independent per-virtual-
channel reassemblers keyed by the frame's virtual channel id, following
CCSDS 132.0-B; completed packets are CCSDS 133.0-B space packets.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "print extra diagnostic information")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to a config.yaml file describing frame layout")
}
