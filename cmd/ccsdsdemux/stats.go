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
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ienorand/cosmos-ccsds-transfer-frames/ccsds"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the stats of a running ccsdsdemux serve instance",
	Run: func(cmd *cobra.Command, args []string) {
		runStats()
	},
}

var statsAddr string

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsAddr, "addr", "http://localhost:8000", "base address of a running ccsdsdemux serve instance")
}

func runStats() {
	resp, err := http.Get(statsAddr + "/stats")
	if err != nil {
		fmt.Printf("error fetching stats: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var stats ccsds.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		fmt.Printf("error decoding stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("frames consumed:     %d\n", stats.FramesConsumed)
	fmt.Printf("idle frames dropped: %d\n", stats.IdleFramesDropped)
	fmt.Printf("bytes buffered:      %d\n", stats.BytesBuffered)
	for vcid := 0; vcid < 8; vcid++ {
		if stats.PacketsEmitted[vcid] == 0 && stats.IdlePacketsDiscarded[vcid] == 0 {
			continue
		}
		fmt.Printf("  vc %d: emitted=%d idle_discarded=%d\n", vcid, stats.PacketsEmitted[vcid], stats.IdlePacketsDiscarded[vcid])
	}
}
