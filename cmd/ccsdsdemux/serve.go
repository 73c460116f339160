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
	"bytes"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ienorand/cosmos-ccsds-transfer-frames/ccsds"
	"github.com/ienorand/cosmos-ccsds-transfer-frames/internal/config"
	"github.com/ienorand/cosmos-ccsds-transfer-frames/internal/logging"
	"github.com/ienorand/cosmos-ccsds-transfer-frames/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [frame files...]",
	Short: "Serve a CCSDS demultiplexer over HTTP",
	Long: `serve starts the HTTP+websocket front end described in --config. If any
frame files are given, they are replayed into the server's own /ingest
endpoint at a configurable rate rather than waiting for an external
sender.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe(args)
	},
}

var (
	servePort          int
	serveBitsPerSecond int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8000, "HTTP listen port")
	serveCmd.Flags().IntVar(&serveBitsPerSecond, "bps", 0, "limit file replay to this many bits per second (0 = as fast as possible)")
}

func runServe(args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("error loading config %s: %v\n", configPath, err)
		os.Exit(1)
	}
	ccfg, err := cfg.CCSDSConfig()
	if err != nil {
		fmt.Printf("invalid frame configuration: %v\n", err)
		os.Exit(1)
	}

	if closer, logErr := logging.Setup(cfg.Logs); logErr != nil {
		fmt.Printf("warning: could not set up log rotation: %v\n", logErr)
	} else {
		defer closer.Close()
	}

	srv := server.Server{Port: servePort, Demux: ccsds.NewDemux(ccfg)}
	if len(cfg.Dictionary) > 0 {
		srv.Dictionary = ccsds.NewDictionary(cfg.Dictionary)
	}

	if len(args) > 0 {
		go replayFiles(args)
	}

	srv.Run()
}

// replayFiles reads each matched file whole and posts it to the server's
// own /ingest endpoint, governing the send rate to the configured
// bits-per-second limit.
func replayFiles(args []string) {
	time.Sleep(500 * time.Millisecond) // let the HTTP server come up first

	addr := fmt.Sprintf("http://localhost:%d/ingest", servePort)
	for _, fname := range expandFilePatterns(args) {
		data, err := os.ReadFile(fname)
		if err != nil {
			fmt.Printf("error reading %s: %v\n", fname, err)
			continue
		}
		governBitsPerSecond(len(data), serveBitsPerSecond)
		if _, err := http.Post(addr, "application/octet-stream", bytes.NewReader(data)); err != nil {
			fmt.Printf("error posting %s to %s: %v\n", fname, addr, err)
		}
	}
}

func governBitsPerSecond(byteCount, bps int) {
	if bps <= 0 {
		return
	}
	delay := time.Duration(float64(byteCount*8) / float64(bps) * float64(time.Second))
	time.Sleep(delay)
}
