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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ienorand/cosmos-ccsds-transfer-frames/ccsds"
	"github.com/ienorand/cosmos-ccsds-transfer-frames/internal/config"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [frame files...]",
	Short: "Extract CCSDS Space Packets from CCSDS TM Transfer Frame files",
	Long: `extract reads one or more raw frame files (glob patterns are expanded
and matched in the order given), demultiplexes them according to --config,
and writes every emitted packet as a length-prefixed record to --out.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("requires at least one arg")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		runExtract(args)
	},
}

var extractOut string

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "packets.bin", "output file for extracted packets (length-prefixed records)")
}

func runExtract(args []string) {
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

	out, err := os.Create(extractOut)
	if err != nil {
		fmt.Printf("error creating %s: %v\n", extractOut, err)
		os.Exit(1)
	}
	defer out.Close()

	demux := ccsds.NewDemux(ccfg)
	apidCounts := make(map[int]int)
	var packetCount int

	for _, fname := range expandFilePatterns(args) {
		if Verbose {
			fmt.Printf("reading %s\n", fname)
		}
		if err := extractFile(fname, demux, out, apidCounts, &packetCount); err != nil {
			fmt.Printf("error reading %s: %v\n", fname, err)
		}
	}

	fmt.Printf("%d packets extracted to %s\n", packetCount, extractOut)
	for apid, count := range apidCounts {
		name := ""
		if n, ok := cfg.Dictionary[apid]; ok {
			name = " (" + n + ")"
		}
		fmt.Printf("  apid %d%s: %d\n", apid, name, count)
	}
}

func extractFile(fname string, demux *ccsds.Demux, out io.Writer, apidCounts map[int]int, packetCount *int) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if err := drainPackets(demux.Consume(buf[:n]), demux, out, apidCounts, packetCount); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func drainPackets(r ccsds.Result, demux *ccsds.Demux, out io.Writer, apidCounts map[int]int, packetCount *int) error {
	for r.Kind == ccsds.HasPacket {
		if err := writePacketRecord(out, r.Packet); err != nil {
			return err
		}
		*packetCount++
		if apid, ok := ccsds.PacketAPID(r.Packet, demux.Config().PacketPrefixLength); ok {
			apidCounts[apid]++
		}
		r = demux.Consume(nil)
	}
	return nil
}

func writePacketRecord(out io.Writer, pkt []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(pkt)))
	if _, err := out.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := out.Write(pkt)
	return err
}

func expandFilePatterns(args []string) []string {
	var out []string
	for _, basePattern := range args {
		pat := basePattern
		if !filepath.IsAbs(pat) {
			pat = filepath.Join(".", pat)
		}
		matches, err := filepath.Glob(pat)
		if err != nil {
			fmt.Printf("error expanding file pattern %s: %v\n", pat, err)
			continue
		}
		out = append(out, matches...)
	}
	return out
}
