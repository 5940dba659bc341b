// Command rv64emu boots a flat RV64 kernel image against a RAM + UART
// machine and runs it to completion or fault.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rv64emu/rv64emu/pkg/memory"
	"github.com/rv64emu/rv64emu/pkg/platform"
)

const legacyHeaderBytes = 0x1000

type options struct {
	kernel         string
	dtb            string
	kernelLoadAddr uint64
	entryPoint     uint64
	dtbLoadAddr    uint64
	ramSize        uint64
	logLevel       string
	tty            bool
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "rv64emu",
		Short: "A single-hart RV64 instruction set emulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.kernel, "kernel", "vmlinux", "path to the flat kernel image")
	flags.StringVar(&opts.dtb, "dtb", "", "path to a device tree blob (optional)")
	flags.Uint64Var(&opts.kernelLoadAddr, "kernel-load-address", memory.DefaultBase, "address to load the kernel image at")
	flags.Uint64Var(&opts.entryPoint, "entry-point", 0, "hart program counter at boot (defaults to kernel-load-address)")
	flags.Uint64Var(&opts.dtbLoadAddr, "dtb-load-address", 0, "address to load the dtb at (defaults to just past the kernel)")
	flags.Uint64Var(&opts.ramSize, "ram-size", memory.DefaultSize, "RAM size in bytes")
	flags.StringVar(&opts.logLevel, "log-level", "info", "trace log verbosity: quiet|info|trace")
	flags.BoolVar(&opts.tty, "tty", false, "attach the UART's input/output to stdio instead of discarding it")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(opts *options) error {
	log.SetFlags(0)

	if opts.entryPoint == 0 {
		opts.entryPoint = opts.kernelLoadAddr
	}

	kernelData, err := os.ReadFile(opts.kernel)
	if err != nil {
		return fmt.Errorf("rv64emu: reading kernel image: %w", err)
	}

	var ttyOut io.Writer
	var ttyIn io.Reader
	if opts.tty {
		ttyOut, ttyIn = os.Stdout, os.Stdin
	}
	p := platform.New(opts.entryPoint, opts.kernelLoadAddr, opts.ramSize, ttyOut, ttyIn)
	if opts.logLevel != "trace" {
		p.Hart.Log = nil
	}

	if err := p.LoadKernel(opts.kernelLoadAddr, kernelData, legacyHeaderBytes); err != nil {
		return fmt.Errorf("rv64emu: loading kernel: %w", err)
	}

	if opts.dtb != "" {
		dtbData, err := os.ReadFile(opts.dtb)
		if err != nil {
			return fmt.Errorf("rv64emu: reading dtb: %w", err)
		}
		if opts.dtbLoadAddr == 0 {
			opts.dtbLoadAddr = opts.kernelLoadAddr + uint64(len(kernelData)-legacyHeaderBytes)
		}
		if err := p.LoadDTB(opts.dtbLoadAddr, dtbData); err != nil {
			return fmt.Errorf("rv64emu: loading dtb: %w", err)
		}
	}

	if opts.logLevel != "quiet" {
		log.Printf("booting hart 0 at pc=%#x", p.Hart.PC)
	}

	if err := p.Run(); err != nil {
		log.Printf("hart 0 halted: %v", err)
		log.Printf("pc=%#x registers=%v", p.Hart.PC, p.Hart.Registers())
		return err
	}
	return nil
}
