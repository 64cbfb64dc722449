// Opal CLI - run and inspect stored Opal bytecode
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/opal/config"
	"github.com/chazu/opal/store"
	"github.com/chazu/opal/vm"
	"github.com/chazu/opal/vm/wire"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	storePath := flag.String("store", "opal.db", "Path to the code store")
	list := flag.Bool("list", false, "List stored code objects")
	dis := flag.String("dis", "", "Disassemble the code object with this hash")
	run := flag.String("run", "", "Run the code object with this hash")
	image := flag.String("image", "", "Show the contents of the image with this ID")
	trace := flag.Bool("trace", false, "Log every executed instruction")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: opal [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs and inspects Opal bytecode from a content-addressed store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  opal -list                  # List stored code objects\n")
		fmt.Fprintf(os.Stderr, "  opal -dis <hash>            # Disassemble a stored body\n")
		fmt.Fprintf(os.Stderr, "  opal -run <hash>            # Execute a stored body\n")
		fmt.Fprintf(os.Stderr, "  opal -image <uuid>          # Show an image's contents\n")
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fatal(err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	commonlog.Configure(cfg.Log.Verbosity, nil)

	s, err := store.Open(*storePath)
	if err != nil {
		fatal(err)
	}
	defer s.Close()

	switch {
	case *list:
		names, err := s.CodeNames()
		if err != nil {
			fatal(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}

	case *dis != "":
		code, err := s.GetCode(*dis)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("code %s (%s)\n", code.Name, *dis)
		fmt.Println(code.Disassemble())

	case *run != "":
		code, err := s.GetCode(*run)
		if err != nil {
			fatal(err)
		}
		opts := cfg.VMOptions()
		if *trace {
			opts.Trace = true
		}
		in := vm.NewInterpWithOptions(vm.NewNamespace(), nil, opts)
		result, err := in.RunCode(code)
		if err != nil {
			fatal(err)
		}
		fmt.Println(result)
		// A small integer result doubles as the exit code.
		if n, ok := result.(vm.IntValue); ok && n >= 0 && n < 126 {
			os.Exit(int(n))
		}

	case *image != "":
		img, err := s.GetImage(*image)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("image %s (%s, format v%d)\n", img.Name, img.ID, img.Version)
		for _, wc := range img.Codes {
			code, err := wire.DecodeCode(wc)
			if err != nil {
				fatal(err)
			}
			hash, err := store.HashCode(code)
			if err != nil {
				fatal(err)
			}
			fmt.Printf("  %s  %s\n", hash, code.Name)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
