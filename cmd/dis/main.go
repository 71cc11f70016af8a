// Command dis prints a disassembly listing of a program image.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/regvm/regvm/isa"
	"github.com/regvm/regvm/loader"
)

func main() {
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showHelp || flag.NArg() == 0 {
		fmt.Println("Usage: dis <image-file>")
		os.Exit(0)
	}

	image, err := loader.LoadImage(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := isa.WriteListing(os.Stdout, image); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
