// deck2html renders a .pptx deck to a standalone HTML document.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	goslides "github.com/VantageDataChat/GoSlides"
)

func main() {
	var (
		out    = flag.String("o", "", "output file (default: <deck>.html next to the source)")
		embed  = flag.Bool("embed", true, "inline images as data URIs")
		noImg  = flag.Bool("no-images", false, "omit picture shapes")
		runDir = flag.String("rundir", "", "working directory for extracted media")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: deck2html [flags] <deck.pptx>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	src := flag.Arg(0)

	cfg := goslides.NewConfig(*runDir)
	pres, err := goslides.ParseFile(src, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		os.Exit(1)
	}

	doc, err := pres.RenderHTML(goslides.RenderOptions{
		EmbedImages: *embed,
		ShowImages:  !*noImg,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}

	dst := *out
	if dst == "" {
		base := filepath.Base(src)
		dst = base[:len(base)-len(filepath.Ext(base))] + ".html"
	}
	if err := os.WriteFile(dst, []byte(doc), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, s := range pres.Slides() {
		if s.Failed() {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("wrote %s (%d slides, %d failed)\n", dst, pres.SlideCount(), failed)
	} else {
		fmt.Printf("wrote %s (%d slides)\n", dst, pres.SlideCount())
	}
}
