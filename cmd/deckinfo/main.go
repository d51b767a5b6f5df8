// deckinfo prints a summary of a .pptx deck: slide inventory, shape
// breakdown, extracted media and any slides that failed to parse.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	goslides "github.com/VantageDataChat/GoSlides"
)

func main() {
	var (
		runDir   = flag.String("rundir", "", "working directory for extracted media (default: runs/<session>)")
		showText = flag.Bool("text", false, "print extracted text per slide")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: deckinfo [flags] <deck.pptx>")
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

	w, h := pres.SlideSize()
	fmt.Printf("%s: %d slides, %.1f x %.1f in\n\n",
		src, pres.SlideCount(), goslides.EMUToInch(w), goslides.EMUToInch(h))

	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Status", "Shapes", "Text", "Pictures", "Layout"})
	for _, s := range pres.Slides() {
		if s.Failed() {
			t.AppendRow(table.Row{s.Index + 1, bad("failed"), "-", "-", "-", s.Err})
			continue
		}
		textBoxes, pictures := 0, 0
		s.Walk(func(sh goslides.ShapeElement) bool {
			switch sh.Kind() {
			case goslides.KindTextBox, goslides.KindPlaceholder:
				textBoxes++
			case goslides.KindPicture, goslides.KindSemanticPicture:
				pictures++
			}
			return true
		})
		t.AppendRow(table.Row{s.Index + 1, ok("ok"), s.ShapeCount(), textBoxes, pictures, s.LayoutRef})
	}
	t.Render()

	if keys := pres.MediaPool().Keys(); len(keys) > 0 {
		fmt.Printf("\nmedia (%d):\n", len(keys))
		for _, k := range keys {
			fmt.Printf("  %s\n", k)
		}
	}

	if issues := pres.Validate(); len(issues) > 0 {
		fmt.Printf("\n%s\n", bad(fmt.Sprintf("%d issue(s):", len(issues))))
		for _, issue := range issues {
			fmt.Printf("  %v\n", issue)
		}
	}

	if *showText {
		for _, s := range pres.Slides() {
			if s.Failed() {
				continue
			}
			if text := s.ExtractText(); text != "" {
				fmt.Printf("\n--- slide %d ---\n%s\n", s.Index+1, text)
			}
		}
	}
}
