// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gcplot renders a collector telemetry trace (bytes allocated,
// pause duration, and live-object count sampled once per cycle) as an
// SVG plot of bytes allocated and live objects per cycle; the pause
// column is read but not plotted. It reads samples as whitespace-separated
// "cycle bytes pauseNS live" lines, one per gc.Stats snapshot a host
// recorded while running a script (spec §4.1.8's memory reporting,
// SPEC_FULL §12's GC stats snapshot).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"
)

// sample is one row of the input trace; table.TableFromStructs turns a
// slice of these into the table.Grouping gg.NewPlot wants (benchplot/
// plot.go's "struct slice in, Plot out" convention).
type sample struct {
	Cycle   int
	Bytes   float64
	PauseNS float64
	Live    float64
}

func main() {
	log.SetPrefix("gcplot: ")
	log.SetFlags(0)

	var (
		flagIn     = flag.String("in", "-", "read samples from `file` (- for stdin)")
		flagOut    = flag.String("o", "gc.svg", "write SVG plot to `file`")
		flagPNG    = flag.String("png", "", "also rasterize a labeled title bar to `file`")
		flagWidth  = flag.Int("width", 900, "plot width in pixels")
		flagHeight = flag.Int("height", 300, "plot height in pixels")
	)
	flag.Parse()

	samples, err := readSamples(*flagIn)
	if err != nil {
		log.Fatal(err)
	}
	if len(samples) == 0 {
		log.Fatal("no samples")
	}

	f, err := os.Create(*flagOut)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	t := table.TableFromStructs(samples)
	p := gg.NewPlot(t)
	p.Add(gg.LayerLines{X: "Cycle", Y: "Bytes"})
	p.Add(gg.LayerLines{X: "Cycle", Y: "Live"})
	if err := p.WriteSVG(f, *flagWidth, *flagHeight); err != nil {
		log.Fatal(err)
	}

	if *flagPNG != "" {
		if err := writeTitleBar(*flagPNG, fmt.Sprintf("%d cycles, %d live objects", len(samples), int(samples[len(samples)-1].Live)), *flagWidth); err != nil {
			log.Fatal(err)
		}
	}
}

// writeTitleBar rasterizes a one-line title into a small PNG separate from
// the SVG plot, the way a host embedding gcplot's output in a terminal-less
// report might want a plain raster alongside the vector SVG (gg itself
// only renders SVG; labeling a raster render is srgb/main.go's x/image
// territory, not go-gg's).
func writeTitleBar(path, title string, width int) error {
	const height = 24
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixedPoint(4, height-8),
	}
	d.DrawString(title)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func readSamples(path string) ([]sample, error) {
	r := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var out []sample
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var s sample
		line := sc.Text()
		if line == "" {
			continue
		}
		if _, err := fmt.Sscanf(line, "%d %f %f %f", &s.Cycle, &s.Bytes, &s.PauseNS, &s.Live); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", line, err)
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func fixedPoint(x, y int) fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
}
