// Command glyphmap prints the glyph mapping of a string through a chain
// of fallback fonts.
//
// Usage:
//
//	glyphmap -font NotoSans-Regular.ttf,NotoEmoji.ttf -text "Hello 😀"
//
// Entries of -font may also name installed system fonts, for example
// -font DejaVuSans.ttf. Without -font the built-in Go Regular font is used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"golang.org/x/text/unicode/runenames"

	"github.com/gogpu/glyphmap"
	"github.com/gogpu/glyphmap/text"
)

func main() {
	os.Exit(glyphmapMain(os.Args[1:]))
}

// glyphmapMain runs the command with args and returns its exit code, so
// deferred cleanup runs before the process exits.
func glyphmapMain(args []string) int {
	flags := flag.NewFlagSet("glyphmap", flag.ContinueOnError)
	var (
		fonts   = flags.String("font", "", "comma-separated font files in fallback order")
		parser  = flags.String("parser", "ximage", "font parser (ximage or gotext)")
		size    = flags.Float64("size", 16, "strike size in pixels per em")
		input   = flags.String("text", "Hello, 世界 😀", "text to map")
		verbose = flags.Bool("v", false, "log debug output to stderr")
	)
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *verbose {
		glyphmap.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	registry := text.NewRegistry()
	defer func() {
		_ = registry.Close()
	}()

	names, err := registerFonts(registry, *fonts, *parser)
	if err != nil {
		pterm.Error.Println(err)
		return 1
	}

	if err := run(registry, names, *input, *size); err != nil {
		pterm.Error.Printf("glyphmap: %v\n", err)
		return 1
	}
	return 0
}

// registerFonts loads every file of list and returns the registry keys in
// order, followed by the fallback font. Entries that are not readable files
// are looked up among the installed system fonts.
func registerFonts(registry *text.Registry, list, parser string) ([]string, error) {
	var names []string
	for _, path := range strings.Split(list, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		key, err := registry.RegisterFile(path, text.WithParser(parser))
		if errors.Is(err, fs.ErrNotExist) {
			key, err = registry.RegisterSystem(path, text.WithParser(parser))
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		names = append(names, key)
	}
	return append(names, text.FallbackName), nil
}

func run(registry *text.Registry, names []string, input string, size float64) error {
	// The registry appends the fallback font itself.
	composite, err := registry.Composite(names[:len(names)-1]...)
	if err != nil {
		return err
	}

	units := text.DecodeString(input)
	codes := make([]text.CompositeGlyphCode, len(units))
	if err := composite.ResolveMany(units, codes); err != nil {
		return err
	}

	data := pterm.TableData{{"Pos", "Code point", "Name", "Font", "Glyph", "Advance"}}
	for pos, cp := range text.Normalize[text.GlyphCode](units, nil) {
		code := codes[pos]
		row := []string{
			fmt.Sprint(pos),
			cp.String(),
			runenames.Name(rune(cp)),
			"-",
			"missing",
			"-",
		}
		if code.Glyph().Present() {
			name := names[code.Slot()]
			row[3] = name
			row[4] = fmt.Sprint(code.Glyph())
			strike, err := registry.Strike(name, text.StrikeDesc{Size: size})
			if err != nil {
				return err
			}
			adv, err := strike.Advance(code.Glyph())
			if err != nil {
				return err
			}
			row[5] = fmt.Sprintf("%.2f", adv)
		}
		data = append(data, row)
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	if i := text.CanDisplayUpTo(composite, units); i >= 0 {
		pterm.Warning.Printf("first undisplayable unit at index %d\n", i)
	} else {
		pterm.Success.Println("every character can be displayed")
	}
	pterm.Info.Printf("requires complex layout: %v\n", text.RequiresLayout(units))
	pterm.Info.Printf("fonts: %s\n", strings.Join(names, ", "))
	return nil
}
