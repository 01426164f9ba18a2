package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"doc-editor/app"
	"doc-editor/pkg/config"
	"doc-editor/pkg/editor"
	"doc-editor/pkg/script"
	"doc-editor/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sink, err := storage.Open(cfg.Sink, cfg.SinkOptions())
	if err != nil {
		log.Fatalf("Failed to open %s sink: %v", cfg.Sink, err)
	}

	if err := execute(cfg, sink, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("%v", err)
	}
}

// execute runs the document and, when configured, serves rooms until the
// server stops. The sink is closed before execute returns.
func execute(cfg *config.Config, sink storage.Sink, stdout, stderr io.Writer) error {
	if c, ok := sink.(io.Closer); ok {
		defer c.Close()
	}

	if err := run(cfg, sink, stdout, stderr); err != nil {
		return err
	}
	if !cfg.Serve {
		return nil
	}

	server := app.NewServer(cfg, app.RoomSinks(cfg.Sink, cfg.SinkOptions(), sink))
	defer server.Close()
	if err := server.Start(""); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// run builds the document, prints its render and saves it. A failed save is
// reported on stderr and is not returned; only setup errors are.
func run(cfg *config.Config, sink storage.Sink, stdout, stderr io.Writer) error {
	ed := editor.New(nil, sink)

	if cfg.Script != "" {
		if err := loadScript(cfg.Script, ed); err != nil {
			return err
		}
	} else {
		addDemoContent(ed)
	}

	fmt.Fprintln(stdout, ed.RenderDocument())

	if err := ed.SaveDocument(); err != nil {
		fmt.Fprintf(stderr, "Error saving document: %v\n", err)
		return nil
	}
	fmt.Fprintf(stdout, "Document saved to %s\n", storage.Describe(sink))
	return nil
}

func loadScript(path string, ed *editor.Editor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open script %s: %w", path, err)
	}
	defer f.Close()

	s, err := script.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.Apply(ed)
	return nil
}

func addDemoContent(ed *editor.Editor) {
	ed.AddText("Hello, world!")
	ed.AddNewline()
	ed.AddText("This is a real-world document editor example.")
	ed.AddNewline()
	ed.AddTab()
	ed.AddText("Indented text after a tab space.")
	ed.AddNewline()
	ed.AddImage("picture.jpg")
}
