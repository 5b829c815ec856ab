package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/gmameta/gma"
	"github.com/hazyhaar/gmameta/propstore"
)

// inspectEntry is the printed result for one file.
type inspectEntry struct {
	Path   string             `json:"path" yaml:"path"`
	Size   int64              `json:"size" yaml:"size"`
	Header *gma.DecodedHeader `json:"header,omitempty" yaml:"header,omitempty"`
	View   propstore.View     `json:"view,omitempty" yaml:"view,omitempty"`
	Fields []propstore.Field  `json:"fields,omitempty" yaml:"fields,omitempty"`
}

func runInspect(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("inspect", e)
	format := fs.StringP("format", "f", "text", "output format: text, json or yaml")
	viewName := fs.String("view", "", "print a viewer property list (TileInfo, PreviewDetails, InfoTip, FullDetails, ExtendedTileInfo)")
	logLevel := fs.String("log-level", "warn", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("inspect: no files given")
	}

	var view propstore.View
	if *viewName != "" {
		v, ok := propstore.ParseView(*viewName)
		if !ok {
			return fmt.Errorf("inspect: unknown view %q", *viewName)
		}
		view = v
	}
	emit, err := entryPrinter(*format, e.stdout)
	if err != nil {
		return err
	}
	logger, err := newLogger(e.stderr, *logLevel)
	if err != nil {
		return err
	}
	dec := newDecoder(logger)

	var failed int
	for _, path := range fs.Args() {
		entry, err := inspectFile(ctx, dec, path, view)
		switch {
		case gma.IsNotThisFormat(err):
			fmt.Fprintf(e.stderr, "%s: skipped, not a gma archive\n", path)
			continue
		case err != nil:
			fmt.Fprintf(e.stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if err := emit(entry); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("inspect: %d of %d files failed", failed, fs.NArg())
	}
	return nil
}

// inspectFile decodes path. With a view, the header goes through a
// property handler and only the view's fields are kept.
func inspectFile(ctx context.Context, dec *gma.Decoder, path string, view propstore.View) (*inspectEntry, error) {
	if view == "" {
		h, err := dec.DecodeFile(ctx, path)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		return &inspectEntry{Path: path, Size: fi.Size(), Header: h}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	handler := propstore.NewHandler(dec)
	if err := handler.Initialize(ctx, f, fi.Size()); err != nil {
		return nil, err
	}
	props := handler.Store()
	if err := propstore.PublishFile(props, fi.Size(), fi.ModTime()); err != nil {
		return nil, err
	}
	return &inspectEntry{Path: path, Size: fi.Size(), View: view, Fields: props.View(view)}, nil
}

func entryPrinter(format string, w io.Writer) (func(*inspectEntry) error, error) {
	switch format {
	case "text":
		return func(en *inspectEntry) error { return printText(w, en) }, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return func(en *inspectEntry) error { return enc.Encode(en) }, nil
	case "yaml":
		return func(en *inspectEntry) error {
			out, err := yaml.Marshal(en)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "---\n%s", out)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func printText(w io.Writer, en *inspectEntry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", en.Path, humanize.Bytes(uint64(en.Size)))
	if en.Header != nil {
		x := en.Header.Extract
		fmt.Fprintf(&b, "  %-12s %s\n", "name", textValue(x.Name))
		fmt.Fprintf(&b, "  %-12s %s\n", "author", textValue(x.Author))
		fmt.Fprintf(&b, "  %-12s %s\n", "type", textValue(x.Category))
		fmt.Fprintf(&b, "  %-12s %s\n", "tags", strings.Join(x.Tags, ", "))
		fmt.Fprintf(&b, "  %-12s %s\n", "layout", en.Header.Variant)
		fmt.Fprintf(&b, "  %-12s %s\n", "description", indent(textValue(x.Description)))
	}
	for _, f := range en.Fields {
		v := strings.Join(f.Value.Texts, "; ")
		if !f.Value.Present() {
			v = "(not in source)"
		}
		fmt.Fprintf(&b, "  %-24s %s\n", f.Key, v)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func textValue(t gma.Text) string {
	switch {
	case !t.Present:
		return "(absent)"
	case t.Value == "":
		return `""`
	default:
		return t.Value
	}
}

// indent continues multi-line values under the value column.
func indent(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+strings.Repeat(" ", 15))
}
