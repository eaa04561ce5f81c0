package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/resumetailor/core/edits"
	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/projection"
	"github.com/FocuswithJustin/resumetailor/core/tailor"
	"github.com/FocuswithJustin/resumetailor/internal/archive"
	"github.com/FocuswithJustin/resumetailor/internal/validation"
)

// ProjectCmd prints the plain-text projections of a document.
type ProjectCmd struct {
	Path string `arg:"" help:"Path to .docx file" type:"existingfile"`
	Mode string `help:"Projection: bullets, lines or json" enum:"bullets,lines,json" default:"lines"`
}

func (c *ProjectCmd) Run(a *App) error {
	data, err := validation.ReadDocx(c.Path)
	if err != nil {
		return err
	}
	p, err := a.Engine.Project(data)
	if err != nil {
		return err
	}
	switch c.Mode {
	case "bullets":
		return printLines(a.Out, p.Bullets)
	case "json":
		return writeJSON(a.Out, p)
	default:
		return printLines(a.Out, p.Lines)
	}
}

// OutlineCmd lists the sections of a document.
type OutlineCmd struct {
	Path string `arg:"" help:"Path to .docx file" type:"existingfile"`
	JSON bool   `help:"Output as JSON"`
}

func (c *OutlineCmd) Run(a *App) error {
	data, err := validation.ReadDocx(c.Path)
	if err != nil {
		return err
	}
	outline, err := a.Engine.Outline(data)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(a.Out, outline)
	}
	for _, e := range outline {
		name := string(e.Section)
		if name == "" {
			name = "(untitled)"
		}
		flag := ""
		if e.Protected {
			flag = " [protected]"
		}
		fmt.Fprintf(a.Out, "%-24s blocks %d-%d%s\n", name, e.Start, e.End-1, flag)
	}
	return nil
}

// PatchCmd applies edit requests to a document.
type PatchCmd struct {
	Path    string `arg:"" help:"Path to .docx file" type:"existingfile"`
	Edits   string `name:"edits" short:"e" required:"" help:"Edit requests (JSON or YAML, - for stdin)"`
	Out     string `name:"out" short:"o" help:"Output .docx path (default: <name>.tailored.docx)" type:"path"`
	Changes string `name:"changes" help:"Write the change log as JSON to this path" type:"path"`
	DryRun  bool   `name:"dry-run" help:"Report changes without writing the document"`
	Diff    bool   `help:"Print an inline diff of every change"`
}

func (c *PatchCmd) Run(a *App) error {
	data, err := validation.ReadDocx(c.Path)
	if err != nil {
		return err
	}
	reqs, err := readEdits(c.Edits, os.Stdin)
	if err != nil {
		return err
	}

	res, err := a.Engine.Patch(context.Background(), data, reqs)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "%d request(s): %d applied, %d unmatched\n", len(reqs), res.Matched, res.Dropped)
	if c.Diff {
		for _, ch := range res.Changes {
			fmt.Fprintf(a.Out, "  [%d %s] %s\n", ch.Block, ch.Section, ch.Diff)
		}
	}
	if c.Changes != "" {
		var buf bytes.Buffer
		if err := writeJSON(&buf, changeLog(res.Changes)); err != nil {
			return err
		}
		if err := writeFile(c.Changes, buf.Bytes()); err != nil {
			return err
		}
	}
	if c.DryRun {
		return nil
	}

	out := c.Out
	if out == "" {
		out = tailoredName(c.Path)
	}
	if err := writeFile(out, res.Output); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Wrote %s\n", out)
	return nil
}

// RenderCmd renders an editable HTML view. When edits are given they are
// applied first and the patched container is written to --base; the HTML
// view must later be exported against that base.
type RenderCmd struct {
	Path  string `arg:"" help:"Path to .docx file" type:"existingfile"`
	Edits string `name:"edits" short:"e" help:"Edit requests to apply before rendering"`
	HTML  string `name:"html" required:"" help:"Output HTML path (- for stdout)"`
	Base  string `name:"base" help:"Where to write the patched base document (required with --edits)" type:"path"`
}

func (c *RenderCmd) Run(a *App) error {
	data, err := validation.ReadDocx(c.Path)
	if err != nil {
		return err
	}
	var auto []edits.Request
	if c.Edits != "" {
		if c.Base == "" {
			return errors.NewValidation("base", "--base is required when --edits is given")
		}
		if auto, err = readEdits(c.Edits, os.Stdin); err != nil {
			return err
		}
	}

	live, err := a.Engine.LiveSession(context.Background(), data, auto)
	if err != nil {
		return err
	}
	if c.Base != "" {
		if err := writeFile(c.Base, live.Base); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := live.Session.HTML(&buf); err != nil {
		return err
	}
	buf.WriteByte('\n')
	if c.HTML == "-" {
		_, err := a.Out.Write(buf.Bytes())
		return err
	}
	if err := writeFile(c.HTML, buf.Bytes()); err != nil {
		return err
	}
	if live.Auto != nil {
		fmt.Fprintf(a.Out, "Applied %d of %d request(s) before rendering\n", live.Auto.Matched, len(auto))
	}
	fmt.Fprintf(a.Out, "Rendered %d block(s) to %s\n", live.Session.Len(), c.HTML)
	return nil
}

// ExportCmd writes hand edits made in an HTML view back into the
// document it was rendered from.
type ExportCmd struct {
	Base     string `arg:"" help:"Document the view was rendered from" type:"existingfile"`
	HTML     string `name:"html" required:"" help:"Edited HTML view" type:"existingfile"`
	Out      string `name:"out" short:"o" help:"Output .docx path (default: <name>.tailored.docx)" type:"path"`
	Requests string `name:"requests" help:"Also write the hand edits as edit requests (JSON)" type:"path"`
}

func (c *ExportCmd) Run(a *App) error {
	base, err := validation.ReadDocx(c.Base)
	if err != nil {
		return err
	}
	view, err := validation.ReadInput(c.HTML)
	if err != nil {
		return err
	}

	ctx := context.Background()
	live, err := a.Engine.LiveSession(ctx, base, nil)
	if err != nil {
		return err
	}
	if _, err := live.Session.ApplyHTML(bytes.NewReader(view)); err != nil {
		return err
	}

	if c.Requests != "" {
		var buf bytes.Buffer
		if err := edits.Encode(&buf, live.Session.Export()); err != nil {
			return err
		}
		if err := writeFile(c.Requests, buf.Bytes()); err != nil {
			return err
		}
	}

	res, err := a.Engine.ExportSession(ctx, base, live.Session)
	if err != nil {
		return err
	}
	out := c.Out
	if out == "" {
		out = tailoredName(c.Base)
	}
	if err := writeFile(out, res.Output); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%d hand edit(s) written to %s\n", len(res.Changes), out)
	return nil
}

// BatchCmd patches many documents with the same edit requests.
type BatchCmd struct {
	Paths   []string `arg:"" help:"Paths to .docx files" type:"existingfile"`
	Edits   string   `name:"edits" short:"e" required:"" help:"Edit requests (JSON or YAML, - for stdin)"`
	OutDir  string   `name:"out-dir" short:"o" required:"" help:"Directory for tailored documents" type:"path"`
	Bundle  string   `name:"bundle" help:"Also pack outputs and a manifest into this .tar.xz/.tar.gz" type:"path"`
	Workers int      `name:"workers" short:"w" help:"Parallel workers (default: batch.workers)"`
}

func (c *BatchCmd) Run(a *App) error {
	if c.Bundle != "" && !archive.IsSupportedFormat(c.Bundle) {
		return errors.NewUnsupported("bundle format", filepath.Base(c.Bundle))
	}
	reqs, err := readEdits(c.Edits, os.Stdin)
	if err != nil {
		return err
	}

	jobs := make([]tailor.Job, 0, len(c.Paths))
	names := make(map[string]bool, len(c.Paths))
	for _, p := range c.Paths {
		data, err := validation.ReadDocx(p)
		if err != nil {
			return err
		}
		name, err := validation.SanitizeFilename(filepath.Base(p))
		if err != nil {
			return errors.NewValidation("path", p+": "+err.Error())
		}
		if names[name] {
			return errors.NewValidation("path", "duplicate file name "+name)
		}
		names[name] = true
		jobs = append(jobs, tailor.Job{Name: name, Input: data, Requests: reqs})
	}

	workers := c.Workers
	if workers <= 0 {
		workers = a.Config.Batch.Workers
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results := tailor.RunBatch(ctx, a.Engine, jobs, workers)

	manifest := archive.NewManifest("tailor " + version)
	var files []archive.File
	failed := 0
	for i, r := range results {
		entry := archive.ManifestEntry{
			Name:       r.Name,
			SourceHash: archive.HashBytes(jobs[i].Input),
		}
		if r.Err != nil {
			failed++
			entry.Error = r.Err.Error()
			manifest.Entries = append(manifest.Entries, entry)
			fmt.Fprintf(a.Out, "FAIL %s: %v\n", r.Name, r.Err)
			continue
		}

		outName := tailoredName(r.Name)
		rel, err := validation.SanitizePath(c.OutDir, outName)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(c.OutDir, rel), r.Result.Output); err != nil {
			return err
		}

		var log bytes.Buffer
		if err := writeJSON(&log, changeLog(r.Result.Changes)); err != nil {
			return err
		}
		logName := strings.TrimSuffix(outName, ".docx") + ".changes.json"

		entry.Output = "out/" + outName
		entry.OutputHash = archive.HashBytes(r.Result.Output)
		entry.Matched = r.Result.Matched
		entry.Dropped = r.Result.Dropped
		entry.Changes = "out/" + logName
		manifest.Entries = append(manifest.Entries, entry)
		files = append(files,
			archive.File{Name: entry.Output, Data: r.Result.Output},
			archive.File{Name: entry.Changes, Data: log.Bytes()},
		)
		fmt.Fprintf(a.Out, "ok   %s: %d applied, %d unmatched (%s)\n", r.Name, r.Result.Matched, r.Result.Dropped, r.Duration.Round(time.Millisecond))
	}

	if c.Bundle != "" {
		if err := archive.WriteBundle(c.Bundle, manifest, files); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Bundled %d document(s) into %s\n", len(files)/2, c.Bundle)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(jobs))
	}
	return nil
}

// VerifyCmd checks a batch bundle against its manifest.
type VerifyCmd struct {
	Bundle string `arg:"" help:"Path to bundle" type:"existingfile"`
}

func (c *VerifyCmd) Run(a *App) error {
	m, err := archive.Verify(c.Bundle)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Bundle: %s\n", c.Bundle)
	fmt.Fprintf(a.Out, "  Version: %s\n", m.Version)
	fmt.Fprintf(a.Out, "  Created: %s\n", m.CreatedAt)
	fmt.Fprintf(a.Out, "  Documents: %d\n", len(m.Entries))
	for _, e := range m.Entries {
		if e.Error != "" {
			fmt.Fprintf(a.Out, "  FAIL %s: %s\n", e.Name, e.Error)
			continue
		}
		fmt.Fprintf(a.Out, "  OK   %s (%s)\n", e.Name, e.OutputHash[:16])
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *App) error {
	fmt.Fprintf(a.Out, "tailor version %s\n", version)
	return nil
}

// Helper functions

// readEdits reads and canonicalizes edit requests from path, or from stdin
// when path is "-".
func readEdits(path string, stdin io.Reader) ([]edits.Request, error) {
	var raw []edits.Raw
	var err error
	source := path
	if path == "-" {
		source = "stdin"
		raw, err = edits.Decode(stdin)
	} else {
		var data []byte
		data, err = validation.ReadInput(path, validation.FileTypeJSON, validation.FileTypeYAML)
		if err != nil {
			return nil, err
		}
		raw, err = edits.DecodeBytes(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "edits from %s", source)
	}
	return edits.Canonicalize(raw), nil
}

// changeLog never encodes as null.
func changeLog(changes []tailor.Change) []tailor.Change {
	if changes == nil {
		return []tailor.Change{}
	}
	return changes
}

func tailoredName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".tailored.docx"
}

func printLines(w io.Writer, lines []string) error {
	_, err := io.WriteString(w, projection.Text(lines)+"\n")
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(path string, data []byte) error {
	if err := validation.ValidatePath(path); err != nil {
		return errors.NewValidation("path", err.Error())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIO("create", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}
