package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/maruel/factsheet/internal/export"
	"github.com/maruel/factsheet/internal/extract"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/ksid"
)

// env is passed to every command.
type env struct {
	app    *app
	stop   context.CancelFunc
	stdout io.Writer
}

type command func(ctx context.Context, e *env, args []string) error

var commands map[string]command

func init() {
	commands = map[string]command{
		"serve":     cmdServe,
		"sample":    cmdSample,
		"extract":   cmdExtract,
		"list":      cmdList,
		"sections":  cmdSections,
		"set":       cmdSet,
		"delete":    cmdDelete,
		"export":    cmdExport,
		"journal":   cmdJournal,
		"revisions": cmdRevisions,
		"show":      cmdShow,
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func cmdSample(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("sample")
	replace := fs.Bool("replace", false, "Discard existing rows first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	load := e.app.store.Load
	if *replace {
		load = e.app.store.Replace
	}
	created, err := load(ctx, extract.SampleRows())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "Loaded %d rows, %d total\n", len(created), e.app.store.Len())
	return err
}

func cmdExtract(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: extract <document>")
	}
	ctx, cancel := context.WithTimeout(ctx, e.app.cfg.ExtractionTimeout())
	defer cancel()
	created, err := extract.Ingest(ctx, e.app.store, e.app.extractor, extract.Document(args[0]))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "Extracted %d rows from %s, %d total\n", len(created), args[0], e.app.store.Len())
	return err
}

func cmdList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("list")
	section := fs.String("section", "", "Only show this section (\"All\" or empty for every section)")
	q := fs.String("q", "", "Case-insensitive search in key, value and source span")
	where := fs.String("where", "", "Boolean expression, e.g. 'confidence < 0.8'")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	pred, err := rows.CompilePredicate(*where)
	if err != nil {
		return err
	}
	all := e.app.store.Snapshot()
	visible := rows.Filter(all, rows.Criteria{Section: rows.ParseSection(*section), Search: *q, Where: pred})
	return printRows(e.stdout, visible, len(all))
}

func printRows(out io.Writer, visible []rows.Row, total int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSECTION\tKEY\tVALUE\tCONFIDENCE\tSOURCE")
	for i := range visible {
		r := &visible[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Section, r.Key, r.Value, rows.FormatConfidence(r.Confidence), r.Span())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d of %d rows\n", len(visible), total)
	return err
}

func cmdSections(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	for _, s := range rows.DistinctSections(e.app.store.Snapshot()) {
		if _, err := fmt.Fprintln(e.stdout, s); err != nil {
			return err
		}
	}
	return nil
}

func cmdSet(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("set")
	clearSpan := fs.Bool("clear", false, "Clear the source span instead of setting a value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var edit rows.Edit
	switch {
	case *clearSpan && fs.NArg() == 2 && fs.Arg(1) == string(rows.FieldSourceSpan):
		edit = rows.ClearSourceSpan{}
	case !*clearSpan && fs.NArg() == 3:
		var err error
		if edit, err = rows.ParseEdit(fs.Arg(1), fs.Arg(2)); err != nil {
			return err
		}
	default:
		return errors.New("usage: set <id> <field> <value> | set -clear <id> sourceSpan")
	}
	id, err := ksid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid row id %q: %w", fs.Arg(0), err)
	}
	if err := e.app.store.Update(ctx, id, edit); err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "Updated %s of %s\n", edit.Field(), id)
	return err
}

func cmdDelete(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete <id>")
	}
	id, err := ksid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid row id %q: %w", args[0], err)
	}
	if err := e.app.store.Delete(ctx, id); err != nil {
		if errors.Is(err, rows.ErrNotFound) {
			_, err = fmt.Fprintf(e.stdout, "Row %s already removed\n", id)
			return err
		}
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "Deleted %s, %d rows left\n", id, e.app.store.Len())
	return err
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("export")
	dir := fs.String("dir", ".", "Output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: export [-dir D] json|csv")
	}
	f, err := export.ParseFormat(fs.Arg(0))
	if err != nil {
		return err
	}
	a, err := export.Build(e.app.store.Snapshot(), f, e.app.cfg.Export.BaseName)
	if err != nil {
		return err
	}
	p, err := export.WriteFile(*dir, a)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "Wrote %s (%s)\n", p, humanize.Bytes(uint64(len(a.Body))))
	return err
}

func cmdJournal(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("journal")
	n := fs.Int("n", 20, "Number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tOP\tFIELD\tROWS\tTOTAL")
	for _, entry := range e.app.journal.Recent(*n) {
		ids := make([]string, len(entry.RowIDs))
		for i, id := range entry.RowIDs {
			ids[i] = id.String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", humanize.Time(entry.Time), entry.Op, entry.Field, summarize(ids, 3), entry.Count)
	}
	return w.Flush()
}

func cmdRevisions(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("revisions")
	n := fs.Int("n", 20, "Number of revisions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if e.app.git == nil {
		return errors.New("snapshot revisions require git persistence (-git or persistence.git)")
	}
	revs, err := e.app.git.Revisions(ctx, *n)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "HASH\tWHEN\tAUTHOR\tMESSAGE")
	for _, r := range revs {
		_, _ = fmt.Fprintf(w, "%.10s\t%s\t%s\t%s\n", r.Hash, humanize.Time(r.Date), r.Author, r.Message)
	}
	return w.Flush()
}

// cmdShow prints the rows as they were at a snapshot revision.
func cmdShow(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show <revision>")
	}
	if e.app.git == nil {
		return errors.New("snapshot revisions require git persistence (-git or persistence.git)")
	}
	data, err := e.app.git.SnapshotAt(ctx, args[0])
	if err != nil {
		return err
	}
	old, err := rows.FromJSON(string(data))
	if err != nil {
		return err
	}
	return printRows(e.stdout, old, len(old))
}

// summarize joins up to limit items, noting how many were left out.
func summarize(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ",")
	}
	return fmt.Sprintf("%s,+%d", strings.Join(items[:limit], ","), len(items)-limit)
}
