package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"student_records/internal/app"
	"student_records/internal/config"
	"student_records/internal/model"
	"student_records/pkg/cipher"
	"student_records/pkg/logger"
)

type options struct {
	configDir   string
	input       string
	restore     string
	fromArchive string
	importID    string
	top         bool
	course      string
	group       string
	sortKey     string
	list        bool
	display     bool
	save        string
	saveTop     string
	archive     bool
	archives    bool
	dropArchive string
	export      bool
	exports     bool
	cipherIn    string
	decipherIn  string
	serve       bool
}

func parseFlags() (*options, map[string]bool) {
	o := &options{}
	flag.StringVar(&o.configDir, "config", "configs", "directory holding config.yaml")
	flag.StringVar(&o.input, "input", "", "promotion text file (default data.input)")
	flag.StringVar(&o.restore, "restore", "", "reload the promotion from this binary file before display")
	flag.StringVar(&o.fromArchive, "from-archive", "", "load the promotion from this archived snapshot")
	flag.StringVar(&o.importID, "import", "", "load the promotion exported under this id from the database")
	flag.BoolVar(&o.top, "top", false, "print the best overall averages")
	flag.StringVar(&o.course, "course", "", "print the best averages in this course")
	flag.StringVar(&o.group, "group", "", "print the students who validated every course of this group")
	flag.StringVar(&o.sortKey, "sort", "", "sort key: id, first_name, last_name, average, min_course")
	flag.BoolVar(&o.list, "list", false, "print the students in the active order")
	flag.BoolVar(&o.display, "display", false, "print the whole promotion")
	flag.StringVar(&o.save, "save", "", "save the promotion to this binary file")
	flag.StringVar(&o.saveTop, "save-top", "", "save the top students to this binary file")
	flag.BoolVar(&o.archive, "archive", false, "upload a snapshot to the configured storage")
	flag.BoolVar(&o.archives, "archives", false, "list the archived snapshots, then exit")
	flag.StringVar(&o.dropArchive, "drop-archive", "", "delete this archived snapshot, then exit")
	flag.BoolVar(&o.export, "export", false, "write the promotion to the database")
	flag.BoolVar(&o.exports, "exports", false, "list the promotions exported to the database, then exit")
	flag.StringVar(&o.cipherIn, "cipher", "", "cipher this file into the path given as argument, then exit")
	flag.StringVar(&o.decipherIn, "decipher", "", "decipher this file into the path given as argument, then exit")
	flag.BoolVar(&o.serve, "serve", false, "serve the promotion over HTTP")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set
}

func main() {
	opts, set := parseFlags()

	cfg, err := config.LoadConfig(opts.configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application, err := app.NewApp(cfg, opts.configDir)
	if err != nil {
		logger.Log.Error("Failed to initialize", zap.Error(err))
		os.Exit(1)
	}

	err = run(context.Background(), application, opts, set, os.Stdout)
	application.Close()
	if err != nil {
		logger.Log.Error("Fatal error", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, o *options, set map[string]bool, out io.Writer) error {
	if o.cipherIn != "" || o.decipherIn != "" {
		return runCipher(a.Config, o)
	}

	svc := a.Service
	if o.archives {
		names, err := svc.ListArchives(ctx)
		if err != nil {
			return err
		}
		printLines(out, "Archives", names)
		return nil
	}
	if o.dropArchive != "" {
		return svc.DeleteArchive(ctx, o.dropArchive)
	}
	if o.exports {
		ids, err := svc.ListExports(ctx)
		if err != nil {
			return err
		}
		printLines(out, "Exports", ids)
		return nil
	}

	p, err := load(ctx, a, o, set)
	if err != nil {
		return err
	}

	if o.sortKey != "" {
		if err := svc.SetSortKey(p, o.sortKey); err != nil {
			return err
		}
	}

	if o.top {
		printLines(out, "Top students", svc.TopOverall(ctx, p))
	}
	if o.course != "" {
		names, err := svc.TopInCourse(ctx, p, o.course)
		if err != nil {
			return err
		}
		printLines(out, "Top students in "+o.course, names)
	}
	if o.group != "" {
		students, err := svc.StudentsValidating(p, o.group)
		if err != nil {
			return err
		}
		printLines(out, "Validated "+o.group, model.DisplayNames(students))
	}

	if o.save != "" {
		if err := svc.SaveToBinary(ctx, p, o.save); err != nil {
			return err
		}
	}
	if o.saveTop != "" {
		if err := svc.SaveTop(ctx, p, o.saveTop); err != nil {
			return err
		}
	}
	if o.archive {
		name, err := svc.Archive(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "archived", name)
	}
	if o.export {
		if err := svc.Export(ctx, p); err != nil {
			return err
		}
		fmt.Fprintln(out, "exported", p.ID)
	}

	if o.restore != "" && set["input"] {
		// reload what was just written
		if p, err = svc.LoadFromBinary(ctx, o.restore); err != nil {
			return err
		}
	}

	if o.list {
		printLines(out, "", svc.SortedListing(p))
	}
	if o.display {
		if err := svc.Display(out, p); err != nil {
			return err
		}
	}

	if o.serve {
		return a.Run(p)
	}
	return nil
}

// load picks the promotion source. Text is the default; a binary file, an
// archive or a database export replaces it when asked for without -input.
func load(ctx context.Context, a *app.App, o *options, set map[string]bool) (*model.Promotion, error) {
	svc := a.Service
	switch {
	case set["input"]:
		return svc.LoadFromText(ctx, o.input)
	case o.restore != "":
		return svc.LoadFromBinary(ctx, o.restore)
	case o.fromArchive != "":
		return svc.Restore(ctx, o.fromArchive)
	case o.importID != "":
		return svc.Import(ctx, o.importID)
	}
	if a.Config.Data.Input == "" {
		return nil, errors.New("no input file: set -input or data.input")
	}
	return svc.LoadFromText(ctx, a.Config.Data.Input)
}

func runCipher(cfg *config.Config, o *options) error {
	dst := flag.Arg(0)
	if dst == "" {
		return errors.New("missing output path")
	}
	pass := cfg.Cipher.Passphrase
	if o.cipherIn != "" {
		return cipher.EncryptFile(o.cipherIn, dst, pass)
	}
	return cipher.DecryptFile(o.decipherIn, dst, pass)
}

func printLines(w io.Writer, title string, lines []string) {
	if title != "" {
		fmt.Fprintf(w, "%s (%d):\n", title, len(lines))
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
