package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/marmos91/blobfs/pkg/blobfs"
	"github.com/marmos91/blobfs/pkg/config"
	"github.com/marmos91/blobfs/pkg/store"
	"github.com/spf13/pflag"
)

type env struct {
	fsys   *blobfs.FS
	stdin  io.Reader
	stdout io.Writer
}

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

// commands is filled in init because the handlers refer back to it for
// their usage lines.
var commands map[string]command

func init() {
	commands = map[string]command{
		"ls":       {"ls [-l] [path]", "list a directory", runLs},
		"stat":     {"stat [--metadata] [--snapshots | --snapshot ID] path", "show file or directory status", runStat},
		"mkdir":    {"mkdir path...", "create directories", runMkdir},
		"rmdir":    {"rmdir path...", "remove empty directories", runRmdir},
		"rm":       {"rm [--snapshot ID | --snapshots-only | --keep-snapshots] path", "remove a file or its snapshots", runRm},
		"mv":       {"mv old new", "rename a file", runMv},
		"cat":      {"cat [--snapshot ID] path", "print a file", runCat},
		"put":      {"put [--exclusive] [--content-type T] [--meta k=v] local|- path", "upload a file", runPut},
		"snapshot": {"snapshot [--meta k=v] path", "take a snapshot of a file", runSnapshot},
		"setmeta":  {"setmeta [--snapshot ID] path [k=v...]", "replace the metadata of a file", runSetMeta},
		"url":      {"url [--snapshot ID] path", "print the backend URL of a file", runURL},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// usageError marks bad command lines; they exit with status 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func exitCode(err error) int {
	var uerr *usageError
	if errors.As(err, &uerr) {
		return 2
	}
	return 1
}

// parseFlags parses args with a per-command flag set and checks the number
// of positional arguments.
func parseFlags(flags *pflag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return nil, usagef("%v", err)
	}
	rest := flags.Args()
	if len(rest) < minArgs || (maxArgs >= 0 && len(rest) > maxArgs) {
		return nil, usagef("usage: blobfs %s", commands[flags.Name()].usage)
	}
	return rest, nil
}

func runLs(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("ls", pflag.ContinueOnError)
	long := flags.BoolP("long", "l", false, "show type, size and modification time")
	rest, err := parseFlags(flags, args, 0, 1)
	if err != nil {
		return err
	}

	dir := ""
	if len(rest) == 1 {
		dir = rest[0]
	}

	names, err := e.fsys.ReadDir(ctx, dir)
	if err != nil {
		return err
	}

	if !*long {
		for _, name := range names {
			fmt.Fprintln(e.stdout, name)
		}
		return nil
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, name := range names {
		st, err := e.fsys.Stat(ctx, e.fsys.Join(dir, name), blobfs.StatOptions{})
		if err != nil {
			return err
		}
		kind := "-"
		if st.IsDir() {
			kind = "d"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", kind, st.Size, formatTime(st.ModTime), name)
	}
	return tw.Flush()
}

func runStat(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("stat", pflag.ContinueOnError)
	withMetadata := flags.Bool("metadata", false, "include user metadata")
	withSnapshots := flags.Bool("snapshots", false, "list snapshots")
	snapshot := flags.String("snapshot", "", "stat one snapshot")
	rest, err := parseFlags(flags, args, 1, 1)
	if err != nil {
		return err
	}

	st, err := e.fsys.Stat(ctx, rest[0], blobfs.StatOptions{
		Metadata:  *withMetadata,
		Snapshot:  *snapshot,
		Snapshots: *withSnapshots,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 1, ' ', 0)
	kind := "file"
	if st.IsDir() {
		kind = "directory"
	}
	fmt.Fprintf(tw, "Path:\t%s\n", blobfs.Normalize(rest[0]))
	fmt.Fprintf(tw, "Type:\t%s\n", kind)
	fmt.Fprintf(tw, "Mode:\t%07o\n", st.Mode)
	fmt.Fprintf(tw, "Size:\t%d\n", st.Size)
	fmt.Fprintf(tw, "Modified:\t%s\n", formatTime(st.ModTime))
	if st.ContentSettings != nil && st.ContentSettings.ContentType != "" {
		fmt.Fprintf(tw, "Content-Type:\t%s\n", st.ContentSettings.ContentType)
	}
	if st.URL != "" {
		fmt.Fprintf(tw, "URL:\t%s\n", st.URL)
	}
	for _, k := range sortedKeys(st.Metadata) {
		fmt.Fprintf(tw, "Meta:\t%s=%s\n", k, st.Metadata[k])
	}
	for _, snap := range st.Snapshots {
		id := snap.ID
		if id == "" {
			id = "(live)"
		}
		fmt.Fprintf(tw, "Snapshot:\t%s\t%d\t%s\n", id, snap.Size, formatTime(snap.ModTime))
	}
	return tw.Flush()
}

func runMkdir(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("mkdir", pflag.ContinueOnError)
	rest, err := parseFlags(flags, args, 1, -1)
	if err != nil {
		return err
	}
	for _, p := range rest {
		if err := e.fsys.Mkdir(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func runRmdir(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("rmdir", pflag.ContinueOnError)
	rest, err := parseFlags(flags, args, 1, -1)
	if err != nil {
		return err
	}
	for _, p := range rest {
		if err := e.fsys.Rmdir(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func runRm(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("rm", pflag.ContinueOnError)
	snapshot := flags.String("snapshot", "", "delete only this snapshot")
	only := flags.Bool("snapshots-only", false, "delete the snapshots and keep the file")
	keep := flags.Bool("keep-snapshots", false, "fail instead of deleting snapshots")
	rest, err := parseFlags(flags, args, 1, 1)
	if err != nil {
		return err
	}

	opts := blobfs.UnlinkOptions{Snapshot: *snapshot}
	switch {
	case *only && *keep:
		return usagef("--snapshots-only and --keep-snapshots are mutually exclusive")
	case *only:
		opts.Snapshots = store.DeleteSnapshotsOnly
	case *keep:
		opts.Snapshots = store.DeleteSnapshotsNone
	}
	return e.fsys.Unlink(ctx, rest[0], opts)
}

func runMv(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("mv", pflag.ContinueOnError)
	rest, err := parseFlags(flags, args, 2, 2)
	if err != nil {
		return err
	}
	return e.fsys.Rename(ctx, rest[0], rest[1])
}

func runCat(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("cat", pflag.ContinueOnError)
	snapshot := flags.String("snapshot", "", "read a snapshot")
	rest, err := parseFlags(flags, args, 1, 1)
	if err != nil {
		return err
	}

	r, err := e.fsys.OpenReader(ctx, rest[0], blobfs.ReadOptions{Snapshot: *snapshot})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	_, err = io.Copy(e.stdout, r)
	return err
}

func runPut(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("put", pflag.ContinueOnError)
	exclusive := flags.BoolP("exclusive", "x", false, "fail if the file exists")
	contentType := flags.String("content-type", "", "content type to store")
	meta := flags.StringToStringP("meta", "m", nil, "metadata key=value (repeatable)")
	rest, err := parseFlags(flags, args, 2, 2)
	if err != nil {
		return err
	}

	src := e.stdin
	if rest[0] != "-" {
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	opts := blobfs.WriteOptions{
		Flag:            blobfs.FlagWrite,
		ContentSettings: store.ContentSettings{ContentType: *contentType},
		Metadata:        *meta,
	}
	if *exclusive {
		opts.Flag = blobfs.FlagWriteExclusive
	}

	w, err := e.fsys.OpenWriter(ctx, rest[1], opts)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func runSnapshot(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
	meta := flags.StringToStringP("meta", "m", nil, "snapshot metadata key=value (repeatable)")
	rest, err := parseFlags(flags, args, 1, 1)
	if err != nil {
		return err
	}

	id, err := e.fsys.Snapshot(ctx, rest[0], blobfs.SnapshotOptions{Metadata: *meta})
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, id)
	return nil
}

func runSetMeta(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("setmeta", pflag.ContinueOnError)
	snapshot := flags.String("snapshot", "", "target a snapshot")
	rest, err := parseFlags(flags, args, 1, -1)
	if err != nil {
		return err
	}

	md := make(map[string]string, len(rest)-1)
	for _, kv := range rest[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return usagef("invalid metadata %q, want key=value", kv)
		}
		md[k] = v
	}
	return e.fsys.SetMetadata(ctx, rest[0], md, blobfs.SetMetadataOptions{Snapshot: *snapshot})
}

func runURL(ctx context.Context, e *env, args []string) error {
	flags := pflag.NewFlagSet("url", pflag.ContinueOnError)
	snapshot := flags.String("snapshot", "", "address a snapshot")
	rest, err := parseFlags(flags, args, 1, 1)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.fsys.URL(rest[0], *snapshot))
	return nil
}

// runInit writes a sample config to path, or to the default location.
func runInit(args []string, path string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("init", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	force := flags.BoolP("force", "f", false, "overwrite an existing config file")
	if err := flags.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if flags.NArg() != 0 {
		return usagef("usage: blobfs [--config FILE] init [--force]")
	}

	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Configuration written to %s\n", path)
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
