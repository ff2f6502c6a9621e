package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"podcut/internal/cutlist"
	"podcut/internal/cuts"
	"podcut/internal/textutil"
)

const editHelp = `Commands:
  start T          mark the start of a cut at time T (seconds, M:SS or H:MM:SS)
  end T            close the pending cut at time T
  cancel           drop the pending cut
  update ID S E    move cut ID to S-E
  delete ID        remove cut ID
  at T             show the cut containing T
  list             list cuts
  clear            remove every cut
  plan             show the keep segments
  export [path]    write the cut list
  apply [out]      apply the cuts
  help             show this help
  quit             leave the session`

// editSession drives a cut store from line commands.
type editSession struct {
	cmd       *cobra.Command
	ctx       *commandContext
	flags     *cutFlags
	audioPath string
	store     *cuts.Store
	out       io.Writer

	total float64
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var flags cutFlags

	cmd := &cobra.Command{
		Use:   "edit <audio>",
		Short: "Mark cuts interactively and apply or export them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			session := &editSession{
				cmd:       cmd,
				ctx:       ctx,
				flags:     &flags,
				audioPath: args[0],
				store:     cuts.NewStore(),
				out:       cmd.OutOrStdout(),
			}
			if err := session.loadExisting(); err != nil {
				return err
			}
			return session.run(cmd.InOrStdin(), isTerminal(cmd.InOrStdin()))
		},
	}

	cmd.Flags().StringVar(&flags.cutsFile, "cuts", "", "Cut list to start from (default <name>-cuts.json when present)")
	cmd.Flags().StringVar(&flags.duration, "duration", "", "Total duration of the audio (skips ffprobe)")
	return cmd
}

func (s *editSession) loadExisting() error {
	path := strings.TrimSpace(s.flags.cutsFile)
	explicit := path != ""
	if !explicit {
		path = exportTarget(s.audioPath, "")
	}
	doc, err := cutlist.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	s.store.Load(doc.Regions())
	fmt.Fprintf(s.out, "Loaded %d cut(s) from %s\n", s.store.Len(), path)
	return nil
}

func (s *editSession) run(in io.Reader, interactive bool) error {
	stopList := s.store.OnListChanged(func(regions []cuts.Region) {
		fmt.Fprintf(s.out, "%d cut(s)\n", countComplete(regions))
	})
	defer stopList()
	stopPending := s.store.OnPendingChanged(func(r *cuts.Region) {
		if r == nil {
			return
		}
		fmt.Fprintf(s.out, "Pending cut from %s\n", textutil.FormatClock(r.Start))
	})
	defer stopPending()

	if interactive {
		fmt.Fprintf(s.out, "Editing %s. Type \"help\" for commands.\n", filepath.Base(s.audioPath))
	}
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(s.out, "podcut> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, err := s.execute(strings.Fields(line))
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// execute runs one command and reports whether the session should end.
func (s *editSession) execute(fields []string) (bool, error) {
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "start":
		t, err := oneTime(args)
		if err != nil {
			return false, err
		}
		s.store.MarkStart(t)
	case "end":
		t, err := oneTime(args)
		if err != nil {
			return false, err
		}
		r, ok := s.store.MarkEnd(t)
		if !ok {
			return false, errors.New("no pending cut; use start first")
		}
		fmt.Fprintf(s.out, "Added %s\n", describeRegion(r))
	case "cancel":
		if _, ok := s.store.Pending(); !ok {
			return false, errors.New("no pending cut")
		}
		s.store.CancelPending()
		fmt.Fprintln(s.out, "Pending cut canceled")
	case "update":
		if len(args) != 3 {
			return false, errors.New("usage: update ID START END")
		}
		start, err := textutil.ParseClock(args[1])
		if err != nil {
			return false, err
		}
		end, err := textutil.ParseClock(args[2])
		if err != nil {
			return false, err
		}
		if !s.store.UpdateCut(args[0], start, end) {
			return false, fmt.Errorf("no cut %s", args[0])
		}
	case "delete":
		if len(args) != 1 {
			return false, errors.New("usage: delete ID")
		}
		if !s.store.DeleteCut(args[0]) {
			return false, fmt.Errorf("no cut %s", args[0])
		}
	case "at":
		t, err := oneTime(args)
		if err != nil {
			return false, err
		}
		if r, ok := s.store.CutAt(t); ok {
			fmt.Fprintln(s.out, describeRegion(r))
		} else {
			fmt.Fprintf(s.out, "No cut at %s\n", textutil.FormatClock(t))
		}
	case "list":
		s.list()
	case "clear":
		s.store.ClearAll()
	case "plan":
		total, err := s.totalDuration()
		if err != nil {
			return false, err
		}
		out, err := buildPlanOutput(s.store.Regions(), total, s.audioPath)
		if err != nil {
			return false, err
		}
		writePlanText(s.out, out)
	case "export":
		target := exportTarget(s.audioPath, strings.Join(args, " "))
		doc, err := cutlist.Export(target, filepath.Base(s.audioPath), s.store.Regions())
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "Exported %d cut(s) to %s\n", len(doc.Cuts), target)
	case "apply":
		total, err := s.totalDuration()
		if err != nil {
			return false, err
		}
		return false, applyCuts(s.cmd, s.ctx, applyRequest{
			audioPath:  s.audioPath,
			outputPath: strings.Join(args, " "),
			regions:    s.store.Regions(),
			total:      total,
		})
	case "help", "?":
		fmt.Fprintln(s.out, editHelp)
	case "quit", "exit", "q":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (s *editSession) list() {
	regions := s.store.Regions()
	if len(regions) == 0 {
		fmt.Fprintln(s.out, "No cuts")
	} else {
		rows := make([][]string, 0, len(regions))
		for _, r := range regions {
			rows = append(rows, []string{
				r.ID,
				textutil.FormatClock(r.Start),
				textutil.FormatClock(*r.End),
				textutil.FormatSeconds(r.Duration()),
			})
		}
		fmt.Fprintln(s.out, renderTable([]string{"ID", "Start", "End", "Length"}, rows, []columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
	}
	if p, ok := s.store.Pending(); ok {
		fmt.Fprintf(s.out, "Pending cut from %s\n", textutil.FormatClock(p.Start))
	}
}

func (s *editSession) totalDuration() (float64, error) {
	if s.total > 0 {
		return s.total, nil
	}
	cfg, err := s.ctx.ensureConfig()
	if err != nil {
		return 0, err
	}
	total, err := s.flags.totalDuration(s.cmd.Context(), cfg, s.audioPath)
	if err != nil {
		return 0, err
	}
	s.total = total
	return total, nil
}

func oneTime(args []string) (float64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one time argument")
	}
	return textutil.ParseClock(args[0])
}

func describeRegion(r cuts.Region) string {
	if r.End == nil {
		return fmt.Sprintf("%s %s-?", r.ID, textutil.FormatClock(r.Start))
	}
	return fmt.Sprintf("%s %s-%s (%s)", r.ID, textutil.FormatClock(r.Start), textutil.FormatClock(*r.End), textutil.FormatSeconds(r.Duration()))
}

func countComplete(regions []cuts.Region) int {
	n := 0
	for _, r := range regions {
		if r.Complete() {
			n++
		}
	}
	return n
}
