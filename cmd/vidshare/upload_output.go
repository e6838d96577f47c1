package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/mattn/go-isatty"

	"github.com/vidshare/client/internal/videos"
)

// uploadPrinter renders pipeline stage transitions and the two-point
// transfer progress. Interactive terminals get a live tracker; everything
// else gets plain lines.
type uploadPrinter struct {
	out     io.Writer
	fancy   bool
	pw      progress.Writer
	tracker *progress.Tracker
}

func newUploadPrinter(out io.Writer) *uploadPrinter {
	fancy := false
	if f, ok := out.(*os.File); ok {
		fancy = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &uploadPrinter{out: out, fancy: fancy}
}

func (p *uploadPrinter) UploadStage(stage videos.Stage) {
	fmt.Fprintf(p.out, "-> %s\n", stage)
}

func (p *uploadPrinter) UploadProgress(fraction float64) {
	if !p.fancy {
		fmt.Fprintf(p.out, "   transfer %3.0f%%\n", fraction*100)
		return
	}

	if fraction <= 0 {
		p.pw = progress.NewWriter()
		p.pw.SetOutputWriter(p.out)
		p.pw.SetUpdateFrequency(100 * time.Millisecond)
		p.tracker = &progress.Tracker{Message: "transferring", Total: 100}
		p.pw.AppendTracker(p.tracker)
		go p.pw.Render()
		return
	}

	if p.tracker != nil {
		p.tracker.SetValue(int64(fraction * 100))
		p.tracker.MarkAsDone()
	}
	if p.pw != nil {
		p.pw.Stop()
	}
}
