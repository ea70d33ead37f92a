package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// checkProgress reports compile progress with a progress bar.
type checkProgress struct {
	quiet     bool
	out       io.Writer
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	startTime time.Time
}

func newCheckProgress(out io.Writer, quiet bool) *checkProgress {
	return &checkProgress{
		quiet:     quiet,
		out:       out,
		startTime: time.Now(),
	}
}

func (c *checkProgress) OnStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Compiling models"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

// OnFileChecked is safe to call from concurrent workers.
func (c *checkProgress) OnFileChecked(fileName string) {
	if c.quiet || c.bar == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bar.Add(1)
}

func (c *checkProgress) OnComplete(files, errs, warnings int) {
	if c.quiet {
		return
	}
	if c.bar != nil {
		c.bar.Finish()
	}
	fmt.Fprintf(c.out, "✓ Checked %s files in %.1fs: %s error(s), %s warning(s)\n",
		formatNumber(files), time.Since(c.startTime).Seconds(),
		formatNumber(errs), formatNumber(warnings))
}

// formatNumber groups thousands with commas.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Simple implementation for thousands/millions
	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
