// Package progress renders parse progress on stderr for the CLI. The engine
// itself stays silent; it ticks an analyzer.Tracker whose callback feeds the
// bar here.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Bar renders a file-count progress bar. The total is unknown until the
// catalog stage reports it, so the bar starts indeterminate and snaps to the
// real maximum on the first update.
type Bar struct {
	bar   *progressbar.ProgressBar
	label string
}

// NewBar creates a bar with the given label.
func NewBar(label string) *Bar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Bar{bar: bar, label: label}
}

// Update advances the bar by one file. The signature matches
// analyzer.ProgressFunc so the bar plugs straight into a Tracker.
func (b *Bar) Update(done, total int, path string) {
	if total > 0 && b.bar.GetMax() != total {
		b.bar.ChangeMax(total)
	}
	b.bar.Add(1)
}

// Finish clears the bar completely.
func (b *Bar) Finish() {
	b.bar.Finish()
	b.bar.Clear()
}

// FinishError clears the bar and prints the error to stderr.
func (b *Bar) FinishError(err error) {
	b.bar.Finish()
	b.bar.Clear()
	fmt.Fprintf(os.Stderr, "  %s error: %v\n", b.label, err)
}
