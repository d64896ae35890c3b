package location

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// DecodeTrack reads a JSON-lines GPS track. Blank lines and lines starting
// with '#' are ignored; malformed lines are counted in skipped.
func DecodeTrack(r io.Reader) (samples []Sample, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var sample Sample
		if err := json.Unmarshal([]byte(line), &sample); err != nil {
			skipped++
			continue
		}
		if !sample.Point().Valid() {
			skipped++
			continue
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading track: %w", err)
	}
	return samples, skipped, nil
}

// ReplaySource plays a recorded track at a fixed pace. Timestamps are
// rewritten to the replay clock.
type ReplaySource struct {
	samples   []Sample
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	now       func() time.Time
}

func NewReplaySource(samples []Sample, interval time.Duration) *ReplaySource {
	if interval <= 0 {
		interval = time.Second
	}
	return &ReplaySource{
		samples:   samples,
		interval:  interval,
		newTicker: newRealTicker,
		now:       time.Now,
	}
}

func (r *ReplaySource) Subscribe(ctx context.Context, _ StreamOptions) (<-chan Update, error) {
	ch := make(chan Update)
	go func() {
		defer close(ch)
		ticker := r.newTicker(r.interval)
		defer ticker.Stop()
		for _, sample := range r.samples {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
			}
			sample.Timestamp = r.now()
			select {
			case <-ctx.Done():
				return
			case ch <- Update{Sample: sample}:
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}
