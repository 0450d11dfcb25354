//go:build linux

package sampler

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RCSampler measures the charge time of a touch electrode wired to a GPIO
// line. Each measurement discharges the line as an output driven low, then
// releases it as an input with pull-up and counts polls until it reads high.
// A finger adds capacitance and lengthens the count.
type RCSampler struct {
	*queue
	cfg  RCConfig
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	stop chan struct{}
	done chan struct{}
}

// NewRCSampler requests the line and starts measuring in the background.
func NewRCSampler(cfg RCConfig) (*RCSampler, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(cfg.Line, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request touch line %d: %w", cfg.Line, err)
	}

	s := &RCSampler{
		queue: newQueue(cfg.Queue),
		cfg:   cfg,
		chip:  chip,
		line:  line,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *RCSampler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var failing bool
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			n, err := s.measure()
			if err != nil {
				if !failing {
					log.Printf("sampler: measurement failed: %v", err)
					failing = true
				}
				continue
			}
			if failing {
				log.Printf("sampler: measurements recovered")
				failing = false
			}
			s.offer(n)
		}
	}
}

func (s *RCSampler) measure() (uint32, error) {
	if err := s.line.Reconfigure(gpiocdev.AsOutput(0)); err != nil {
		return 0, fmt.Errorf("discharge: %w", err)
	}
	if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		return 0, fmt.Errorf("release: %w", err)
	}

	var n uint32
	for n < s.cfg.MaxCount {
		v, err := s.line.Value()
		if err != nil {
			return 0, fmt.Errorf("read: %w", err)
		}
		if v == 1 {
			break
		}
		n++
	}
	return n, nil
}

// Close stops measuring and releases GPIO resources.
// The line is left as an input with pull-down, matching Pi boot defaults.
func (s *RCSampler) Close() error {
	close(s.stop)
	<-s.done

	var errs []error
	if s.line != nil {
		if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure touch line: %w", err))
		}
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close touch line: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
