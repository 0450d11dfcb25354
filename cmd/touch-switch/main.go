// Command touch-switch turns a capacitive touch pad into a dimmable light
// switch and publishes gestures and light changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ggtrigg/touch-switch/internal/config"
	"github.com/ggtrigg/touch-switch/internal/fixture"
	"github.com/ggtrigg/touch-switch/internal/logic"
	"github.com/ggtrigg/touch-switch/internal/mqtt"
	"github.com/ggtrigg/touch-switch/internal/sampler"
	"github.com/ggtrigg/touch-switch/internal/status"
	"github.com/ggtrigg/touch-switch/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (empty for built-in defaults)")
	poll := flag.Duration("poll", time.Millisecond, "Sampling tick interval")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	printSamples := flag.Int("print-samples", 0, "Print N raw samples and exit")

	flag.Parse()

	paho.ERROR = log.New(os.Stderr, "mqtt: ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Loop.Poll = *poll
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "heartbeat":
			cfg.Loop.Heartbeat = *heartbeat
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printSamples); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printSamples int) error {
	src, err := openSampler(cfg.Sampler)
	if err != nil {
		return fmt.Errorf("init sampler: %w", err)
	}
	defer src.Close()

	ticker := time.NewTicker(cfg.Loop.Poll)
	defer ticker.Stop()

	// Print samples mode
	if printSamples > 0 {
		var done <-chan struct{}
		if s, ok := src.(*sampler.StreamSampler); ok {
			done = s.Done()
		}
		return printRaw(os.Stdout, src, printSamples, ticker.C, done)
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT.Publisher())
	defer publisher.Close()

	out, closers, err := openOutputs(cfg.Fixture, publisher)
	if err != nil {
		return fmt.Errorf("init fixture: %w", err)
	}
	for _, c := range closers {
		defer c.Close()
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollUs:      cfg.Loop.Poll.Microseconds(),
		HeartbeatMs: cfg.Loop.Heartbeat.Milliseconds(),
		RefreshMs:   cfg.Loop.Refresh.Milliseconds(),
		Sampler:     cfg.Sampler.Kind,
		Fixture:     strings.Join(cfg.Fixture.Kinds, ","),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		Tuning:      cfg.Tuning,
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v sampler=%s fixture=%s broker=%s heartbeat=%v",
		cfg.Loop.Poll, cfg.Sampler.Kind, tracker.Snapshot().Config.Fixture, cfg.MQTT.Broker, cfg.Loop.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(src, cfg.Tuning, out, publisher, publisher, tracker,
		cfg.Loop.Heartbeat, cfg.Loop.Refresh, time.Now, ticker.C, sigCh)
}

// dropCounter is implemented by samplers that discard samples under load.
type dropCounter interface {
	Dropped() uint64
}

// finiteSampler is implemented by samplers whose source can end, such as a
// serial stream or stdin.
type finiteSampler interface {
	Done() <-chan struct{}
}

// reasonStreamEnded is the SHUTDOWN reason when the sample source runs dry.
const reasonStreamEnded = "STREAM_ENDED"

func runLoop(src sampler.Sampler, tuning logic.Tuning, out logic.Output, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat, refresh time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	ch := logic.NewChannel(tuning)
	act := logic.NewActuator(out, tuning.RampDivisor)
	mon := logic.NewMonitor(startTime)
	lastRefresh := startTime
	drops, _ := src.(dropCounter)

	// ended stays nil for sources that never run dry.
	var ended <-chan struct{}
	if f, ok := src.(finiteSampler); ok {
		ended = f.Done()
	}

	shutdown := func(reason string) {
		event := mqtt.SystemEvent{
			Timestamp: now(),
			Event:     "SHUTDOWN",
			Reason:    reason,
			Retained:  true,
		}
		if tracker != nil {
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			shutdown(signalName)
			return nil

		case <-tick:
			t := now()

			if refresh > 0 && t.Sub(lastRefresh) >= refresh {
				act.Refresh()
				lastRefresh = t
			}

			raw, ok := src.Poll()
			if !ok {
				// The reader queues every sample before closing Done, so an
				// empty queue after Done means the source is exhausted.
				select {
				case <-ended:
					log.Printf("sample stream ended, shutting down")
					shutdown(reasonStreamEnded)
					return nil
				default:
				}
				// No fresh sample: the core does not advance this tick.
				continue
			}

			g := ch.Classify(raw)
			act.Advance(g)
			events := mon.Observe(logic.Input{
				Gesture:    g,
				Light:      act.State(),
				Brightness: act.Brightness(),
				Calibrated: ch.Calibrated(),
				Time:       t,
			})

			for _, event := range events {
				log.Printf("event: %s (gesture=%s light=%s brightness=%d)", event.Type, event.Gesture, event.Light, event.Brightness)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			if tracker != nil {
				tracker.Update(touchStatus(ch, act, mon))
				if drops != nil {
					tracker.SetDropped(drops.Dropped())
				}
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if !mon.IsReady() {
				// Still calibrating
				continue
			}

			if hbData := mon.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v ticks=%d short=%d long=%d on=%d off=%d",
					hbData.Uptime, hbData.Ticks, hbData.Counts.Short, hbData.Counts.Long, hbData.Counts.On, hbData.Counts.Off)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func touchStatus(ch *logic.Channel, act *logic.Actuator, mon *logic.Monitor) status.Touch {
	lo, hi := ch.Window()
	level, hasLevel := ch.Level()
	return status.Touch{
		Gesture:    mon.LastGesture(),
		Light:      act.State(),
		Brightness: act.Brightness(),
		WindowLo:   lo,
		WindowHi:   hi,
		Level:      level,
		HasLevel:   hasLevel,
		Held:       ch.Held(),
		Ready:      mon.IsReady(),
		Ticks:      mon.Ticks(),
		Counts:     mon.EventCountsSnapshot(),
	}
}

func openSampler(cfg config.Sampler) (sampler.Sampler, error) {
	switch cfg.Kind {
	case config.SamplerSerial:
		s, err := sampler.OpenSerial(cfg.Device, cfg.Port, cfg.Queue)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SamplerRC:
		s, err := sampler.NewRCSampler(cfg.RC())
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SamplerStdin:
		// Close leaves stdin open; the reader goroutine ends at EOF or exit.
		return sampler.NewStreamSampler(io.NopCloser(os.Stdin), cfg.Queue), nil
	}
	return nil, fmt.Errorf("unknown sampler kind %q", cfg.Kind)
}

// openAPA102 is replaced in tests that cannot reach a serial device.
var openAPA102 = fixture.OpenAPA102

// openOutputs builds the configured fixtures. The returned closers release
// any devices that were opened.
func openOutputs(cfg config.Fixture, pub fixture.BrightnessPublisher) (logic.Output, []io.Closer, error) {
	curve, err := fixture.ParseCurve(cfg.Curve)
	if err != nil {
		return nil, nil, err
	}

	var outs fixture.Multi
	var closers []io.Closer
	for _, kind := range cfg.Kinds {
		switch kind {
		case config.FixtureAPA102:
			led, c, err := openAPA102(cfg.Device, cfg.Port, curve)
			if err != nil {
				for _, c := range closers {
					c.Close()
				}
				return nil, nil, err
			}
			outs = append(outs, led)
			closers = append(closers, c)
		case config.FixtureMQTT:
			outs = append(outs, fixture.NewMQTT(pub, curve))
		default:
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, fmt.Errorf("unknown fixture kind %q", kind)
		}
	}
	return outs, closers, nil
}

// printRaw writes n raw samples to w, one per line.
func printRaw(w io.Writer, src sampler.Sampler, n int, tick <-chan time.Time, done <-chan struct{}) error {
	for printed := 0; printed < n; {
		select {
		case <-done:
			// Drain anything queued before the source ended.
			for printed < n {
				raw, ok := src.Poll()
				if !ok {
					return fmt.Errorf("sample source ended after %d of %d samples", printed, n)
				}
				fmt.Fprintf(w, "%d\n", raw)
				printed++
			}
		case <-tick:
			if raw, ok := src.Poll(); ok {
				fmt.Fprintf(w, "%d\n", raw)
				printed++
			}
		}
	}
	return nil
}
