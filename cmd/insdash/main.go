package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/shaunagostinho/ins-dash/internal/ins"
	"github.com/shaunagostinho/ins-dash/internal/monitor"
	"github.com/shaunagostinho/ins-dash/internal/mqttlink"
	"github.com/shaunagostinho/ins-dash/internal/poller"
	"github.com/shaunagostinho/ins-dash/internal/render"
	"github.com/shaunagostinho/ins-dash/internal/server"
	"github.com/shaunagostinho/ins-dash/internal/source"
	"github.com/shaunagostinho/ins-dash/internal/telemetry"
	"github.com/shaunagostinho/ins-dash/internal/tui"
	"github.com/shaunagostinho/ins-dash/web"
)

const Version = "v0.3.0"

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/insdash/config.yaml", "Path to config file")
		listenAddr = pflag.StringP("listen", "l", "", "Override listen address (e.g. :8080)")
		demo       = pflag.Bool("demo", false, "Replace every unit with a simulated one")
		terminal   = pflag.Bool("tui", false, "Show the dashboard in the terminal as well")
		version    = pflag.BoolP("version", "v", false, "Print version and exit")
	)
	pflag.Parse()

	if *version {
		fmt.Printf("insdash %s\n", Version)
		return
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if *terminal {
		// The terminal belongs to the TUI; keep logs in a file.
		f, err := tea.LogToFile("insdash.log", "")
		if err != nil {
			log.Fatalf("[main] open log file: %v", err)
		}
		defer f.Close()
	}
	log.Printf("[main] insdash %s starting", Version)

	cfg := server.LoadConfig(*configPath)
	if *demo {
		cfg.UseDemo()
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		log.Printf("[main] shutting down")
	}()

	// Backend acquisition
	var mon *monitor.Monitor
	if cfg.Monitor.Enabled {
		var err error
		mon, err = startMonitor(ctx, cfg)
		if err != nil {
			log.Fatalf("[main] %v", err)
		}
		defer mon.Stop()
	}

	src, err := buildSource(cfg, mon)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	log.Printf("[main] dashboard source: %s", src.Name())

	// Displays
	hub := server.NewHub()
	displays := render.Displays{hub}
	var program *tea.Program
	if *terminal {
		units := make([]tui.Unit, len(cfg.Units))
		for i, u := range cfg.Units {
			units[i] = tui.Unit{ID: u.ID, Name: u.Name}
		}
		program = tea.NewProgram(tui.NewModel(units), tea.WithAltScreen(), tea.WithContext(ctx))
		displays = append(displays, tui.NewDisplay(program))
	}
	dash := render.NewDashboard(displays)

	// Poll loops
	snapLoop, err := poller.New(poller.Config[*telemetry.Snapshot]{
		Name:     "snapshot",
		Source:   source.Snapshots(src),
		Interval: server.Interval(cfg.Source.IntervalMs, time.Second),
		OnData:   dash.ApplySnapshot,
		OnError:  dash.ApplyFailure,
	})
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	posLoop, err := poller.New(poller.Config[*telemetry.Positions]{
		Name:     "positions",
		Source:   source.PositionStream(src),
		Interval: server.Interval(cfg.Source.PositionsIntervalMs, time.Second),
		OnData:   dash.ApplyPositions,
	})
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	srv, err := server.New(cfg, server.Deps{
		Dashboard: dash,
		Hub:       hub,
		Monitor:   mon,
		Loops:     []server.StatsReporter{snapLoop, posLoop},
		Web:       web.FS,
	})
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	if err := snapLoop.Start(ctx); err != nil {
		log.Fatalf("[main] %v", err)
	}
	if err := posLoop.Start(ctx); err != nil {
		log.Fatalf("[main] %v", err)
	}
	defer func() {
		snapLoop.Stop()
		posLoop.Stop()
		<-snapLoop.Done()
		<-posLoop.Done()
	}()

	if program == nil {
		if err := srv.Run(ctx); err != nil {
			log.Printf("[main] server exited: %v", err)
		}
		return
	}

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Printf("[main] server exited: %v", err)
		}
	}()
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Printf("[main] terminal exited: %v", err)
	}
	cancel()
}

func startMonitor(ctx context.Context, cfg *server.Config) (*monitor.Monitor, error) {
	units := make([]monitor.Unit, 0, len(cfg.Units))
	for i, u := range cfg.Units {
		client, err := ins.New(cfg.INSConfig(i))
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		units = append(units, monitor.Unit{ID: u.ID, Client: client})
		log.Printf("[main] unit %s: %s", u.ID, client.Name())
	}

	mcfg := monitor.Config{
		Interval: server.Interval(cfg.Monitor.IntervalMs, time.Second),
		History:  time.Duration(cfg.Monitor.HistoryMinutes) * time.Minute,
	}
	if cfg.Monitor.Publish {
		pub, err := mqttlink.NewPublisher(cfg.MQTTLink())
		if err != nil {
			return nil, err
		}
		mcfg.Publisher = pub
		go func() {
			<-ctx.Done()
			pub.Close()
		}()
	}

	mon := monitor.New(units, mcfg)
	if err := mon.Start(ctx); err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		for _, u := range units {
			u.Client.Close()
		}
	}()
	return mon, nil
}

func buildSource(cfg *server.Config, mon *monitor.Monitor) (source.Source, error) {
	switch cfg.Source.Type {
	case server.SourceHTTP:
		return source.NewHTTP(cfg.Source.URL, time.Duration(cfg.Source.TimeoutMs)*time.Millisecond), nil
	case server.SourceMQTT:
		sub, err := mqttlink.NewSubscriber(cfg.MQTTLink())
		if err != nil {
			return nil, err
		}
		history := monitor.NewHistory(time.Duration(cfg.Monitor.HistoryMinutes)*time.Minute, 0)
		return source.NewMQTT(cfg.MQTT.Topic, sub, history), nil
	default:
		return source.NewLocal(mon), nil
	}
}
