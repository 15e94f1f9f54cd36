package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hypebeast/go-osc/osc"

	"github.com/justyntemme/stylefx/pkg/remote"
	"github.com/justyntemme/stylefx/pkg/style"
	"github.com/justyntemme/stylefx/pkg/stylefx"
)

var paramNames = map[uint32]string{
	style.ParamSwing:            "swing",
	style.ParamAccent:           "accent",
	style.ParamHumanizeTiming:   "humanize_timing",
	style.ParamHumanizeVelocity: "humanize_velocity",
	style.ParamRemoteEnabled:    "remote_enabled",
	style.ParamRemotePort:       "remote_port",
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file.")
	host := fs.String("host", "", "Address to bind. Defaults to the configured host.")
	port := fs.Int("port", 0, "UDP port. Defaults to the configured port.")
	sf := addStyleFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	sf.apply(&cfg)
	cfg.Remote.Enabled = true
	if *host != "" {
		cfg.Remote.Host = *host
	}
	if *port != 0 {
		cfg.Remote.Port = *port
	}

	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	p, err := stylefx.New(cfg, log)
	if err != nil {
		return err
	}
	p.Store().Subscribe(func(id uint32, plain float64) {
		log.Info("%s = %g", paramNames[id], plain)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return err
	}
	log.Info("listening for OSC on %s:%d, press Ctrl-C to stop", cfg.Remote.Host, cfg.Remote.Port)
	<-ctx.Done()
	return p.Close()
}

// parseValue turns a command-line argument into an OSC argument. Booleans
// are sent as OSC true/false, everything else as float32.
func parseValue(s string) (interface{}, error) {
	switch s {
	case "true", "on":
		return true, nil
	case "false", "off":
		return false, nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return nil, fmt.Errorf("value %q is neither a number nor a boolean", s)
	}
	return float32(v), nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	host := fs.String("host", "127.0.0.1", "Destination host.")
	port := fs.Int("port", style.PortDefault, "Destination UDP port.")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stylefx send [flags] <path> <value>\n\nPaths:\n")
		for _, path := range []string{remote.PathSwing, remote.PathAccent, remote.PathHumanizeTiming,
			remote.PathHumanizeVelocity, remote.PathEnable, remote.PathPort} {
			fmt.Fprintf(os.Stderr, "  %s\n", path)
		}
		fmt.Fprintf(os.Stderr, "\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected a path and a value")
	}

	v, err := parseValue(fs.Arg(1))
	if err != nil {
		return err
	}
	client := osc.NewClient(*host, *port)
	if err := client.Send(osc.NewMessage(fs.Arg(0), v)); err != nil {
		return fmt.Errorf("send to %s:%d: %w", *host, *port, err)
	}
	return nil
}
