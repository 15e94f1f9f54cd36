// Command stylefx runs the style engine outside a plugin host: it renders
// MIDI files, serves the OSC control channel, and sends control messages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/justyntemme/stylefx/pkg/config"
	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/style"
	"github.com/justyntemme/stylefx/pkg/stylefx"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"render", "apply swing, accent and humanize to a MIDI file", runRender},
	{"serve", "run the OSC control channel and log parameter changes", runServe},
	{"send", "send one OSC control message", runSend},
	{"config", "print the effective configuration as YAML", runConfig},
	{"presets", "list the built-in style presets", runPresets},
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	for _, c := range commands {
		if c.name == name {
			if err := c.run(flag.Args()[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "stylefx %s: %v\n", name, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintf(os.Stderr, "stylefx: unknown command %q\n\n", name)
	flag.Usage()
	os.Exit(2)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "%s\n\nUsage:\n  stylefx <command> [flags]\n\nCommands:\n", stylefx.PluginInfo)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'stylefx <command> -h' for command flags.\n")
}

// loadConfig reads path, or the built-in defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newLogger builds the logger described by cfg. The returned closer is
// non-nil when logging to a file.
func newLogger(cfg config.Config) (*debug.Logger, io.Closer, error) {
	var (
		log    *debug.Logger
		closer io.Closer
	)
	if cfg.Log.File != "" {
		var err error
		log, closer, err = debug.NewFileLogger(cfg.Log.File, "stylefx", debug.DefaultFlags)
		if err != nil {
			return nil, nil, err
		}
	} else {
		log = debug.New(os.Stderr, "stylefx", debug.DefaultFlags)
	}
	log.SetLevel(cfg.LogLevel())
	return log, closer, nil
}

// styleFlags are the style overrides shared by render and serve.
type styleFlags struct {
	preset   *string
	swing    *float64
	accent   *float64
	timing   *float64
	velocity *float64
}

func addStyleFlags(fs *flag.FlagSet) styleFlags {
	return styleFlags{
		preset:   fs.String("preset", "", "Style preset ("+strings.Join(style.PresetNames(), ", ")+")."),
		swing:    fs.Float64("swing", -1, "Swing ratio, 0 to 1. 0.5 is straight."),
		accent:   fs.Float64("accent", -1, "Velocity added to on-beat notes, 0 to 50."),
		timing:   fs.Float64("humanize-timing", -1, "Timing humanize amount, 0 to 1."),
		velocity: fs.Float64("humanize-velocity", -1, "Velocity humanize amount, 0 to 1."),
	}
}

// apply overrides cfg with every flag that was given.
func (f styleFlags) apply(cfg *config.Config) {
	if *f.preset != "" {
		cfg.Style.Preset = *f.preset
	}
	if *f.swing >= 0 {
		cfg.Style.Swing = *f.swing
	}
	if *f.accent >= 0 {
		cfg.Style.Accent = *f.accent
	}
	if *f.timing >= 0 {
		cfg.Style.HumanizeTiming = *f.timing
	}
	if *f.velocity >= 0 {
		cfg.Style.HumanizeVelocity = *f.velocity
	}
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file.")
	outPath := fs.String("o", "", "Output MIDI file. Defaults to <input>.styled.mid.")
	sampleRate := fs.Float64("rate", 48000, "Sample rate of the simulated host.")
	blockSize := fs.Int("block", 256, "Block size of the simulated host in samples.")
	bpm := fs.Float64("bpm", 0, "Tempo override. Defaults to the first tempo in the file.")
	seed := fs.Uint64("seed", 0, "Humanize seed. Defaults to the configured seed.")
	sf := addStyleFlags(fs)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one input file, got %d", fs.NArg())
	}
	if *blockSize <= 0 || *sampleRate <= 0 {
		return fmt.Errorf("rate and block must be positive")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	sf.apply(&cfg)
	if *seed != 0 {
		cfg.Engine.Seed = *seed
	}
	cfg.Remote.Enabled = false
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

	opts := renderOptions{
		In:         fs.Arg(0),
		Out:        *outPath,
		SampleRate: *sampleRate,
		BlockSize:  *blockSize,
		BPM:        *bpm,
	}
	if opts.Out == "" {
		opts.Out = strings.TrimSuffix(opts.In, ".mid") + ".styled.mid"
	}

	res, err := render(p, opts, log)
	if err != nil {
		return err
	}
	log.Info("rendered %s -> %s: %d tracks, %d events at %.2f BPM (%s)",
		opts.In, opts.Out, res.Tracks, res.Events, res.BPM, p.Store().Snapshot())
	if res.Rejected > 0 {
		log.Warn("%d events did not fit a block and were dropped; raise engine.max_events", res.Rejected)
	}
	log.Debug("blocks: %s", p.Stats())
	return nil
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file. Defaults are printed when omitted.")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	return cfg.Write(os.Stdout)
}

func runPresets(args []string) error {
	fs := flag.NewFlagSet("presets", flag.ExitOnError)
	fs.Parse(args)

	for _, name := range style.PresetNames() {
		pr, _ := style.LookupPreset(name)
		fmt.Printf("%-10s swing=%.2f accent=%.0f humanize=%.2f/%.2f\n",
			name, pr.Swing, pr.Accent, pr.HumanizeTiming, pr.HumanizeVelocity)
	}
	return nil
}
