package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/emmett/voxremote/internal/app"
	"github.com/emmett/voxremote/internal/audio"
	"github.com/emmett/voxremote/internal/config"
	"github.com/emmett/voxremote/internal/dispatch"
	"github.com/emmett/voxremote/internal/input"
	"github.com/emmett/voxremote/internal/log"
	"github.com/emmett/voxremote/internal/media"
	"github.com/emmett/voxremote/internal/models"
	"github.com/emmett/voxremote/internal/observe"
	"github.com/emmett/voxremote/internal/output"
	"github.com/emmett/voxremote/internal/recognition"
	"github.com/emmett/voxremote/internal/stt"
	"github.com/emmett/voxremote/internal/ui"
	"github.com/emmett/voxremote/internal/vocab"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.voxremoterc or /etc/voxremote/config.yaml)")
	listModels     = flag.Bool("list-models", false, "List all available models for download")
	listDownloaded = flag.Bool("list-downloaded", false, "List all downloaded models")
	downloadModel  = flag.String("download-model", "", "Download a specific model by name")
	setDefault     = flag.String("set-default", "", "Set a model as the default")
	modelName      = flag.String("model", "", "Use a specific model instead of looking one up by locale")
	locale         = flag.String("locale", "", "Recognizer locale (default: en-US)")
	listDevices    = flag.Bool("list-devices", false, "List all available audio input devices")
	audioDevice    = flag.String("device", "", "Audio input device ID, index or name (use -list-devices to see available devices)")
	wavFile        = flag.String("wav", "", "Replay a 16 kHz mono 16-bit WAV file instead of the microphone")
	backend        = flag.String("backend", "", "Command target: keys (media keys) or mpris (D-Bus player)")
	player         = flag.String("player", "", "Preferred MPRIS player, e.g. spotify")
	outputFormat   = flag.String("format", "", "Output format: tui, console, json")
	outputFile     = flag.String("output", "", "Output file for console/json format (default: stdout)")
	logPath        = flag.String("logpath", "", "Log directory (default: VOXREMOTE_LOG_PATH or OS default)")
	logLevel       = flag.String("log-level", "", "Log level: debug, info, warn, error")
	enableMetrics  = flag.Bool("metrics", false, "Collect metrics and write a summary to the log on exit")
	hotkeyCombo    = flag.String("hotkey", "", "Global hotkey that toggles listening, e.g. ctrl+shift+v")
	showVersion    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("voxremote v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	fs := afero.NewOsFs()

	cfg, err := config.LoadWithFallback(fs, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer log.Close()

	if *listDevices {
		if err := app.NewDeviceManager().ListDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	modelDir := cfg.Model.Dir
	if modelDir == "" {
		if modelDir, err = models.DefaultDir(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	mm := app.NewModelManager(models.NewManager(fs, modelDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cmdErr error
	switch {
	case *listModels:
		cmdErr = mm.ListModels()
	case *listDownloaded:
		cmdErr = mm.ListDownloaded()
	case *downloadModel != "":
		cmdErr = mm.Download(ctx, *downloadModel)
	case *setDefault != "":
		cmdErr = mm.SetDefault(*setDefault)
	default:
		cmdErr = run(ctx, fs, cfg, mm)
	}
	if cmdErr != nil {
		log.Errorf("exit: %v", cmdErr)
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		log.Close()
		os.Exit(1)
	}
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["model"] {
		cfg.Model.Default = *modelName
	}
	if flagsSet["locale"] {
		cfg.Model.Locale = *locale
	}
	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if flagsSet["wav"] {
		cfg.Audio.Source = config.SourceWAV
		cfg.Audio.WAVFile = *wavFile
	}
	if flagsSet["backend"] {
		cfg.Media.Backend = *backend
	}
	if flagsSet["player"] {
		cfg.Media.Player = *player
	}
	if flagsSet["format"] {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["output"] {
		cfg.Output.File = *outputFile
	}
	if flagsSet["logpath"] {
		cfg.Log.Dir = *logPath
	}
	if flagsSet["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if flagsSet["metrics"] {
		cfg.Metrics.Enabled = *enableMetrics
	}
	if flagsSet["hotkey"] {
		cfg.Hotkey.Enabled = *hotkeyCombo != ""
		cfg.Hotkey.Keys = *hotkeyCombo
	}
}

func initLogging(cfg *config.Config) error {
	dir, err := log.ResolveDir(cfg.Log.Dir)
	if err != nil {
		return err
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		return err
	}
	return log.Init(cfg.Log.Level)
}

func run(ctx context.Context, fs afero.Fs, cfg *config.Config, mm *app.ModelManager) error {
	v, err := vocab.Build(cfg.Vocabulary)
	if err != nil {
		return err
	}
	for _, p := range v.Confusable(vocab.DefaultConfusableThreshold) {
		log.Warnf("phrases %q (%s) and %q (%s) may be confused (score %.2f)",
			p.A.Phrase, p.A.Action, p.B.Phrase, p.B.Action, p.Score)
	}
	for _, action := range dispatch.Unroutable(v) {
		log.Warnf("action %s has no media command and will only be displayed", action)
	}

	locator, err := mm.Locator(cfg.Model.Default)
	if err != nil {
		return err
	}

	provider, source, err := buildProvider(fs, cfg)
	if err != nil {
		return err
	}

	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}

	var metrics *observe.Metrics
	if cfg.Metrics.Enabled {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		otel.SetMeterProvider(mp)
		metrics = observe.DefaultMetrics()
		defer func() {
			logMetrics(reader)
			_ = mp.Shutdown(context.Background())
		}()
	}

	adapter := recognition.NewAdapter(locator, stt.NewVoskFactory(),
		recognition.WithLocale(cfg.Model.Locale),
		recognition.WithSampleRate(int(audio.DefaultConfig().SampleRate)),
	)

	remoteCfg := app.RemoteConfig{
		Provider:   provider,
		Recognizer: adapter,
		Vocabulary: v,
		Sink:       sink,
		Metrics:    metrics,
	}

	if cfg.Output.Format == config.FormatTUI {
		return runTUI(ctx, cfg, remoteCfg, source)
	}
	return runConsole(ctx, cfg, remoteCfg)
}

func buildProvider(fs afero.Fs, cfg *config.Config) (audio.SensorProvider, string, error) {
	capture := audio.DefaultConfig()
	if cfg.Audio.Source == config.SourceWAV {
		return audio.NewWAVProvider(fs, cfg.Audio.WAVFile, capture, cfg.Audio.Paced), "file " + cfg.Audio.WAVFile, nil
	}
	if cfg.Audio.Device != "" {
		// Fail before the UI starts when the device named on the command
		// line does not exist.
		device, err := app.NewDeviceManager().SelectDevice(cfg.Audio.Device)
		if err != nil {
			return nil, "", err
		}
		return audio.NewMicProvider(capture, cfg.Audio.Device), "mic " + device.Name, nil
	}
	return audio.NewMicProvider(capture, ""), "default microphone", nil
}

func buildSink(cfg *config.Config) (media.Sink, error) {
	switch cfg.Media.Backend {
	case config.BackendMPRIS:
		return media.NewMPRIS(cfg.Media.Player)
	default:
		// Media keys cannot report what is playing; borrow MPRIS for
		// status when a session bus is around.
		var status media.StatusReader = media.NoStatus{}
		if mp, err := media.NewMPRIS(cfg.Media.Player); err == nil {
			status = mp
		} else {
			log.Infof("no player status: %v", err)
		}
		return media.NewKeys(status)
	}
}

func toggler(ctx context.Context, remote **app.Remote) func() {
	return func() {
		if err := (*remote).Toggle(ctx); err != nil {
			log.Warnf("toggle: %v", err)
		}
	}
}

func startHotkey(ctx context.Context, cfg *config.Config, toggle func()) func() {
	if !cfg.Hotkey.Enabled {
		return func() {}
	}
	combo := cfg.Hotkey.Keys
	if combo == "" {
		combo = input.DefaultHotkey
	}
	hk := input.NewHotkeyToggle(toggle)
	if err := hk.Start(ctx, combo); err != nil {
		log.Warnf("hotkey: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return func() {}
	}
	return hk.Stop
}

func runTUI(ctx context.Context, cfg *config.Config, remoteCfg app.RemoteConfig, source string) error {
	var remote *app.Remote
	toggle := toggler(ctx, &remote)

	hotkeyLabel := ""
	if cfg.Hotkey.Enabled {
		hotkeyLabel = cfg.Hotkey.Keys
	}
	program := ui.NewProgram(ui.NewModel(toggle, hotkeyLabel))

	remoteCfg.Observer = program
	remoteCfg.Listener = program
	remote = app.NewRemote(remoteCfg)
	defer remote.Close()

	stopHotkey := startHotkey(ctx, cfg, toggle)
	defer stopHotkey()

	go func() {
		<-ctx.Done()
		program.Quit()
	}()
	go func() {
		program.SetDeviceLine(fmt.Sprintf("%s | %s", source, cfg.Model.Locale))
		// Errors reach the TUI through the listener.
		_ = remote.StartListening(ctx)
	}()

	return program.Run()
}

func runConsole(ctx context.Context, cfg *config.Config, remoteCfg app.RemoteConfig) error {
	var writer io.Writer = os.Stdout
	if cfg.Output.File != "" {
		f, err := os.Create(cfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	console := output.NewConsoleOutput(output.ConsoleConfig{
		Format: cfg.Output.Format,
		Writer: writer,
	})
	defer console.Close()

	remoteCfg.Observer = console
	remoteCfg.Listener = console
	remote := app.NewRemote(remoteCfg)
	defer remote.Close()

	stopHotkey := startHotkey(ctx, cfg, toggler(ctx, &remote))
	defer stopHotkey()

	if err := remote.StartListening(ctx); err != nil && !cfg.Hotkey.Enabled {
		return err
	}

	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")
	<-ctx.Done()
	return nil
}

var attributeEncoder = attribute.DefaultEncoder()

// logMetrics writes the collected counter totals to the diagnostics log.
func logMetrics(reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		log.Warnf("collect metrics: %v", err)
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					log.Infof("metric %s %s = %d", m.Name, dp.Attributes.Encoded(attributeEncoder), dp.Value)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					log.Infof("metric %s %s count=%d sum=%.3f", m.Name, dp.Attributes.Encoded(attributeEncoder), dp.Count, dp.Sum)
				}
			}
		}
	}
}
