package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/signify/internal/app"
	"github.com/ayusman/signify/internal/capture"
	"github.com/ayusman/signify/internal/classifier"
	"github.com/ayusman/signify/internal/config"
	"github.com/ayusman/signify/internal/detector"
	"github.com/ayusman/signify/internal/feature"
	"github.com/ayusman/signify/internal/labels"
	"github.com/ayusman/signify/internal/logging"
	"github.com/ayusman/signify/internal/plugin"
	"github.com/ayusman/signify/internal/publish"
	"github.com/ayusman/signify/internal/recognizer"
	"github.com/ayusman/signify/internal/server"
	"github.com/ayusman/signify/internal/server/api"
	"github.com/ayusman/signify/internal/store"
	"github.com/ayusman/signify/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logging.Error(logging.Fields{"error": err}, "signify stopped")
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	logging.Info(logging.Fields{"camera": cfg.Camera.Source, "http": cfg.HTTP.Addr}, "Signify - Sign Recognition")

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	recCfg := recognitionConfig(cfg, st)

	table, err := loadLabels(cfg, st)
	if err != nil {
		return err
	}

	selector, err := feature.NewSelector(cfg.Recognition.FaceIndices, cfg.Recognition.PoseIndices)
	if err != nil {
		return fmt.Errorf("landmark selection: %w", err)
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		ScriptPath:      cfg.Detector.Script,
		PythonPath:      cfg.Detector.Python,
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConf,
	})
	if err != nil {
		return fmt.Errorf("start detector: %w", err)
	}

	clf, err := classifier.NewProcessClassifier(classifier.ProcessConfig{
		ModelPath:  cfg.Classifier.Model,
		ScriptPath: cfg.Classifier.Script,
		PythonPath: cfg.Classifier.Python,
		NumClasses: cfg.Classifier.NumClasses,
	})
	if err != nil {
		det.Close()
		return fmt.Errorf("load classifier: %w", err)
	}

	hub := server.NewStatusHub()
	sinks := []app.Sink{hub}

	if cfg.MQTT.Broker != "" {
		pub, err := publish.Connect(publish.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			// Publishing is optional; recognition runs without it.
			logging.Warn(logging.Fields{"broker": cfg.MQTT.Broker, "error": err}, "MQTT unavailable")
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	if len(cfg.Plugins.Bindings) > 0 {
		dispatcher, err := startPlugins(cfg.Plugins)
		if err != nil {
			det.Close()
			clf.Close()
			return err
		}
		defer dispatcher.Close()
		sinks = append(sinks, dispatcher)
	}

	var tr *tray.Tray
	if cfg.Tray {
		tr = tray.New()
		sinks = append(sinks, tr)
	}

	a, err := app.New(app.Config{
		Recognition:     recCfg,
		Selector:        selector,
		MotionThreshold: cfg.Camera.MotionThreshold,
		Preview:         cfg.HTTP.Addr != "",
	}, app.Deps{
		Camera:     capture.NewCamera(cfg.Camera.Source),
		Detector:   det,
		Classifier: clf,
		Labels:     table,
		Sinks:      sinks,
	})
	if err != nil {
		det.Close()
		clf.Close()
		return err
	}
	logging.Info(logging.Fields{"session_id": a.SessionID(), "labels": table.Len()}, "session started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appErr := make(chan error, 1)
	srvErr := make(chan error, 1)

	if cfg.HTTP.Addr != "" {
		webDir := cfg.HTTP.StaticDir
		if webDir == "" {
			webDir = findWebDir()
		}
		if webDir != "" {
			logging.Info(logging.Fields{"dir": webDir}, "serving static files")
		}

		srv := server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Frames:    a,
			Status:    hub,
			Defaults: api.Settings{
				ConfidenceThreshold: float64(recCfg.ConfidenceThreshold),
				SignalFloor:         recCfg.SignalFloor,
			},
			Applier:   a,
			SessionID: a.SessionID,
		})
		go func() {
			if err := srv.Run(ctx, cfg.HTTP.Addr); err != nil {
				srvErr <- fmt.Errorf("http server: %w", err)
				stop()
			}
		}()
	}

	go func() {
		appErr <- a.Run(ctx)
		stop()
	}()

	if tr != nil {
		tr.OnToggle(a.SetEnabled)
		tr.OnPreview(func() { openBrowser(previewURL(cfg.HTTP.Addr)) })
		tr.OnQuit(stop)
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		// The tray owns the main goroutine until quit.
		tr.Run()
		stop()
	}

	// Run releases camera, detector and classifier before returning.
	err = <-appErr
	if err == nil {
		select {
		case err = <-srvErr:
		default:
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info(logging.Fields{"session_id": a.SessionID()}, "shutdown complete")
	return nil
}

// recognitionConfig merges file configuration with settings saved through
// the API.
func recognitionConfig(cfg config.Config, st *store.Store) recognizer.Config {
	rc := recognizer.Config{
		SequenceLength:      cfg.Recognition.SequenceLength,
		FeatureDim:          cfg.Recognition.FeatureDim,
		SignalFloor:         cfg.Recognition.SignalFloor,
		ConfidenceThreshold: float32(cfg.Recognition.ConfidenceThreshold),
	}

	settings := st.Settings()
	if v, ok := settings.Float(store.SettingConfidenceThreshold); ok {
		rc.ConfidenceThreshold = float32(v)
	}
	if v, ok := settings.Int(store.SettingSignalFloor); ok {
		rc.SignalFloor = v
	}
	return rc
}

func startPlugins(cfg config.PluginsConfig) (*plugin.Dispatcher, error) {
	manager := plugin.NewManager(cfg.Dir)
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}
	dispatcher, err := plugin.NewDispatcher(manager, plugin.NewExecutor(cfg.Timeout), cfg.Bindings)
	if err != nil {
		return nil, fmt.Errorf("plugin bindings: %w", err)
	}
	logging.Info(logging.Fields{
		"dir":     cfg.Dir,
		"plugins": len(manager.List()),
		"labels":  dispatcher.Labels(),
	}, "label actions enabled")
	return dispatcher, nil
}

// loadLabels prefers the active label set in the store and falls back to
// the label file.
func loadLabels(cfg config.Config, st *store.Store) (*labels.Table, error) {
	set, err := st.Labels().Active()
	switch {
	case err == nil:
		table, err := set.Table()
		if err != nil {
			return nil, fmt.Errorf("label set %s: %w", set.Name, err)
		}
		logging.Info(logging.Fields{"set": set.Name, "labels": table.Len()}, "using stored label set")
		return table, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("active label set: %w", err)
	}

	table, err := labels.Load(cfg.Classifier.Labels)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	return table, nil
}

func previewURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logging.Warn(logging.Fields{"url": url, "error": err}, "failed to open browser")
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.signify/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, config.DataDirName, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
