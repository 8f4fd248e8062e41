// Package config loads runtime settings from an optional YAML file, a .env
// file and the process environment, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/signify/internal/feature"
	"github.com/ayusman/signify/internal/logging"
	"github.com/ayusman/signify/internal/plugin"
)

// DataDirName is the per-user directory holding the database and scripts.
const DataDirName = ".signify"

// Config is the complete runtime configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Detector    DetectorConfig    `yaml:"detector"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Store       StoreConfig       `yaml:"store"`
	HTTP        HTTPConfig        `yaml:"http"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Log         LogConfig         `yaml:"log"`
	Plugins     PluginsConfig     `yaml:"plugins"`
	Tray        bool              `yaml:"tray"`
}

// CameraConfig selects the frame source.
type CameraConfig struct {
	// Source is a device id such as "0" or a video file path.
	Source          string  `yaml:"source"`
	MotionThreshold float64 `yaml:"motion_threshold"`
}

// RecognitionConfig holds the windowing and decision constants.
type RecognitionConfig struct {
	SequenceLength      int     `yaml:"sequence_length"`
	FeatureDim          int     `yaml:"feature_dim"`
	SignalFloor         int     `yaml:"signal_floor"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	FaceIndices         []int   `yaml:"face_indices"`
	PoseIndices         []int   `yaml:"pose_indices"`
}

// DetectorConfig configures the landmark detector service.
type DetectorConfig struct {
	Script          string  `yaml:"script"`
	Python          string  `yaml:"python"`
	MaxHands        int     `yaml:"max_hands"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`
}

// ClassifierConfig configures the sequence classifier service.
type ClassifierConfig struct {
	Script string `yaml:"script"`
	Python string `yaml:"python"`
	Model  string `yaml:"model"`
	// Labels is the label table file, one "label,index" per line.
	Labels string `yaml:"labels"`
	// NumClasses is the model output width. Zero accepts any width; indices
	// without a label resolve to Unknown.
	NumClasses int `yaml:"num_classes"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig configures the local HTTP server. An empty Addr disables it.
type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// MQTTConfig configures the status publisher. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Topic may contain {session_id}.
	Topic string `yaml:"topic"`
}

// PluginsConfig binds recognized labels to plugin actions. No bindings
// disables plugins.
type PluginsConfig struct {
	Dir      string           `yaml:"dir"`
	Timeout  time.Duration    `yaml:"timeout"`
	Bindings []plugin.Binding `yaml:"bindings"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Source:          "0",
			MotionThreshold: 1.0,
		},
		Recognition: RecognitionConfig{
			SequenceLength:      30,
			FeatureDim:          feature.VectorLen,
			SignalFloor:         feature.DefaultSignalFloor,
			ConfidenceThreshold: 0.82,
			FaceIndices:         append([]int(nil), feature.DefaultFaceIndices[:]...),
			PoseIndices:         append([]int(nil), feature.DefaultPoseIndices[:]...),
		},
		Detector: DetectorConfig{
			MaxHands:        2,
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
		},
		Classifier: ClassifierConfig{
			Model:  "models/sign_model.keras",
			Labels: "models/labels.txt",
		},
		Store: StoreConfig{
			Path: dataPath("signify.db"),
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		MQTT: MQTTConfig{
			ClientID: "signify",
			Topic:    "signify/{session_id}/status",
		},
		Log: LogConfig{
			Level: "info",
		},
		Plugins: PluginsConfig{
			Dir:     dataPath("plugins"),
			Timeout: plugin.DefaultTimeout,
		},
	}
}

// dataPath returns name inside the per-user data directory, or name itself
// when there is no home directory.
func dataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, DataDirName, name)
}

// Load builds the configuration: defaults, then the YAML file at path when
// path is not empty, then .env, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Camera.Source = getEnv("SIGNIFY_CAMERA", c.Camera.Source)
	c.Camera.MotionThreshold = getEnvFloat("SIGNIFY_MOTION_THRESHOLD", c.Camera.MotionThreshold)

	c.Recognition.SequenceLength = getEnvInt("SIGNIFY_SEQUENCE_LENGTH", c.Recognition.SequenceLength)
	c.Recognition.FeatureDim = getEnvInt("SIGNIFY_FEATURE_DIM", c.Recognition.FeatureDim)
	c.Recognition.SignalFloor = getEnvInt("SIGNIFY_SIGNAL_FLOOR", c.Recognition.SignalFloor)
	c.Recognition.ConfidenceThreshold = getEnvFloat("SIGNIFY_CONFIDENCE_THRESHOLD", c.Recognition.ConfidenceThreshold)
	c.Recognition.FaceIndices = getEnvInts("SIGNIFY_FACE_INDICES", c.Recognition.FaceIndices)
	c.Recognition.PoseIndices = getEnvInts("SIGNIFY_POSE_INDICES", c.Recognition.PoseIndices)

	c.Detector.Script = getEnv("SIGNIFY_DETECTOR_SCRIPT", c.Detector.Script)
	c.Detector.Python = getEnv("SIGNIFY_DETECTOR_PYTHON", c.Detector.Python)

	c.Classifier.Script = getEnv("SIGNIFY_CLASSIFIER_SCRIPT", c.Classifier.Script)
	c.Classifier.Python = getEnv("SIGNIFY_CLASSIFIER_PYTHON", c.Classifier.Python)
	c.Classifier.Model = getEnv("SIGNIFY_MODEL", c.Classifier.Model)
	c.Classifier.Labels = getEnv("SIGNIFY_LABELS", c.Classifier.Labels)
	c.Classifier.NumClasses = getEnvInt("SIGNIFY_NUM_CLASSES", c.Classifier.NumClasses)

	c.Store.Path = getEnv("SIGNIFY_DB", c.Store.Path)
	c.HTTP.Addr = getEnv("SIGNIFY_HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.StaticDir = getEnv("SIGNIFY_STATIC_DIR", c.HTTP.StaticDir)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.Username = getEnv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.Topic = getEnv("MQTT_TOPIC_STATUS", c.MQTT.Topic)

	c.Log.Level = getEnv("SIGNIFY_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("SIGNIFY_LOG_FILE", c.Log.File)

	c.Plugins.Dir = getEnv("SIGNIFY_PLUGIN_DIR", c.Plugins.Dir)

	c.Tray = getEnvBool("SIGNIFY_TRAY", c.Tray)
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	var errs []error
	r := c.Recognition

	if r.SequenceLength < 1 {
		errs = append(errs, fmt.Errorf("recognition.sequence_length must be at least 1, got %d", r.SequenceLength))
	}
	if r.FeatureDim != feature.VectorLen {
		errs = append(errs, fmt.Errorf("recognition.feature_dim must be %d, got %d", feature.VectorLen, r.FeatureDim))
	}
	if r.SignalFloor < 0 {
		errs = append(errs, fmt.Errorf("recognition.signal_floor must not be negative, got %d", r.SignalFloor))
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("recognition.confidence_threshold must be in [0, 1), got %v", r.ConfidenceThreshold))
	}
	if _, err := feature.NewSelector(r.FaceIndices, r.PoseIndices); err != nil {
		errs = append(errs, fmt.Errorf("recognition indices: %w", err))
	}
	if c.Classifier.Labels == "" {
		errs = append(errs, errors.New("classifier.labels must be set"))
	}
	if c.Classifier.NumClasses < 0 {
		errs = append(errs, fmt.Errorf("classifier.num_classes must not be negative, got %d", c.Classifier.NumClasses))
	}
	if c.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be at least 1, got %d", c.Detector.MaxHands))
	}

	if len(c.Plugins.Bindings) > 0 && c.Plugins.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("plugins.timeout must be positive, got %s", c.Plugins.Timeout))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		warnParse(key, "int", err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		warnParse(key, "float", err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		warnParse(key, "bool", err)
		return defaultValue
	}
	return boolValue
}

// getEnvInts parses a comma separated list such as "1,4,33".
func getEnvInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			warnParse(key, "int list", err)
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

func warnParse(key, kind string, err error) {
	logging.Warn(logging.Fields{"key": key, "error": err.Error()}, "failed to parse "+kind+" from environment, using default")
}
