package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/yaml"

	configapi "github.com/ray-project/kuberay/rayclusterctl/apis/config/v1alpha1"
)

var log = logf.Log.WithName("config")

const (
	// EnvPrefix prefixes environment overrides, e.g. RAYCLUSTERCTL_STRICT=true.
	EnvPrefix = "RAYCLUSTERCTL"
	// DefaultConfigName is looked up in the home directory when no --config is given.
	DefaultConfigName = ".rayclusterctl"
)

// Configuration keys, matching the JSON names of configapi.Configuration.
const (
	KeyStrict               = "strict"
	KeyDefaultNamespace     = "defaultNamespace"
	KeyFieldManager         = "fieldManager"
	KeyRayImageRepositories = "rayImageRepositories"
	KeyFetchTimeout         = "fetchTimeout"
	KeyConcurrency          = "concurrency"
	KeyLogFile              = "logFile"
	KeyLogFileEncoder       = "logFileEncoder"
	KeyLogStdoutEncoder     = "logStdoutEncoder"
	KeyLogLevel             = "logLevel"
	KeyMetricsAddr          = "metricsAddr"
	KeyProbeAddr            = "probeAddr"
	KeyWebhookPort          = "webhookPort"
	KeyCertDir              = "certDir"
)

// FlagNames maps configuration keys to the command line flags that override them.
var FlagNames = map[string]string{
	KeyStrict:               "strict",
	KeyFieldManager:         "field-manager",
	KeyRayImageRepositories: "ray-image-repositories",
	KeyFetchTimeout:         "fetch-timeout",
	KeyConcurrency:          "concurrency",
	KeyLogFile:              "log-file",
	KeyLogFileEncoder:       "log-file-encoder",
	KeyLogStdoutEncoder:     "log-stdout-encoder",
	KeyLogLevel:             "log-level",
	KeyMetricsAddr:          "metrics-addr",
	KeyProbeAddr:            "health-probe-bind-address",
	KeyWebhookPort:          "webhook-port",
	KeyCertDir:              "cert-dir",
}

// Keys lists every supported configuration key.
func Keys() []string {
	return []string{
		KeyStrict, KeyDefaultNamespace, KeyFieldManager, KeyRayImageRepositories, KeyFetchTimeout,
		KeyConcurrency, KeyLogFile, KeyLogFileEncoder, KeyLogStdoutEncoder, KeyLogLevel,
		KeyMetricsAddr, KeyProbeAddr, KeyWebhookPort, KeyCertDir,
	}
}

// Loader resolves the tool configuration from flags, environment, a config file and defaults,
// in that order of precedence.
type Loader struct {
	v          *viper.Viper
	configFile string

	mu      sync.RWMutex
	current *configapi.Configuration
}

// NewLoader returns a loader reading configFile, or $HOME/.rayclusterctl.yaml when configFile is empty.
func NewLoader(configFile string) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	defaults := configapi.Configuration{}
	configapi.SetDefaults_Configuration(&defaults)
	v.SetDefault(KeyStrict, defaults.Strict)
	v.SetDefault(KeyDefaultNamespace, defaults.DefaultNamespace)
	v.SetDefault(KeyFieldManager, defaults.FieldManager)
	v.SetDefault(KeyRayImageRepositories, defaults.RayImageRepositories)
	v.SetDefault(KeyFetchTimeout, defaults.FetchTimeout.Duration.String())
	v.SetDefault(KeyConcurrency, defaults.Concurrency)
	v.SetDefault(KeyLogFile, defaults.LogFile)
	v.SetDefault(KeyLogFileEncoder, defaults.LogFileEncoder)
	v.SetDefault(KeyLogStdoutEncoder, defaults.LogStdoutEncoder)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyMetricsAddr, defaults.MetricsAddr)
	v.SetDefault(KeyProbeAddr, defaults.ProbeAddr)
	v.SetDefault(KeyWebhookPort, defaults.WebhookPort)
	v.SetDefault(KeyCertDir, defaults.CertDir)

	return &Loader{v: v, configFile: configFile}
}

// BindFlags lets the flags of FlagNames that exist in flags override their keys.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	for key, name := range FlagNames {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := l.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// ConfigFileUsed returns the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load reads the configuration. A missing default config file is not an error; a missing
// file given explicitly is.
func (l *Loader) Load() (*configapi.Configuration, error) {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.SetConfigName(DefaultConfigName)
		l.v.SetConfigType("yaml")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if used := l.v.ConfigFileUsed(); used != "" {
		if err := checkFile(used); err != nil {
			return nil, err
		}
	}

	config, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.store(config)
	return config, nil
}

// checkFile rejects config files with unknown keys.
func checkFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if _, err := LoadFrom(content); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

// LoadFrom strictly decodes configuration content and applies defaults.
func LoadFrom(content []byte) (*configapi.Configuration, error) {
	var config configapi.Configuration
	if err := yaml.UnmarshalStrict(content, &config); err != nil {
		return nil, err
	}
	configapi.SetDefaults_Configuration(&config)
	return &config, nil
}

func (l *Loader) decode() (*configapi.Configuration, error) {
	config := &configapi.Configuration{
		TypeMeta: metav1.TypeMeta{
			APIVersion: configapi.GroupVersion.String(),
			Kind:       "Configuration",
		},
		Strict:               l.v.GetBool(KeyStrict),
		DefaultNamespace:     l.v.GetString(KeyDefaultNamespace),
		FieldManager:         l.v.GetString(KeyFieldManager),
		RayImageRepositories: splitList(l.v.GetStringSlice(KeyRayImageRepositories)),
		FetchTimeout:         &metav1.Duration{Duration: l.v.GetDuration(KeyFetchTimeout)},
		Concurrency:          l.v.GetInt(KeyConcurrency),
		LogFile:              l.v.GetString(KeyLogFile),
		LogFileEncoder:       l.v.GetString(KeyLogFileEncoder),
		LogStdoutEncoder:     l.v.GetString(KeyLogStdoutEncoder),
		LogLevel:             l.v.GetInt(KeyLogLevel),
		MetricsAddr:          l.v.GetString(KeyMetricsAddr),
		ProbeAddr:            l.v.GetString(KeyProbeAddr),
		WebhookPort:          l.v.GetInt(KeyWebhookPort),
		CertDir:              l.v.GetString(KeyCertDir),
	}
	configapi.SetDefaults_Configuration(config)
	if err := configapi.ValidateConfiguration(log, *config); err != nil {
		return nil, err
	}
	return config, nil
}

// splitList accepts both YAML lists and comma separated values from flags or the environment.
func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}

func (l *Loader) store(config *configapi.Configuration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = config
}

// Current returns a copy of the last successfully loaded configuration, or nil before Load.
func (l *Loader) Current() *configapi.Configuration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		return nil
	}
	return l.current.DeepCopy()
}

// Watch reloads the configuration whenever the config file changes and passes it to onChange.
// A configuration that fails to load is logged and the previous one is kept.
func (l *Loader) Watch(onChange func(*configapi.Configuration)) error {
	if l.v.ConfigFileUsed() == "" {
		return fmt.Errorf("no config file to watch")
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if err := checkFile(e.Name); err != nil {
			log.Error(err, "Failed to load changed config", "file", filepath.Clean(e.Name))
			return
		}
		config, err := l.decode()
		if err != nil {
			log.Error(err, "Failed to load changed config", "file", filepath.Clean(e.Name))
			return
		}
		l.store(config)
		log.Info("Reloaded config", "file", filepath.Clean(e.Name))
		if onChange != nil {
			onChange(config.DeepCopy())
		}
	})
	l.v.WatchConfig()
	return nil
}

// Set writes one key to the config file, creating it when needed.
func (l *Loader) Set(key, value string) error {
	supported := false
	for _, candidate := range Keys() {
		if candidate == key {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("key %s is not supported, supported keys are: %s", key, strings.Join(Keys(), ", "))
	}

	path := l.v.ConfigFileUsed()
	if path == "" {
		path = l.configFile
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
		path = filepath.Join(home, DefaultConfigName+".yaml")
	}

	content := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &content); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if key == KeyRayImageRepositories {
		content[key] = splitList([]string{value})
	} else {
		var typed interface{}
		if err := yaml.Unmarshal([]byte(value), &typed); err != nil || typed == nil {
			typed = value
		}
		content[key] = typed
	}

	data, err := yaml.Marshal(content)
	if err != nil {
		return err
	}
	// Typed values are checked by decoding the result before it is written.
	if _, err := LoadFrom(data); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return os.WriteFile(path, data, 0o600)
}
