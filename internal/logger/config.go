package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" mapstructure:"default_level" json:"default_level"` // default level for all modules
	Timezone     string            `yaml:"timezone" mapstructure:"timezone" json:"timezone"`                // "Local", "UTC" or an IANA name
	Console      *ConsoleOutput    `yaml:"console" mapstructure:"console" json:"console"`
	FileOutput   *FileOutput       `yaml:"file_output" mapstructure:"file_output" json:"file_output"`
	ModuleLevels map[string]string `yaml:"module_levels" mapstructure:"module_levels" json:"module_levels"` // per-module level overrides
}

// ConsoleOutput configures human-readable text output on stdout.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Level   string `yaml:"level" mapstructure:"level" json:"level"`
}

// FileOutput configures JSON output to a log file.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Path    string `yaml:"path" mapstructure:"path" json:"path"`
	Level   string `yaml:"level" mapstructure:"level" json:"level"`
}

const (
	DefaultLogLevel = "info"
	DefaultLogPath  = "logs/audiophile.log"
)

// applyConfigDefaults fills nil output sections so an older config without
// them still logs to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: true, Level: cfg.DefaultLevel}
	}
	if cfg.FileOutput != nil && cfg.FileOutput.Enabled && cfg.FileOutput.Path == "" {
		cfg.FileOutput.Path = DefaultLogPath
	}
}
