package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bugboard"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage bugboard configuration.

Running bare 'bugboard config' is the same as 'bugboard config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# bugboard configuration
# See: bugboard config show (for effective values and sources)

# State directory for the serve PID file and log (default: ~/.config/bugboard)
# state_dir: {{ .StateDir }}

# SQLite database path, used by the sqlite store driver
# db_path: {{ .DBPath }}

store:
  # Where issues live: "sqlite" (local file) or "remote" (hosted records API)
  driver: "{{ .StoreDriver }}"

# Hosted records API, used by the remote store driver
backend:
  url: "{{ .BackendURL }}"
  project_id: "{{ .BackendProjectID }}"
  public_key: "{{ .BackendPublicKey }}"
  timeout: "{{ .BackendTimeout }}"

# HTTP port for bugboard serve (default: 8080)
port: {{ .Port }}

# Server log level: debug, info, warn, error
log_level: "{{ .LogLevel }}"

# Issue triage and markdown import (ANTHROPIC_API_KEY also works)
anthropic:
  api_key: ""
  model: "{{ .AnthropicModel }}"

# Notifications kept for the browser UI
notify:
  max: {{ .NotifyMax }}
`

type configTemplateData struct {
	StateDir         string
	DBPath           string
	StoreDriver      string
	BackendURL       string
	BackendProjectID string
	BackendPublicKey string
	BackendTimeout   string
	Port             int
	LogLevel         string
	AnthropicModel   string
	NotifyMax        int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:         viper.GetString("state_dir"),
		DBPath:           viper.GetString("db_path"),
		StoreDriver:      viper.GetString("store.driver"),
		BackendURL:       viper.GetString("backend.url"),
		BackendProjectID: viper.GetString("backend.project_id"),
		BackendPublicKey: viper.GetString("backend.public_key"),
		BackendTimeout:   viper.GetString("backend.timeout"),
		Port:             viper.GetInt("port"),
		LogLevel:         viper.GetString("log_level"),
		AnthropicModel:   viper.GetString("anthropic.model"),
		NotifyMax:        viper.GetInt("notify.max"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	var check map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &check); err != nil {
		return fmt.Errorf("generated config is not valid YAML: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "BUGBOARD_STATE_DIR"},
	{Key: "db_path", EnvVar: "BUGBOARD_DB_PATH"},
	{Key: "store.driver", EnvVar: "BUGBOARD_STORE_DRIVER"},
	{Key: "backend.url", EnvVar: "BUGBOARD_BACKEND_URL"},
	{Key: "backend.project_id", EnvVar: "BUGBOARD_BACKEND_PROJECT_ID"},
	{Key: "backend.public_key", EnvVar: "BUGBOARD_BACKEND_PUBLIC_KEY", Secret: true},
	{Key: "backend.timeout", EnvVar: "BUGBOARD_BACKEND_TIMEOUT"},
	{Key: "port", EnvVar: "BUGBOARD_PORT"},
	{Key: "log_level", EnvVar: "BUGBOARD_LOG_LEVEL"},
	{Key: "anthropic.api_key", EnvVar: "BUGBOARD_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "BUGBOARD_ANTHROPIC_MODEL"},
	{Key: "notify.max", EnvVar: "BUGBOARD_NOTIFY_MAX"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// maskSecret keeps only the last four characters of a credential.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'bugboard config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
