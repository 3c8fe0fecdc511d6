package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Approval   ApprovalConfig   `mapstructure:"approval"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Export     ExportConfig     `mapstructure:"export"`
	Lark       LarkConfig       `mapstructure:"lark"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ApprovalConfig holds routing thresholds, expressed in cents so that
// amounts one cent either side of a boundary route differently.
type ApprovalConfig struct {
	AutoApproveLimitCents      map[string]int64 `mapstructure:"auto_approve_limit_cents"`
	ManagerLimitReimburseCents int64            `mapstructure:"manager_limit_reimburse_cents"`
	ManagerLimitDefaultCents   int64            `mapstructure:"manager_limit_default_cents"`
	FinanceThresholdCents      int64            `mapstructure:"finance_threshold_cents"`
	ExecutiveThresholdCents    int64            `mapstructure:"executive_threshold_cents"`
	CompetitiveQuotesCents     int64            `mapstructure:"competitive_quotes_cents"`
	ManagerDeadlineHours       int              `mapstructure:"manager_deadline_hours"`
	ManagerEscalationHours     int              `mapstructure:"manager_escalation_hours"`
	FinanceDeadlineHours       int              `mapstructure:"finance_deadline_hours"`
	FinanceEscalationHours     int              `mapstructure:"finance_escalation_hours"`
	ExecutiveDeadlineHours     int              `mapstructure:"executive_deadline_hours"`
	ExecutiveEscalationHours   int              `mapstructure:"executive_escalation_hours"`
}

// EscalationConfig holds escalation sweep configuration
type EscalationConfig struct {
	Policy       string        `mapstructure:"policy"` // hold or reactivate
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ExportConfig holds audit export configuration
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LarkConfig holds Lark notification configuration. Notifications are
// disabled when credentials are absent.
type LarkConfig struct {
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

// Enabled reports whether Lark credentials are configured.
func (c LarkConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/approvals.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Routing defaults
	viper.SetDefault("approval.auto_approve_limit_cents", map[string]int64{
		"person_reimbursement": 5_000,
		"credit_card":          20_000,
		"purchase_order":       0,
		"direct_vendor":        10_000,
	})
	viper.SetDefault("approval.manager_limit_reimburse_cents", 50_000)
	viper.SetDefault("approval.manager_limit_default_cents", 100_000)
	viper.SetDefault("approval.finance_threshold_cents", 100_000)
	viper.SetDefault("approval.executive_threshold_cents", 500_000)
	viper.SetDefault("approval.competitive_quotes_cents", 1_000_000)
	viper.SetDefault("approval.manager_deadline_hours", 48)
	viper.SetDefault("approval.manager_escalation_hours", 24)
	viper.SetDefault("approval.finance_deadline_hours", 72)
	viper.SetDefault("approval.finance_escalation_hours", 48)
	viper.SetDefault("approval.executive_deadline_hours", 120)
	viper.SetDefault("approval.executive_escalation_hours", 72)

	// Escalation defaults
	viper.SetDefault("escalation.policy", string(approval.EscalationHold))
	viper.SetDefault("escalation.poll_interval", time.Hour)

	// Export defaults
	viper.SetDefault("export.output_dir", "exports")

	// Lark defaults
	viper.SetDefault("lark.api_timeout", 30*time.Second)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Escalation.PollInterval <= 0 {
		return fmt.Errorf("escalation.poll_interval must be positive")
	}
	if _, err := c.Routing(); err != nil {
		return err
	}
	return nil
}

// Routing materializes the routing configuration for the threshold
// resolver, validating thresholds and the escalation policy.
func (c *Config) Routing() (approval.RoutingConfig, error) {
	rc := approval.RoutingConfig{
		AutoApprovalLimitCents:          c.Approval.AutoApproveLimitCents,
		ManagerLimitReimbursementCents:  c.Approval.ManagerLimitReimburseCents,
		ManagerLimitDefaultCents:        c.Approval.ManagerLimitDefaultCents,
		FinanceThresholdCents:           c.Approval.FinanceThresholdCents,
		ExecutiveThresholdCents:         c.Approval.ExecutiveThresholdCents,
		CompetitiveQuotesThresholdCents: c.Approval.CompetitiveQuotesCents,
		ManagerTiming: approval.StageTiming{
			DeadlineHours:   c.Approval.ManagerDeadlineHours,
			EscalationHours: c.Approval.ManagerEscalationHours,
		},
		FinanceTiming: approval.StageTiming{
			DeadlineHours:   c.Approval.FinanceDeadlineHours,
			EscalationHours: c.Approval.FinanceEscalationHours,
		},
		ExecutiveTiming: approval.StageTiming{
			DeadlineHours:   c.Approval.ExecutiveDeadlineHours,
			EscalationHours: c.Approval.ExecutiveEscalationHours,
		},
		Policy: approval.EscalationPolicy(c.Escalation.Policy),
	}
	if err := rc.Validate(); err != nil {
		return approval.RoutingConfig{}, fmt.Errorf("invalid approval routing: %w", err)
	}
	return rc, nil
}
