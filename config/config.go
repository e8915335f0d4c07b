package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

// Config es la configuración completa del asistente.
type Config struct {
	League    LeagueConfig    `yaml:"league"`
	Transfers TransfersConfig `yaml:"transfers"`
	Solver    SolverConfig    `yaml:"solver"`
	Assistant AssistantConfig `yaml:"assistant"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// LeagueConfig son las constantes de la liga. Cost y Budget en décimas de millón.
type LeagueConfig struct {
	Budget    int            `yaml:"budget"`
	SquadSize int            `yaml:"squad_size"`
	TeamCap   int            `yaml:"team_cap"`
	Quotas    map[string]int `yaml:"quotas"` // GK | DEF | MID | FWD
}

// TransfersConfig controla las sugerencias de cambios.
type TransfersConfig struct {
	RiskThreshold  float64 `yaml:"risk_threshold"` // candidatos con rotation risk estrictamente menor
	MaxSuggestions int     `yaml:"max_suggestions"`
}

// SolverConfig limita el branch-and-bound.
type SolverConfig struct {
	Timeout    time.Duration `yaml:"timeout"`   // "60s", "500ms"
	MaxNodes   int           `yaml:"max_nodes"` // 0 = sin límite
	NoPresolve bool          `yaml:"no_presolve"`
}

// AssistantConfig controla el loop del asistente.
type AssistantConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	TopN            int `yaml:"top_n"`
}

// APIConfig contiene el base URL de la API de FPL y el fixture para dry-run.
type APIConfig struct {
	BaseURL     string `yaml:"base_url"`
	FixturePath string `yaml:"fixture_path"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Rules traduce la sección league a domain.LeagueRules.
func (c *Config) Rules() domain.LeagueRules {
	quotas := make(map[domain.Position]int, len(c.League.Quotas))
	for k, v := range c.League.Quotas {
		quotas[domain.Position(strings.ToUpper(k))] = v
	}
	return domain.LeagueRules{
		Budget:    c.League.Budget,
		SquadSize: c.League.SquadSize,
		TeamCap:   c.League.TeamCap,
		Quotas:    quotas,
	}
}

// TransferRules traduce la sección transfers.
func (c *Config) TransferRules() domain.TransferRules {
	return domain.TransferRules{
		RiskThreshold:  c.Transfers.RiskThreshold,
		MaxSuggestions: c.Transfers.MaxSuggestions,
	}
}

// SolverTimeout devuelve el timeout del solver.
func (c *Config) SolverTimeout() time.Duration {
	return c.Solver.Timeout
}

// Interval devuelve el intervalo de refresco como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Assistant.IntervalSeconds) * time.Second
}

// Validate comprueba la coherencia de las reglas y las posiciones de las cuotas.
func (c *Config) Validate() error {
	valid := make(map[domain.Position]bool)
	for _, p := range domain.Positions() {
		valid[p] = true
	}
	for k := range c.League.Quotas {
		if !valid[domain.Position(strings.ToUpper(k))] {
			return fmt.Errorf("league: unknown position %q in quotas", k)
		}
	}
	if err := c.Rules().Validate(); err != nil {
		return err
	}
	if c.Transfers.RiskThreshold <= 0 || c.Transfers.RiskThreshold > 1 {
		return fmt.Errorf("transfers: risk_threshold must be in (0,1], got %g", c.Transfers.RiskThreshold)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("FPLBOT_BUDGET"); v != "" {
		n, err := positiveInt(v)
		if err != nil {
			return fmt.Errorf("FPLBOT_BUDGET: %w", err)
		}
		cfg.League.Budget = n
	}
	if v := os.Getenv("FPLBOT_TEAM_CAP"); v != "" {
		n, err := positiveInt(v)
		if err != nil {
			return fmt.Errorf("FPLBOT_TEAM_CAP: %w", err)
		}
		cfg.League.TeamCap = n
	}
	if v := os.Getenv("FPLBOT_SOLVER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FPLBOT_SOLVER_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("FPLBOT_SOLVER_TIMEOUT: must be positive, got %s", v)
		}
		cfg.Solver.Timeout = d
	}
	if v := os.Getenv("FPL_API_BASE"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("FPLBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults rellena con las reglas oficiales de FPL lo que el YAML no trae.
func setDefaults(cfg *Config) {
	rules := domain.DefaultLeagueRules()
	if cfg.League.Budget <= 0 {
		cfg.League.Budget = rules.Budget
	}
	if cfg.League.SquadSize <= 0 {
		cfg.League.SquadSize = rules.SquadSize
	}
	if cfg.League.TeamCap <= 0 {
		cfg.League.TeamCap = rules.TeamCap
	}
	if len(cfg.League.Quotas) == 0 {
		cfg.League.Quotas = make(map[string]int, len(rules.Quotas))
		for pos, q := range rules.Quotas {
			cfg.League.Quotas[string(pos)] = q
		}
	}

	tr := domain.DefaultTransferRules()
	if cfg.Transfers.RiskThreshold <= 0 {
		cfg.Transfers.RiskThreshold = tr.RiskThreshold
	}
	if cfg.Transfers.MaxSuggestions <= 0 {
		cfg.Transfers.MaxSuggestions = tr.MaxSuggestions
	}

	if cfg.Solver.Timeout <= 0 {
		cfg.Solver.Timeout = 60 * time.Second
	}
	if cfg.Assistant.IntervalSeconds <= 0 {
		cfg.Assistant.IntervalSeconds = 3600
	}
	if cfg.Assistant.TopN < 0 {
		cfg.Assistant.TopN = 0
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://fantasy.premierleague.com/api"
	}
	if cfg.API.FixturePath == "" {
		cfg.API.FixturePath = "internal/adapters/fpl/testdata/bootstrap_sample.json"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "fplbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// positiveInt parsea un entero > 0. Un 0 explícito en el entorno es un error,
// no "usar el valor por defecto".
func positiveInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
