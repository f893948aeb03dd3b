package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/spf13/viper"
)

const (
	DefaultHomeDir  = "$HOME/.circle"
	ConfigFileName  = "config.toml"
	AppFileName     = "app.toml"
	DefaultRPCURL   = "http://127.0.0.1:26657"
	DefaultHTTPAddr = "127.0.0.1:8080"
)

type KeeperConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	KeyFile      string        `mapstructure:"key_file"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type CircleAppConfig struct {
	Home string `mapstructure:"-"`

	IndexerDB           string        `mapstructure:"indexer_db"`
	IndexerPollInterval time.Duration `mapstructure:"indexer_poll_interval"`
	HTTPListen          string        `mapstructure:"http_listen"`

	Keeper KeeperConfig `mapstructure:"keeper"`
}

func DefaultCircleAppConfig(home string) *CircleAppConfig {
	return &CircleAppConfig{
		Home:                home,
		IndexerDB:           "indexer.db",
		IndexerPollInterval: 2 * time.Second,
		HTTPListen:          DefaultHTTPAddr,
		Keeper: KeeperConfig{
			Enabled:      false,
			KeyFile:      filepath.Join("config", "priv_validator_key.json"),
			PollInterval: 10 * time.Second,
		},
	}
}

// Path resolves p against the home directory unless it is absolute.
func (c *CircleAppConfig) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Home, p)
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *CircleAppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	cfg := &Config{
		DefaultCircleCometConfig(),
		DefaultCircleAppConfig(home),
	}
	cfg.SetRoot(home)
	_ = os.MkdirAll(filepath.Join(home, "config"), DefaultDirPerm)
	return cfg
}

// Load reads config.toml and merges app.toml from the home directory.
func Load(home string) (cfg *Config, err error) {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	cfg = &Config{
		DefaultCircleCometConfig(),
		DefaultCircleAppConfig(home),
	}
	cfg.SetRoot(home)

	v := viper.New()
	v.SetConfigFile(filepath.Join(home, "config", ConfigFileName))
	if err = v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	appFile := filepath.Join(home, "config", AppFileName)
	if _, statErr := os.Stat(appFile); statErr == nil {
		v.SetConfigFile(appFile)
		if err = v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading app config: %w", err)
		}
	}
	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.App.Home = home
	if err = cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	if c.App.IndexerPollInterval <= 0 {
		return fmt.Errorf("app.indexer_poll_interval must be positive")
	}
	if c.App.Keeper.Enabled && c.App.Keeper.PollInterval <= 0 {
		return fmt.Errorf("app.keeper.poll_interval must be positive")
	}
	return nil
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

// DefaultCircleCometConfig shortens the consensus timeouts so blocks, and
// therefore block time, keep up with the epoch clock.
func DefaultCircleCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	cometConfig.Instrumentation.Prometheus = true
	return cometConfig
}
