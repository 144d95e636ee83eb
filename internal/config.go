package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mfolders/internal/folders"
	"github.com/starford/mfolders/internal/models"
	"github.com/starford/mfolders/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var hexColor = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Host    HostConfig        `yaml:"host"`
	Folders FoldersConfig     `yaml:"folders"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Host.Validate(); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	if err := c.Folders.Validate(); err != nil {
		return fmt.Errorf("folders: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the persistent folder store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(storage.DriverSQLite, storage.DriverBadger, storage.DriverFile, storage.DriverMemory)),
		validation.Field(&c.Path, validation.When(c.Driver != storage.DriverMemory, validation.Required)),
	)
}

// HostConfig points at the macro documents and the users of the host.
type HostConfig struct {
	MacrosPath string        `yaml:"macros_path"`
	Watch      bool          `yaml:"watch"`
	Users      []models.User `yaml:"users"`
}

// Validate validates the host configuration.
func (c *HostConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MacrosPath, validation.Required),
	); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Users))
	for i := range c.Users {
		u := &c.Users[i]
		if err := validation.ValidateStruct(u,
			validation.Field(&u.ID, validation.Required),
			validation.Field(&u.Name, validation.Required),
			validation.Field(&u.Color, validation.Match(hexColor)),
		); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if seen[u.ID] {
			return fmt.Errorf("users[%d]: duplicate id %q", i, u.ID)
		}
		seen[u.ID] = true
	}
	return nil
}

// FoldersConfig tunes the folder engine.
type FoldersConfig struct {
	DepthLimit int    `yaml:"depth_limit"`
	ClientID   string `yaml:"client_id"`
	IconsPath  string `yaml:"icons_path"`
}

// Validate validates the folders configuration.
func (c *FoldersConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DepthLimit, validation.Required, validation.Min(2), validation.Max(64)),
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.IconsPath, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Driver: storage.DriverSQLite,
			Path:   "./mfolders.db",
		},
		Host: HostConfig{
			MacrosPath: "./macros",
			Watch:      true,
		},
		Folders: FoldersConfig{
			DepthLimit: folders.DefaultDepthLimit,
			ClientID:   "local",
			IconsPath:  "./icons",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
