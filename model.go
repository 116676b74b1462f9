package ragblade

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/ragblade/llm/gemini"
	"github.com/flarexio/ragblade/normalizer"
	"github.com/flarexio/ragblade/splitter"
	"github.com/flarexio/ragblade/vector"
)

const (
	DefaultPort      = 3000
	DefaultQdrantURL = "http://localhost:6333"

	// MaxUploadSize bounds an uploaded file.
	MaxUploadSize int64 = 10 << 20
)

type Config struct {
	GoogleAPIKey string `yaml:"-" env:"GOOGLE_API_KEY" validate:"required"`
	Port         int    `yaml:"port" env:"PORT" validate:"min=1,max=65535"`

	RetrievalK int      `yaml:"retrievalK" validate:"gte=0"`
	Timeouts   Timeouts `yaml:"timeouts"`

	Vector   vector.Config     `yaml:"vector"`
	Splitter splitter.Config   `yaml:"splitter"`
	Scrape   normalizer.Config `yaml:"scrape"`
	Gemini   gemini.Config     `yaml:"gemini"`
}

// Timeouts bounds each request kind end to end, external calls included.
type Timeouts struct {
	Upload Duration `yaml:"upload" json:"upload"`
	Text   Duration `yaml:"text" json:"text"`
	Scrape Duration `yaml:"scrape" json:"scrape"`
	Chat   Duration `yaml:"chat" json:"chat"`
	Store  Duration `yaml:"store" json:"store"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Upload: Duration(60 * time.Second),
		Text:   Duration(30 * time.Second),
		Scrape: Duration(45 * time.Second),
		Chat:   Duration(30 * time.Second),
		Store:  Duration(25 * time.Second),
	}
}

func DefaultConfig() Config {
	return Config{
		Port:       DefaultPort,
		RetrievalK: vector.DefaultK,
		Timeouts:   DefaultTimeouts(),
		Vector: vector.Config{
			Backend:    vector.BackendQdrant,
			URL:        DefaultQdrantURL,
			Collection: vector.DefaultCollection,
			Dimension:  vector.DefaultDimension,
			BatchSize:  vector.DefaultBatchSize,
		},
		Splitter: splitter.Config{
			ChunkSize:    splitter.DefaultChunkSize,
			ChunkOverlap: splitter.DefaultChunkOverlap,
		},
		Scrape: normalizer.Config{
			ScrapeTimeout: normalizer.DefaultScrapeTimeout,
			UserAgent:     normalizer.DefaultUserAgent,
			MaxPageBytes:  normalizer.DefaultMaxPageBytes,
		},
		Gemini: gemini.Config{
			EmbeddingModel: gemini.DefaultEmbeddingModel,
			ChatModel:      gemini.DefaultChatModel,
			Dimension:      gemini.DefaultDimension,
			Temperature:    gemini.DefaultTemperature,
		},
	}
}

// LoadConfig reads a yaml file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	return cfg, nil
}

// MissingEnvError lists required environment variables that are unset.
type MissingEnvError struct {
	Variables []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Variables, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by the variable that sets them.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if env := field.Tag.Get("env"); env != "" {
			return env
		}

		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	return v
}

// Validate checks the configuration once at startup. Unset required
// variables are reported together as *MissingEnvError.
func (cfg Config) Validate() error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	var (
		missing []string
		invalid []string
	)

	for _, fe := range errs {
		switch fe.Tag() {
		case "required", "required_if":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
		}
	}

	if len(missing) > 0 {
		return &MissingEnvError{Variables: missing}
	}

	return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}
