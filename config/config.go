// brandcut/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	// External engine.
	FFmpegBin        string        `mapstructure:"FFMPEG_BIN"`
	FFprobeBin       string        `mapstructure:"FFPROBE_BIN"`
	ProbeTimeout     time.Duration `mapstructure:"PROBE_TIMEOUT"`
	TransformTimeout time.Duration `mapstructure:"TRANSFORM_TIMEOUT"`
	FFExtraArgs      string        `mapstructure:"FF_EXTRA_ARGS"`

	// Acquisition.
	MaxInputSize int64 `mapstructure:"MAX_INPUT_SIZE"`

	// Branding assets.
	BannerPath       string `mapstructure:"BANNER_PATH"`
	FontPath         string `mapstructure:"FONT_PATH"`
	EndCreditPath    string `mapstructure:"END_CREDIT_PATH"`
	EndCreditKind    string `mapstructure:"END_CREDIT_KIND"` // "image" or "video"
	EndCreditSeconds int    `mapstructure:"END_CREDIT_SECONDS"`
	CanvasWidth      int    `mapstructure:"CANVAS_WIDTH"`
	CanvasHeight     int    `mapstructure:"CANVAS_HEIGHT"`

	// Engine pre-flight throttles. THROTTLE_CPU is the minimum idle
	// percentage required; 0 disables the CPU check.
	ThrottleCPU      float64 `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64   `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64   `mapstructure:"THROTTLE_FREEDISK"`

	// Object storage (publishing disabled when the endpoint is empty).
	StorageEndpoint  string `mapstructure:"STORAGE_ENDPOINT"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET"`
	StorageUseSSL    bool   `mapstructure:"STORAGE_USE_SSL"`
	StorageBaseURL   string `mapstructure:"STORAGE_BASE_URL"`

	// Housekeeping. CLEANUP_INTERVAL of 0 disables the periodic sweep.
	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`
	WorkRoot        string        `mapstructure:"WORK_ROOT"`

	// Transport.
	AuthEnable bool   `mapstructure:"AUTH_ENABLE"`
	AuthKey    string `mapstructure:"AUTH_KEY"`
	Port       string `mapstructure:"PORT"`
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// We only care about converting strings to time.Duration.
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Defaults are strings where a hook will convert them.
	vp.SetDefault("FFMPEG_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("PROBE_TIMEOUT", "30s")
	vp.SetDefault("TRANSFORM_TIMEOUT", "300s")
	vp.SetDefault("FF_EXTRA_ARGS", "")
	vp.SetDefault("MAX_INPUT_SIZE", "500MB")
	vp.SetDefault("BANNER_PATH", "assets/banner.png")
	vp.SetDefault("FONT_PATH", "assets/caption.ttf")
	vp.SetDefault("END_CREDIT_PATH", "assets/end_credit.png")
	vp.SetDefault("END_CREDIT_KIND", "image")
	vp.SetDefault("END_CREDIT_SECONDS", 3)
	vp.SetDefault("CANVAS_WIDTH", 1080)
	vp.SetDefault("CANVAS_HEIGHT", 1920)
	vp.SetDefault("THROTTLE_CPU", 0.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "1GB")
	vp.SetDefault("STORAGE_ENDPOINT", "")
	vp.SetDefault("STORAGE_ACCESS_KEY", "")
	vp.SetDefault("STORAGE_SECRET_KEY", "")
	vp.SetDefault("STORAGE_BUCKET", "brandcut")
	vp.SetDefault("STORAGE_USE_SSL", true)
	vp.SetDefault("STORAGE_BASE_URL", "")
	vp.SetDefault("CLEANUP_INTERVAL", "12h")
	vp.SetDefault("WORK_ROOT", "")
	vp.SetDefault("AUTH_ENABLE", false)
	vp.SetDefault("AUTH_KEY", "123456")
	vp.SetDefault("PORT", "8080")

	// Load from config file
	vp.SetConfigName("brandcut_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/brandcut/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("BRANDCUT")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// The order matters: the first hook that succeeds is used.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
