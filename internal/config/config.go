package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Link    LinkConfig
	Polling PollingConfig
	Control ControlConfig
	Scale   ScaleConfig
	Remote  RemoteConfig
	MCP     MCPConfig
	Log     LogConfig
}

// LinkConfig holds flight-control bridge connection settings.
type LinkConfig struct {
	Host           string
	Port           int
	Timeout        time.Duration
	AppName        string
	SerialPort     string
	BaudRate       int
	RequestTimeout time.Duration
}

// PollingConfig holds telemetry polling settings.
type PollingConfig struct {
	Interval       time.Duration
	StaleThreshold time.Duration
}

// ControlConfig holds flight control settings. Mode and Curve are kept as
// text and parsed by their owning packages.
type ControlConfig struct {
	Mode                string
	SendingFrequency    float64
	TakeoffHeight       float64
	TakeoffTolerance    float64
	HeightLimit         float64
	CompassOffset       float64
	MovementScale       float64
	MaxRotationVelocity float64
	VelocityThreshold   float64
	VelocityFrame       string
	GimbalRollSync      bool
	Curve               string
	AdvancedThumbsticks bool
	FenceLeft           float64
	FenceTop            float64
	FenceRight          float64
	FenceBottom         float64
	MockController      bool
}

// ScaleConfig selects a stick scale preset.
type ScaleConfig struct {
	File string
	Name string
}

// RemoteConfig holds the data-channel transports. An empty address or broker
// disables that transport.
type RemoteConfig struct {
	WSAddr       string
	WSPath       string
	MQTTBroker   string
	MQTTClientID string
	MQTTTopicIn  string
	MQTTTopicOut string
	PingInterval time.Duration
}

// MCPConfig holds the operator tool server settings.
type MCPConfig struct {
	Enabled bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, falling back to defaults.
func Load() Config {
	return Config{
		Link: LinkConfig{
			Host:           getEnvString("LINK_HOST", "127.0.0.1"),
			Port:           getEnvInt("LINK_PORT", 4560),
			Timeout:        getEnvDuration("LINK_TIMEOUT", 10*time.Second),
			AppName:        getEnvString("LINK_APP_NAME", "headset-pilot"),
			SerialPort:     getEnvString("LINK_SERIAL_PORT", ""),
			BaudRate:       getEnvInt("LINK_BAUD_RATE", 57600),
			RequestTimeout: getEnvDuration("LINK_REQUEST_TIMEOUT", 5*time.Second),
		},
		Polling: PollingConfig{
			Interval:       getEnvDuration("POLL_INTERVAL", 200*time.Millisecond),
			StaleThreshold: getEnvDuration("STALE_THRESHOLD", 5*time.Second),
		},
		Control: ControlConfig{
			Mode:                getEnvString("CONTROL_MODE", "headset"),
			SendingFrequency:    getEnvFloat("SENDING_FREQUENCY", 5),
			TakeoffHeight:       getEnvFloat("TAKEOFF_HEIGHT", 1.2),
			TakeoffTolerance:    getEnvFloat("TAKEOFF_TOLERANCE", 0.1),
			HeightLimit:         getEnvFloat("HEIGHT_LIMIT", 2),
			CompassOffset:       getEnvFloat("COMPASS_OFFSET", 0),
			MovementScale:       getEnvFloat("HEADSET_MOVEMENT_SCALE", 1),
			MaxRotationVelocity: getEnvFloat("MAX_ROTATION_VELOCITY", 90),
			VelocityThreshold:   getEnvFloat("VELOCITY_THRESHOLD", 3),
			VelocityFrame:       getEnvString("VELOCITY_FRAME", "ned"),
			GimbalRollSync:      getEnvBool("GIMBAL_ROLL_SYNC", false),
			Curve:               getEnvString("STICK_CURVE", "exponential"),
			AdvancedThumbsticks: getEnvBool("ADVANCED_THUMBSTICKS", false),
			FenceLeft:           getEnvFloat("FENCE_LEFT", -5),
			FenceTop:            getEnvFloat("FENCE_TOP", 5),
			FenceRight:          getEnvFloat("FENCE_RIGHT", 5),
			FenceBottom:         getEnvFloat("FENCE_BOTTOM", -5),
			MockController:      getEnvBool("MOCK_CONTROLLER", false),
		},
		Scale: ScaleConfig{
			File: getEnvString("SCALE_CONFIG_FILE", ""),
			Name: getEnvString("SCALE_CONFIG_NAME", NoScale),
		},
		Remote: RemoteConfig{
			WSAddr:       getEnvString("WS_ADDR", ":8765"),
			WSPath:       getEnvString("WS_PATH", "/control"),
			MQTTBroker:   getEnvString("MQTT_BROKER", ""),
			MQTTClientID: getEnvString("MQTT_CLIENT_ID", ""),
			MQTTTopicIn:  getEnvString("MQTT_TOPIC_IN", "headset-pilot/in"),
			MQTTTopicOut: getEnvString("MQTT_TOPIC_OUT", "headset-pilot/out"),
			PingInterval: getEnvDuration("PING_INTERVAL", time.Second),
		},
		MCP: MCPConfig{
			Enabled: getEnvBool("MCP_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "text"),
		},
	}
}

func getEnvString(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
