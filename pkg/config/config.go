package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port       string         `mapstructure:"port"`
	PprofAddr  string         `mapstructure:"pprof_addr"`
	JWT        JWTConfig      `mapstructure:"jwt"`
	Auth       AuthConfig     `mapstructure:"auth"`
	Store      StoreConfig    `mapstructure:"store"`
	MongoSQL   DatabaseConfig `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Badger     BadgerConfig   `mapstructure:"badger"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Events     EventsConfig   `mapstructure:"events"`
	Hub        HubConfig      `mapstructure:"hub"`
	Presence   PresenceConfig `mapstructure:"presence"`
}

// JWTConfig token verify setting
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// AuthConfig extra checks after the token signature is valid
type AuthConfig struct {
	// MemberCheck look the member up in postgres, reject banned / deleted
	MemberCheck bool `mapstructure:"member_check"`
	// SessionCheck require a live redis session for the member
	SessionCheck bool `mapstructure:"session_check"`
}

// StoreDriver message store backend
type StoreDriver string

const (
	// StoreMongo messages in mongo collection
	StoreMongo StoreDriver = "mongo"
	// StorePostgres messages in postgres table (gorm)
	StorePostgres StoreDriver = "postgres"
	// StoreBadger messages in embedded badger db
	StoreBadger StoreDriver = "badger"
)

// StoreConfig message store setting
type StoreConfig struct {
	Driver  StoreDriver   `mapstructure:"driver"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BadgerConfig embedded store setting
type BadgerConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	MasterName string `mapstructure:"master_name"`
	RedisDB    int    `mapstructure:"redis_db"`
	// Relay fan room events out to the other chat_service instances
	Relay bool `mapstructure:"relay"`
}

// Enabled redis is needed when a feature uses it
func (r RedisConfig) Enabled(auth AuthConfig) bool {
	return r.Relay || auth.SessionCheck
}

// EventsDriver broker for chat domain events
type EventsDriver string

const (
	// EventsNone do not publish
	EventsNone EventsDriver = "none"
	// EventsKafka publish to kafka topic
	EventsKafka EventsDriver = "kafka"
	// EventsRabbitMQ publish to rabbitmq exchange
	EventsRabbitMQ EventsDriver = "rabbitmq"
)

// EventsConfig broker setting
type EventsConfig struct {
	Driver        EventsDriver  `mapstructure:"driver"`
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	AMQPURL       string        `mapstructure:"amqp_url"`
	Exchange      string        `mapstructure:"exchange"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// HubConfig websocket connection setting
type HubConfig struct {
	SendBuffer       int           `mapstructure:"send_buffer"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	MaxMessageLength int           `mapstructure:"max_message_length"`
	MaxFrameBytes    int64         `mapstructure:"max_frame_bytes"`
}

// PresenceConfig presence setting
type PresenceConfig struct {
	// PersistStatus write online/offline to member.status
	PersistStatus bool `mapstructure:"persist_status"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// ChatDefaults default values for config.Chat
func ChatDefaults() map[string]any {
	return map[string]any{
		"port":                   "8080",
		"jwt.issuer":             "member_service",
		"store.driver":           string(StoreBadger),
		"store.timeout":          "5s",
		"badger.path":            "./data/chat",
		"events.driver":          string(EventsNone),
		"events.topic":           "chat.events",
		"events.exchange":        "chat.events",
		"events.retry_count":     5,
		"events.retry_interval":  "2s",
		"hub.send_buffer":        256,
		"hub.write_wait":         "10s",
		"hub.pong_wait":          "60s",
		"hub.ping_period":        "54s",
		"hub.max_message_length": 2000,
		"hub.max_frame_bytes":    64 * 1024,
	}
}
