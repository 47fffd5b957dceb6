package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Storage  MStorageConfig `yaml:"storage"`
	Network  MNetworkConfig `yaml:"network"`
	Feed     MFeedConfig    `yaml:"feed"`
	Alerts   MAlertsConfig  `yaml:"alerts"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	Proxy          string `yaml:"proxy"`
	UserAgent      string `yaml:"user_agent"`
}

type MFeedConfig struct {
	URL                  string   `yaml:"url"`
	Symbols              []string `yaml:"symbols"`
	ReconnectBaseSeconds float64  `yaml:"reconnect_base_seconds"`
	ReconnectMaxSeconds  float64  `yaml:"reconnect_max_seconds"`
}

type MAlertsConfig struct {
	RecentBufferSize int `yaml:"recent_buffer_size"`
	ClientSendBuffer int `yaml:"client_send_buffer"`
	RecorderQueue    int `yaml:"recorder_queue"`
}
